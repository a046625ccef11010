// Package chat answers patient questions using their indexed medical
// history. It assembles a deterministic context block from the profile and
// semantically retrieved records, hands it to a response generator, and logs
// the exchange.
package chat

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// BuildContext renders the medical context block for a response generator.
//
// The output is a pure function of its inputs: family conditions in fixed
// relation order, then the top maxRecords retrieved records in ranked order,
// then the document count. Identical inputs produce byte-identical output.
func BuildContext(profile *patients.Profile, records []vectorstore.RetrievedRecord, maxRecords int) string {
	var b strings.Builder
	b.WriteString("Patient Medical History:\n\n")

	if profile != nil {
		b.WriteString("Family History:\n")
		for _, c := range profile.FamilyHistory.Conditions() {
			fmt.Fprintf(&b, "- %s: %s\n", c.Relation, c.Condition)
		}
		b.WriteString("\n")
	}

	if len(records) > 0 {
		if maxRecords <= 0 {
			maxRecords = 3
		}
		b.WriteString("Recent Medical Records:\n")
		for i, record := range records {
			if i >= maxRecords {
				break
			}
			fmt.Fprintf(&b, "- %s\n", record.Text)
		}
		b.WriteString("\n")
	}

	if profile != nil && len(profile.UploadedDocuments) > 0 {
		fmt.Fprintf(&b, "Total medical documents on file: %d\n", profile.DocumentsProcessed)
	}

	return b.String()
}
