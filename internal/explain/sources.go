package explain

import (
	"math"
	"strings"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// displayTextLimit caps record text in the data-sources block.
const displayTextLimit = 150

// BuildDataSources summarizes the evidence behind a response: the family
// conditions on file and each retrieved record with a relevance score,
// categorized by lexical cues in its text.
func BuildDataSources(profile *patients.Profile, records []vectorstore.RetrievedRecord) DataSources {
	sources := DataSources{
		MedicalRecords: []RecordInfo{},
		Medications:    []RecordInfo{},
		TestResults:    []RecordInfo{},
	}

	if profile != nil {
		sources.FamilyHistory = familyConditionLines(profile.FamilyHistory)
	}

	for _, record := range records {
		info := RecordInfo{
			Text:           truncate(record.Text, displayTextLimit),
			RelevanceScore: relevance(record.Distance),
			Metadata:       record.Metadata,
		}

		lower := strings.ToLower(record.Text)
		switch {
		case strings.Contains(lower, "glucose") || strings.Contains(lower, "hba1c"):
			sources.TestResults = append(sources.TestResults, info)
		case strings.Contains(lower, "metformin") || strings.Contains(lower, "medication"):
			sources.Medications = append(sources.Medications, info)
		default:
			sources.MedicalRecords = append(sources.MedicalRecords, info)
		}
	}

	return sources
}

func familyConditionLines(fh patients.FamilyHistory) []string {
	var lines []string
	add := func(label, value string) {
		if value == "" || strings.EqualFold(value, "none") {
			return
		}
		lines = append(lines, label+": "+value)
	}
	add("Father", fh.Father)
	add("Mother", fh.Mother)
	add("Siblings", fh.Siblings)
	add("Family diseases", fh.FamilyDiseases)
	return lines
}

// relevance converts a retrieval distance to a similarity score in (0, 1],
// rounded to two decimals.
func relevance(distance float64) float64 {
	return math.Round(100/(1+distance)) / 100
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
