// Package patients provides the patient registry and profile types.
//
// The registry is an injected repository rather than process-global state:
// services receive a Repository at construction time and own its lifecycle.
package patients

import (
	"strings"
	"time"
)

// FamilyHistory holds reported medical conditions by relation.
//
// Relations are fixed so that serialization and context assembly iterate in a
// stable order regardless of how the profile was built.
type FamilyHistory struct {
	Father         string `json:"father"`
	Mother         string `json:"mother"`
	Siblings       string `json:"siblings"`
	FamilyDiseases string `json:"family_diseases"`
	Additional     string `json:"additional,omitempty"`
}

// Condition is one relation/condition pair from a family history.
type Condition struct {
	Relation  string `json:"relation"`
	Condition string `json:"condition"`
}

// Conditions returns the non-empty family history entries in fixed relation
// order. Entries whose value is empty or "none" (case-insensitive) are
// omitted.
func (fh FamilyHistory) Conditions() []Condition {
	entries := []Condition{
		{Relation: "father", Condition: fh.Father},
		{Relation: "mother", Condition: fh.Mother},
		{Relation: "siblings", Condition: fh.Siblings},
		{Relation: "family_diseases", Condition: fh.FamilyDiseases},
		{Relation: "additional", Condition: fh.Additional},
	}

	conditions := make([]Condition, 0, len(entries))
	for _, e := range entries {
		if e.Condition == "" || strings.EqualFold(e.Condition, "none") {
			continue
		}
		conditions = append(conditions, e)
	}
	return conditions
}

// Mentions reports whether any family history entry contains the given
// substring, case-insensitively. Used by the risk rule engine.
func (fh FamilyHistory) Mentions(substr string) bool {
	needle := strings.ToLower(substr)
	for _, e := range fh.Conditions() {
		if strings.Contains(strings.ToLower(e.Condition), needle) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the family history carries no usable entries.
func (fh FamilyHistory) IsEmpty() bool {
	return len(fh.Conditions()) == 0
}

// DocumentInfo describes one uploaded document as recorded on the profile.
type DocumentInfo struct {
	Filename  string `json:"filename,omitempty"`
	Type      string `json:"type"`
	RecordID  string `json:"record_id"`
	Processed bool   `json:"processed"`
}

// Profile is a patient's registry entry.
//
// The profile is read-only to the retrieval and explanation core; only the
// upload path writes it.
type Profile struct {
	PatientID          string         `json:"patient_id"`
	Name               string         `json:"name,omitempty"`
	Age                int            `json:"age,omitempty"`
	FamilyHistory      FamilyHistory  `json:"family_history"`
	UploadedDocuments  []DocumentInfo `json:"uploaded_documents,omitempty"`
	TotalDocuments     int            `json:"total_documents"`
	DocumentsProcessed int            `json:"documents_processed"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
