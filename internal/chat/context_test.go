package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

func TestBuildContextFull(t *testing.T) {
	profile := &patients.Profile{
		PatientID: "PT-2026-AB12",
		FamilyHistory: patients.FamilyHistory{
			Father: "Type 2 Diabetes",
			Mother: "none",
		},
		UploadedDocuments:  []patients.DocumentInfo{{Type: "lab_report"}},
		DocumentsProcessed: 2,
	}
	records := []vectorstore.RetrievedRecord{
		{Text: "Glucose 128 mg/dL"},
		{Text: "Metformin 500mg"},
	}

	got := BuildContext(profile, records, 3)

	want := "Patient Medical History:\n\n" +
		"Family History:\n" +
		"- father: Type 2 Diabetes\n" +
		"\n" +
		"Recent Medical Records:\n" +
		"- Glucose 128 mg/dL\n" +
		"- Metformin 500mg\n" +
		"\n" +
		"Total medical documents on file: 2\n"
	assert.Equal(t, want, got)
}

func TestBuildContextCapsRecords(t *testing.T) {
	records := []vectorstore.RetrievedRecord{
		{Text: "first"}, {Text: "second"}, {Text: "third"}, {Text: "fourth"},
	}

	got := BuildContext(nil, records, 3)
	assert.Contains(t, got, "- third\n")
	assert.NotContains(t, got, "fourth")
}

func TestBuildContextNoProfile(t *testing.T) {
	got := BuildContext(nil, nil, 3)
	assert.Equal(t, "Patient Medical History:\n\n", got)
	assert.NotContains(t, got, "Family History")
}

func TestBuildContextSkipsNoneConditions(t *testing.T) {
	profile := &patients.Profile{
		FamilyHistory: patients.FamilyHistory{Father: "None", Mother: "none"},
	}

	got := BuildContext(profile, nil, 3)
	assert.Contains(t, got, "Family History:\n")
	assert.NotContains(t, got, "father")
	assert.NotContains(t, got, "mother")
}

func TestBuildContextDeterministic(t *testing.T) {
	profile := &patients.Profile{
		FamilyHistory: patients.FamilyHistory{
			Father:         "Diabetes",
			Mother:         "Asthma",
			Siblings:       "Healthy history",
			FamilyDiseases: "Hypertension",
		},
	}
	records := []vectorstore.RetrievedRecord{{Text: "record one"}, {Text: "record two"}}

	first := BuildContext(profile, records, 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildContext(profile, records, 3))
	}

	// Relation order is fixed regardless of how the struct was populated.
	fatherIdx := strings.Index(first, "father")
	motherIdx := strings.Index(first, "mother")
	siblingsIdx := strings.Index(first, "siblings")
	assert.True(t, fatherIdx < motherIdx && motherIdx < siblingsIdx)
}
