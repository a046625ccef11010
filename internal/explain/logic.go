package explain

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
)

// logicTemplate is the canned reasoning block for one topic. Topics are
// checked in declared order and the first match wins.
type logicTemplate struct {
	topics     []string
	steps      []string
	guidelines []string
}

var logicTemplates = []logicTemplate{
	{
		topics: []string{"fever"},
		steps: []string{
			"1. Identified acute symptom (fever)",
			"2. Checked patient history for respiratory conditions → None found",
			"3. Assessed severity based on reported symptoms",
			"4. Applied general fever management protocol",
			"5. Set monitoring timeline (24-48 hours)",
		},
		guidelines: []string{
			"CDC Fever Management Guidelines",
			"WHO Symptom Monitoring Protocol",
		},
	},
	{
		topics: []string{"glucose", "diabetes"},
		steps: []string{
			"1. Retrieved recent glucose and HbA1c values",
			"2. Compared against normal ranges (glucose <100, HbA1c <5.7%)",
			"3. Analyzed family history for genetic risk",
			"4. Detected upward trend in glucose levels",
			"5. Applied ADA pre-diabetes management guidelines",
		},
		guidelines: []string{
			"American Diabetes Association (ADA) Guidelines",
			"Pre-diabetes Management Protocol",
			"HbA1c Interpretation Standards",
		},
	},
	{
		topics: []string{"medication"},
		steps: []string{
			"1. Retrieved current medication list",
			"2. Checked prescription details and dosage",
			"3. Calculated remaining supply based on dosage",
			"4. Applied <5 days threshold for refill alert",
			"5. Generated proactive reminder",
		},
		guidelines: []string{
			"Medication Adherence Best Practices",
			"Metformin Dosage Guidelines",
		},
	},
}

var genericPersonalization = []string{
	"General medical guidance applied",
	"Recommendation to consult healthcare provider for personalized advice",
}

// BuildLogic selects the reasoning template for the query's topic and
// derives personalization factors from the profile and response text.
func BuildLogic(query, response string, profile *patients.Profile) Logic {
	logic := Logic{
		DecisionTree:           []string{},
		MedicalGuidelines:      []string{},
		PersonalizationFactors: []string{},
	}

	queryLower := strings.ToLower(query)
	for _, tmpl := range logicTemplates {
		if !mentionsAny(queryLower, tmpl.topics) {
			continue
		}
		logic.DecisionTree = tmpl.steps
		logic.MedicalGuidelines = tmpl.guidelines
		break
	}

	if profile != nil {
		if !profile.FamilyHistory.IsEmpty() {
			logic.PersonalizationFactors = append(logic.PersonalizationFactors,
				"Family medical history used to assess genetic risk")
		}
		if len(profile.UploadedDocuments) > 0 {
			logic.PersonalizationFactors = append(logic.PersonalizationFactors,
				fmt.Sprintf("Analysis based on %d uploaded medical records", profile.DocumentsProcessed))
		}
	}

	if strings.Contains(strings.ToLower(response), "monitor") {
		logic.PersonalizationFactors = append(logic.PersonalizationFactors,
			"Conservative approach due to lack of emergency symptoms")
	}

	if len(logic.PersonalizationFactors) == 0 {
		logic.PersonalizationFactors = append([]string{}, genericPersonalization...)
	}

	return logic
}

func mentionsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
