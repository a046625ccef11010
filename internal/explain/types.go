// Package explain builds transparent, auditable explanations of assistant
// responses: which records were consulted, which patterns and risk factors
// the rule engine detected, the canned reasoning steps behind the
// recommendation, and a confidence score derived from retrieval distances.
//
// Everything in this package is a deterministic reduction over its inputs.
// Identical (query, profile, records) always produce the identical
// explanation, which is what makes the output reproducible end to end.
package explain

import "time"

// ConfidenceLevel is the tier assigned to a response.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// Confidence scores how well retrieved records supported a response.
type Confidence struct {
	Level      ConfidenceLevel `json:"level"`
	Percentage int             `json:"percentage"`
	Reason     string          `json:"reason"`
}

// Severity grades a risk factor.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// RiskFactor is one structured finding from the risk rule table.
type RiskFactor struct {
	Factor      string   `json:"factor"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Mitigation  string   `json:"mitigation"`
}

// RecordInfo is a retrieved record as presented in the data-sources block:
// text truncated for display, distance converted to a relevance score.
type RecordInfo struct {
	Text           string            `json:"text"`
	RelevanceScore float64           `json:"relevance_score"`
	Metadata       map[string]string `json:"metadata"`
}

// DataSources breaks down what information fed the response.
type DataSources struct {
	FamilyHistory  []string     `json:"family_history,omitempty"`
	MedicalRecords []RecordInfo `json:"medical_records"`
	Medications    []RecordInfo `json:"medications"`
	TestResults    []RecordInfo `json:"test_results"`
}

// Logic is the canned reasoning block for the matched topic.
type Logic struct {
	DecisionTree           []string `json:"decision_tree"`
	MedicalGuidelines      []string `json:"medical_guidelines"`
	PersonalizationFactors []string `json:"personalization_factors"`
}

// Explanation is the full auditable breakdown for one response.
type Explanation struct {
	MessageID           string       `json:"message_id"`
	UserQuery           string       `json:"user_query"`
	DataSources         DataSources  `json:"data_sources"`
	PatternsDetected    []string     `json:"patterns_detected"`
	RiskFactors         []RiskFactor `json:"risk_factors"`
	RecommendationLogic Logic        `json:"recommendation_logic"`
	Confidence          Confidence   `json:"confidence_level"`
	Timestamp           time.Time    `json:"timestamp"`
}
