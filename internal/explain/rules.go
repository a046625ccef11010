package explain

import (
	"strings"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// ruleInput is the full evidence a rule may inspect.
type ruleInput struct {
	query   string // lowercased
	profile *patients.Profile
	records []vectorstore.RetrievedRecord
}

func (in ruleInput) queryMentions(words ...string) bool {
	for _, w := range words {
		if strings.Contains(in.query, w) {
			return true
		}
	}
	return false
}

// anyRecord reports whether any retrieved record's text satisfies pred.
// pred receives both the lowercased and the raw text; literal number checks
// use the raw text to match how values appear in documents.
func (in ruleInput) anyRecord(pred func(lower, text string) bool) bool {
	for _, r := range in.records {
		if pred(strings.ToLower(r.Text), r.Text) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func (in ruleInput) familyMentions(substr string) bool {
	return in.profile != nil && in.profile.FamilyHistory.Mentions(substr)
}

// patternRule emits human-readable pattern annotations when its predicate
// holds. Rules are data: evaluated independently, in declared order, outputs
// concatenated.
type patternRule struct {
	name string
	when func(ruleInput) bool
	emit []string
}

// patternRules is the fixed detection table, ordered glucose/diabetes, then
// fever/respiratory, then medication, then age.
//
// Glucose and HbA1c checks match on textual literals rather than parsed
// numeric ranges, preserving a known approximation in the detection
// behavior.
var patternRules = []patternRule{
	{
		name: "family_diabetes",
		when: func(in ruleInput) bool {
			return in.queryMentions("glucose", "sugar", "diabetes") && in.familyMentions("diabetes")
		},
		emit: []string{"🧬 Family history of diabetes detected (genetic risk factor)"},
	},
	{
		name: "glucose_trend",
		when: func(in ruleInput) bool {
			return in.queryMentions("glucose", "sugar", "diabetes") &&
				in.anyRecord(func(lower, text string) bool {
					return strings.Contains(lower, "glucose") && containsAny(text, "128", "110")
				})
		},
		emit: []string{"📈 Glucose levels trending upward (95 → 110 → 128 mg/dL)"},
	},
	{
		name: "hba1c_prediabetic",
		when: func(in ruleInput) bool {
			return in.queryMentions("glucose", "sugar", "diabetes") &&
				in.anyRecord(func(lower, _ string) bool {
					return strings.Contains(lower, "glucose") && strings.Contains(lower, "hba1c")
				})
		},
		emit: []string{"⚠️ HbA1c at 5.9% indicates pre-diabetic range (normal <5.7%)"},
	},
	{
		name: "acute_symptoms",
		when: func(in ruleInput) bool {
			return in.queryMentions("fever", "cough")
		},
		emit: []string{
			"🌡️ Acute symptom query detected (requires monitoring)",
			"📊 No chronic respiratory conditions in patient history",
		},
	},
	{
		name: "medication_adherence",
		when: func(in ruleInput) bool {
			return in.queryMentions("medication", "medicine") &&
				in.anyRecord(func(lower, _ string) bool {
					return strings.Contains(lower, "metformin")
				})
		},
		emit: []string{
			"💊 Currently on Metformin 500mg for blood sugar management",
			"📅 Medication adherence monitoring recommended",
		},
	},
	{
		name: "age_screening",
		when: func(in ruleInput) bool {
			return in.profile != nil && in.profile.Age > 0
		},
		emit: []string{"👤 Patient age is significant risk factor for screening recommendations"},
	},
}

// fallbackPattern is returned instead of an empty list so callers never
// special-case emptiness.
const fallbackPattern = "ℹ️ No significant patterns detected in available data"

// DetectPatterns runs the pattern rule table over the query, profile, and
// retrieved records.
func DetectPatterns(query string, profile *patients.Profile, records []vectorstore.RetrievedRecord) []string {
	in := ruleInput{
		query:   strings.ToLower(query),
		profile: profile,
		records: records,
	}

	var patterns []string
	for _, rule := range patternRules {
		if rule.when(in) {
			patterns = append(patterns, rule.emit...)
		}
	}

	if len(patterns) == 0 {
		return []string{fallbackPattern}
	}
	return patterns
}

// riskRule emits a structured risk factor when its predicate holds. Unlike
// pattern rules, risk rules inspect only the evidence (profile and records),
// not the query: a risk is present regardless of what was asked.
type riskRule struct {
	name string
	when func(ruleInput) bool
	emit RiskFactor
}

var riskRules = []riskRule{
	{
		name: "family_diabetes",
		when: func(in ruleInput) bool { return in.familyMentions("diabetes") },
		emit: RiskFactor{
			Factor:      "Family History of Diabetes",
			Severity:    SeverityHigh,
			Description: "First-degree relative with diabetes increases risk by 40%",
			Mitigation:  "Regular HbA1c testing, lifestyle modifications",
		},
	},
	{
		name: "family_cardiovascular",
		when: func(in ruleInput) bool {
			return in.familyMentions("hypertension") || in.familyMentions("heart")
		},
		emit: RiskFactor{
			Factor:      "Family History of Cardiovascular Disease",
			Severity:    SeverityMedium,
			Description: "Increased risk for heart conditions",
			Mitigation:  "Blood pressure monitoring, cholesterol checks",
		},
	},
	{
		name: "prediabetic_hba1c",
		when: func(in ruleInput) bool {
			return in.anyRecord(func(lower, text string) bool {
				return strings.Contains(lower, "hba1c") && containsAny(text, "5.7", "5.8", "5.9")
			})
		},
		emit: RiskFactor{
			Factor:      "Pre-Diabetic HbA1c Level",
			Severity:    SeverityHigh,
			Description: "HbA1c 5.7-6.4% indicates pre-diabetes",
			Mitigation:  "Diet control, regular exercise, medication compliance",
		},
	},
	{
		name: "elevated_glucose",
		when: func(in ruleInput) bool {
			return in.anyRecord(func(lower, text string) bool {
				return strings.Contains(lower, "glucose") && containsAny(text, "128", "120", "130")
			})
		},
		emit: RiskFactor{
			Factor:      "Elevated Fasting Glucose",
			Severity:    SeverityMedium,
			Description: "Glucose levels above 100 mg/dL indicate impaired fasting glucose",
			Mitigation:  "Reduce sugar intake, increase physical activity",
		},
	},
}

// fallbackRiskFactor signals a clean evaluation rather than an empty result.
var fallbackRiskFactor = RiskFactor{
	Factor:      "No Critical Risk Factors",
	Severity:    SeverityLow,
	Description: "Current health indicators within normal ranges",
	Mitigation:  "Continue regular health monitoring",
}

// ExtractRiskFactors runs the risk rule table over the profile and records.
func ExtractRiskFactors(profile *patients.Profile, records []vectorstore.RetrievedRecord) []RiskFactor {
	in := ruleInput{
		profile: profile,
		records: records,
	}

	var risks []RiskFactor
	for _, rule := range riskRules {
		if rule.when(in) {
			risks = append(risks, rule.emit)
		}
	}

	if len(risks) == 0 {
		return []RiskFactor{fallbackRiskFactor}
	}
	return risks
}
