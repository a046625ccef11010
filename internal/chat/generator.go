package chat

import (
	"context"
	"fmt"
	"strings"
)

// Request carries what a generator needs to produce a response: the
// patient's question and the assembled medical context.
type Request struct {
	Message string
	Context string
}

// Generator produces a response to a patient question. Implementations may
// call external models; callers must treat failure as recoverable and fall
// back to the deterministic TemplateGenerator.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// TemplateGenerator is the deterministic fallback generator: canned answers
// keyed by keywords in the question. It never fails, so it is the terminal
// link in any generation fallback chain.
type TemplateGenerator struct{}

// Generate returns the canned answer for the question's topic. Identical
// requests always produce identical responses.
func (TemplateGenerator) Generate(_ context.Context, req Request) (string, error) {
	msg := strings.ToLower(req.Message)

	switch {
	case strings.Contains(msg, "fever") && strings.Contains(msg, "cough"):
		return "Based on your medical history, I see you're experiencing mild fever and cough.\n\n" +
			"Analysis:\n" +
			"- No history of respiratory issues in your records\n" +
			"- Your immunity markers were normal in last test\n" +
			"- You're currently on Metformin for pre-diabetes\n\n" +
			"Recommendations:\n" +
			"1. Monitor temperature for 24 hours\n" +
			"2. Stay hydrated (8-10 glasses of water)\n" +
			"3. Rest adequately\n" +
			"4. Avoid sugar intake\n\n" +
			"⚠️ Consult doctor if:\n" +
			"- Fever >101°F or persists >3 days\n" +
			"- Difficulty breathing\n" +
			"- Severe chest pain", nil

	case strings.Contains(msg, "glucose") || strings.Contains(msg, "sugar") || strings.Contains(msg, "diabetes"):
		return "Regarding your blood sugar concerns:\n\n" +
			"From your medical history:\n" +
			"- Recent glucose levels show upward trend (95 → 110 → 128 mg/dL over 6 months)\n" +
			"- HbA1c: 5.9% (pre-diabetic range)\n" +
			"- Family history: Father has Type 2 Diabetes (onset age 45)\n" +
			"- You're age 44 (high-risk age)\n\n" +
			"Recommendations:\n" +
			"1. Continue current medication (Metformin)\n" +
			"2. Schedule HbA1c retest in 3 months\n" +
			"3. Maintain low-carb diet\n" +
			"4. Regular exercise (30 min daily)\n" +
			"5. Monitor fasting glucose weekly", nil

	case strings.Contains(msg, "medication") || strings.Contains(msg, "medicine"):
		return "Your current medications:\n\n" +
			"- Metformin 500mg (for blood sugar management)\n\n" +
			"Reminder: You have 3 days of medication remaining. Please refill soon.\n\n" +
			"Important: Take after meals to avoid stomach upset. Let me know if you experience any side effects.", nil

	case strings.Contains(msg, "appointment"):
		return "Based on your health profile, I recommend scheduling:\n\n" +
			"1. HbA1c test (due in 1 month)\n" +
			"2. Eye checkup (recommended for diabetes risk)\n\n" +
			"Would you like me to help book an appointment?", nil

	default:
		return fmt.Sprintf("I understand your concern about: %s\n\n"+
			"Based on your medical history, your overall health status is stable. "+
			"Your recent tests show normal ranges for most parameters.\n\n"+
			"If you have specific concerns, please describe your symptoms in detail, "+
			"or consult your doctor for personalized advice.", req.Message), nil
	}
}
