// Package conversation keeps the per-patient chat history. Each exchange
// between a patient and the assistant is stored as a Turn with a
// patient-scoped sequential ID, so the chat layer can show prior context and
// the explanation layer can look up what was said for a given message.
package conversation

import (
	"errors"
	"time"
)

// ErrTurnNotFound is returned when a message ID has no recorded turn for the
// given patient.
var ErrTurnNotFound = errors.New("conversation turn not found")

// Turn is one user/assistant exchange.
type Turn struct {
	// ID is the zero-based position within a patient's history:
	// "msg_0", "msg_1", ...
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	UserMessage string    `json:"user_message"`
	Response    string    `json:"bot_response"`
	Timestamp   time.Time `json:"timestamp"`
}
