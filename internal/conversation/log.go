package conversation

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Log is an in-memory, concurrency-safe conversation history keyed by
// patient. Turn IDs restart at msg_0 for each patient and never repeat
// within one, even under concurrent appends.
type Log struct {
	mu     sync.RWMutex
	turns  map[string][]Turn
	logger *zap.Logger
}

// NewLog creates an empty conversation log.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		turns:  make(map[string][]Turn),
		logger: logger,
	}
}

// Append records an exchange for a patient and returns the stored turn with
// its assigned message ID. The ID is the turn's zero-based position in the
// patient's history, so the first turn is msg_0.
func (l *Log) Append(patientID, userMessage, response string) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	turn := Turn{
		ID:          fmt.Sprintf("msg_%d", len(l.turns[patientID])),
		PatientID:   patientID,
		UserMessage: userMessage,
		Response:    response,
		Timestamp:   timeNow().UTC(),
	}
	l.turns[patientID] = append(l.turns[patientID], turn)

	l.logger.Debug("recorded conversation turn",
		zap.String("patient_id", patientID),
		zap.String("message_id", turn.ID),
	)
	return turn
}

// History returns all turns for a patient in append order. Unknown patients
// get an empty slice. The result is a copy; mutating it does not affect the
// log.
func (l *Log) History(patientID string) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	turns := l.turns[patientID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Turn looks up one exchange by its message ID.
func (l *Log) Turn(patientID, messageID string) (Turn, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, t := range l.turns[patientID] {
		if t.ID == messageID {
			return t, nil
		}
	}
	return Turn{}, fmt.Errorf("%w: %s for patient %s", ErrTurnNotFound, messageID, patientID)
}

// Len reports how many turns a patient has.
func (l *Log) Len(patientID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns[patientID])
}

// Clear drops a patient's history, e.g. when the patient is deleted.
func (l *Log) Clear(patientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.turns, patientID)
}
