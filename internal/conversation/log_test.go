package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppendAssignsSequentialIDs(t *testing.T) {
	log := NewLog(zap.NewNop())

	t1 := log.Append("PT-2026-AB12", "What do my lab results show?", "Your glucose is elevated.")
	t2 := log.Append("PT-2026-AB12", "Should I be worried?", "Discuss with your doctor.")

	assert.Equal(t, "msg_0", t1.ID)
	assert.Equal(t, "msg_1", t2.ID)
	assert.False(t, t1.Timestamp.IsZero())
}

func TestIDsArePerPatient(t *testing.T) {
	log := NewLog(zap.NewNop())

	a := log.Append("PT-2026-AB12", "hello", "hi")
	b := log.Append("PT-2026-CD34", "hello", "hi")

	assert.Equal(t, "msg_0", a.ID)
	assert.Equal(t, "msg_0", b.ID)
	assert.Equal(t, 1, log.Len("PT-2026-AB12"))
	assert.Equal(t, 1, log.Len("PT-2026-CD34"))
}

func TestHistoryReturnsCopyInOrder(t *testing.T) {
	log := NewLog(zap.NewNop())
	for i := 0; i < 3; i++ {
		log.Append("PT-2026-AB12", fmt.Sprintf("question %d", i), "answer")
	}

	history := log.History("PT-2026-AB12")
	require.Len(t, history, 3)
	assert.Equal(t, "msg_0", history[0].ID)
	assert.Equal(t, "msg_2", history[2].ID)

	history[0].UserMessage = "mutated"
	assert.Equal(t, "question 0", log.History("PT-2026-AB12")[0].UserMessage)
}

func TestHistoryUnknownPatient(t *testing.T) {
	log := NewLog(zap.NewNop())
	assert.Empty(t, log.History("PT-2026-ZZ99"))
}

func TestTurnLookup(t *testing.T) {
	log := NewLog(zap.NewNop())
	log.Append("PT-2026-AB12", "first", "one")
	log.Append("PT-2026-AB12", "second", "two")

	turn, err := log.Turn("PT-2026-AB12", "msg_1")
	require.NoError(t, err)
	assert.Equal(t, "second", turn.UserMessage)

	_, err = log.Turn("PT-2026-AB12", "msg_9")
	require.ErrorIs(t, err, ErrTurnNotFound)

	// IDs are scoped per patient.
	_, err = log.Turn("PT-2026-CD34", "msg_0")
	require.ErrorIs(t, err, ErrTurnNotFound)
}

func TestClear(t *testing.T) {
	log := NewLog(zap.NewNop())
	log.Append("PT-2026-AB12", "q", "a")
	log.Clear("PT-2026-AB12")

	assert.Zero(t, log.Len("PT-2026-AB12"))
	next := log.Append("PT-2026-AB12", "q", "a")
	assert.Equal(t, "msg_0", next.ID)
}

func TestConcurrentAppendsGetUniqueIDs(t *testing.T) {
	log := NewLog(zap.NewNop())

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append("PT-2026-AB12", "concurrent question", "answer")
		}()
	}
	wg.Wait()

	history := log.History("PT-2026-AB12")
	require.Len(t, history, n)

	seen := make(map[string]bool, n)
	for _, turn := range history {
		assert.False(t, seen[turn.ID], "duplicate ID %s", turn.ID)
		seen[turn.ID] = true
	}
}
