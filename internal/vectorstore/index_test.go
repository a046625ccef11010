package vectorstore_test

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// hashEmbedder produces deterministic word-sensitive unit vectors so tests
// get stable, meaningful rankings without a model download.
type hashEmbedder struct{}

func (hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	const dim = 384
	const slotSize = 16

	vec := make([]float32, dim)
	words := strings.Fields(strings.ToLower(text))
	key := text
	if len(words) > 0 {
		key = words[0]
	}

	h := fnv.New32a()
	h.Write([]byte(key))
	slot := int(h.Sum32()) % (dim / slotSize)
	if slot < 0 {
		slot = -slot
	}
	for i := 0; i < slotSize; i++ {
		vec[slot*slotSize+i] = 1
	}

	// Normalize to unit length (slotSize ones -> 1/sqrt(slotSize) each).
	norm := float32(4) // sqrt(16)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (e hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// failingEmbedder simulates an embedding backend outage.
type failingEmbedder struct{}

func (failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding backend unavailable")
}

func (failingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend unavailable")
}

func newTestIndex(t *testing.T, embedder vectorstore.Embedder) *vectorstore.Index {
	t.Helper()
	ix, err := vectorstore.New(vectorstore.Config{Path: t.TempDir()}, embedder, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestNew(t *testing.T) {
	t.Run("requires embedder", func(t *testing.T) {
		_, err := vectorstore.New(vectorstore.Config{Path: t.TempDir()}, nil, zap.NewNop())
		require.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
	})

	t.Run("applies defaults", func(t *testing.T) {
		ix := newTestIndex(t, hashEmbedder{})
		stats := ix.Stats(context.Background())
		assert.Equal(t, "medical_records", stats.Collection)
		assert.Equal(t, 0, stats.TotalDocuments)
	})
}

func TestAddValidation(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	_, err := ix.Add(ctx, "", "glucose 128 mg/dL", nil, "")
	require.ErrorIs(t, err, vectorstore.ErrInvalidPatientID)

	_, err = ix.Add(ctx, "PT-2026-AB12", "   ", nil, "")
	require.ErrorIs(t, err, vectorstore.ErrEmptyText)
}

func TestAddGeneratesScopedRecordID(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	id, err := ix.Add(ctx, "PT-2026-AB12", "glucose level 128 mg/dL", map[string]string{
		vectorstore.MetaType: "lab_report",
	}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "PT-2026-AB12_"))
	assert.Len(t, id, len("PT-2026-AB12_")+8)
}

func TestQueryPatientIsolation(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	_, err := ix.Add(ctx, "PT-2026-AB12", "glucose level 128 mg/dL fasting", map[string]string{
		vectorstore.MetaType: "lab_report",
	}, "")
	require.NoError(t, err)

	_, err = ix.Add(ctx, "PT-2026-CD34", "glucose level 95 mg/dL fasting", map[string]string{
		vectorstore.MetaType: "lab_report",
	}, "")
	require.NoError(t, err)

	results, err := ix.Query(ctx, "PT-2026-AB12", "glucose results", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "128")
	assert.Equal(t, "PT-2026-AB12", results[0].Metadata[vectorstore.MetaPatientID])
}

func TestQueryForcesPatientIDMetadata(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	// Caller-supplied patient_id metadata must not leak records across
	// patients.
	_, err := ix.Add(ctx, "PT-2026-AB12", "metformin 500mg twice daily", map[string]string{
		vectorstore.MetaPatientID: "PT-2026-CD34",
		vectorstore.MetaType:      "prescription",
	}, "")
	require.NoError(t, err)

	results, err := ix.Query(ctx, "PT-2026-CD34", "metformin prescription", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = ix.Query(ctx, "PT-2026-AB12", "metformin prescription", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestQueryValidation(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	_, err := ix.Query(ctx, "", "glucose", 5)
	require.ErrorIs(t, err, vectorstore.ErrInvalidPatientID)

	_, err = ix.Query(ctx, "PT-2026-AB12", "", 5)
	require.ErrorIs(t, err, vectorstore.ErrEmptyText)
}

func TestQueryEmptyIndex(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})

	results, err := ix.Query(context.Background(), "PT-2026-AB12", "glucose results", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryOrderedByDistance(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()
	pid := "PT-2026-AB12"

	for _, text := range []string{
		"glucose level 128 mg/dL fasting",
		"prescription metformin 500mg",
		"fever and persistent cough noted",
	} {
		_, err := ix.Add(ctx, pid, text, nil, "")
		require.NoError(t, err)
	}

	results, err := ix.Query(ctx, pid, "glucose trend over time", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Contains(t, results[0].Text, "glucose")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Distance, 0.0)
	}
}

func TestQueryRespectsK(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()
	pid := "PT-2026-AB12"

	for _, text := range []string{
		"glucose level 128 mg/dL",
		"glucose level 110 mg/dL",
		"glucose level 101 mg/dL",
	} {
		_, err := ix.Add(ctx, pid, text, nil, "")
		require.NoError(t, err)
	}

	results, err := ix.Query(ctx, pid, "glucose history", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestAddFamilyHistoryOverwrites(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()
	pid := "PT-2026-AB12"

	id1, err := ix.AddFamilyHistory(ctx, pid, patients.FamilyHistory{Father: "Diabetes"})
	require.NoError(t, err)

	id2, err := ix.AddFamilyHistory(ctx, pid, patients.FamilyHistory{Father: "Diabetes, Hypertension"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	records, err := ix.GetAll(ctx, pid, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Text, "Hypertension")
	assert.Equal(t, vectorstore.TypeFamilyHistory, records[0].Metadata[vectorstore.MetaType])
}

func TestAddFamilyHistorySerializesEmptyFieldsAsNone(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()
	pid := "PT-2026-AB12"

	_, err := ix.AddFamilyHistory(ctx, pid, patients.FamilyHistory{Mother: "Asthma"})
	require.NoError(t, err)

	records, err := ix.GetAll(ctx, pid, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Text, "Mother: Asthma")
	assert.Contains(t, records[0].Text, "Father: None")
}

func TestGetAll(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ix.Add(ctx, "PT-2026-AB12", "glucose reading entry", nil, "")
		require.NoError(t, err)
	}
	_, err := ix.Add(ctx, "PT-2026-CD34", "unrelated patient record", nil, "")
	require.NoError(t, err)

	records, err := ix.GetAll(ctx, "PT-2026-AB12", 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = ix.GetAll(ctx, "PT-2026-AB12", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDeleteAll(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()

	for _, text := range []string{"glucose 128", "metformin 500mg"} {
		_, err := ix.Add(ctx, "PT-2026-AB12", text, nil, "")
		require.NoError(t, err)
	}
	_, err := ix.AddFamilyHistory(ctx, "PT-2026-AB12", patients.FamilyHistory{Father: "Diabetes"})
	require.NoError(t, err)
	_, err = ix.Add(ctx, "PT-2026-CD34", "other patient record", nil, "")
	require.NoError(t, err)

	deleted, err := ix.DeleteAll(ctx, "PT-2026-AB12")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	records, err := ix.GetAll(ctx, "PT-2026-AB12", 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Other patients are untouched.
	records, err = ix.GetAll(ctx, "PT-2026-CD34", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeleteAllUnknownPatient(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})

	deleted, err := ix.DeleteAll(context.Background(), "PT-2026-ZZ99")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCategorize(t *testing.T) {
	ix := newTestIndex(t, hashEmbedder{})
	ctx := context.Background()
	pid := "PT-2026-AB12"

	add := func(text, docType string) {
		t.Helper()
		_, err := ix.Add(ctx, pid, text, map[string]string{vectorstore.MetaType: docType}, "")
		require.NoError(t, err)
	}
	add("glucose level 128 mg/dL", "lab_report")
	add("CBC within normal limits", "Lab Results")
	add("metformin 500mg twice daily", "prescription")
	add("visit summary notes", "clinical_note")
	_, err := ix.AddFamilyHistory(ctx, pid, patients.FamilyHistory{Father: "Diabetes"})
	require.NoError(t, err)

	cats, err := ix.Categorize(ctx, pid)
	require.NoError(t, err)
	assert.Len(t, cats.FamilyHistory, 1)
	assert.Len(t, cats.LabReports, 2)
	assert.Len(t, cats.Prescriptions, 1)
	assert.Len(t, cats.Other, 1)
	assert.Equal(t, 5, cats.Total())
}

func TestFailOpenOnEmbeddingFailure(t *testing.T) {
	ix := newTestIndex(t, failingEmbedder{})
	ctx := context.Background()

	// Add degrades to a logged no-op, not an error.
	id, err := ix.Add(ctx, "PT-2026-AB12", "glucose 128 mg/dL", nil, "")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// Nothing was indexed.
	records, err := ix.GetAll(ctx, "PT-2026-AB12", 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Query never surfaces backend failures.
	results, err := ix.Query(ctx, "PT-2026-AB12", "glucose", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddEmbeddingFailureLogsSentinel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ix, err := vectorstore.New(vectorstore.Config{Path: t.TempDir()}, failingEmbedder{}, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	_, err = ix.Add(context.Background(), "PT-2026-AB12", "glucose 128 mg/dL", nil, "")
	require.NoError(t, err)

	entries := logs.FilterMessage("embedding failed, record not indexed").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, logged, vectorstore.ErrEmbeddingFailed.Error())
}

func TestFailOpenOnQueryEmbeddingFailure(t *testing.T) {
	// Index documents with a working embedder, then query through an index
	// whose embedder has gone down, sharing the same storage path.
	path := t.TempDir()

	healthy, err := vectorstore.New(vectorstore.Config{Path: path}, hashEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	_, err = healthy.Add(context.Background(), "PT-2026-AB12", "glucose 128 mg/dL", nil, "")
	require.NoError(t, err)
	require.NoError(t, healthy.Close())

	degraded, err := vectorstore.New(vectorstore.Config{Path: path}, failingEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	defer degraded.Close()

	results, err := degraded.Query(context.Background(), "PT-2026-AB12", "glucose", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPersistence(t *testing.T) {
	path := t.TempDir()
	ctx := context.Background()

	ix, err := vectorstore.New(vectorstore.Config{Path: path}, hashEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	_, err = ix.Add(ctx, "PT-2026-AB12", "glucose 128 mg/dL fasting", nil, "")
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	reopened, err := vectorstore.New(vectorstore.Config{Path: path}, hashEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.GetAll(ctx, "PT-2026-AB12", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Text, "glucose")
}
