package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clinicd/internal/patients"
)

// tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("clinicd.vectorstore")

// Config holds configuration for the medical record index.
type Config struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/clinicd/vectorstore"
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the record collection name.
	// Default: "medical_records"
	Collection string

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension. Default: 384.
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/clinicd/vectorstore"
	}
	if c.Collection == "" {
		c.Collection = "medical_records"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// Index is the patient-partitioned medical record store backed by chromem-go.
//
// chromem-go keeps documents in memory and persists them to gob files under
// the configured path, so records survive process restarts without an
// external database service. Concurrent readers and writers are safe; the
// collection guards its document map internally.
type Index struct {
	db       *chromem.DB
	embedder Embedder
	config   Config
	path     string
	logger   *zap.Logger
}

// New creates an Index with the given configuration.
func New(config Config, embedder Embedder, logger *zap.Logger) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	expandedPath, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expandedPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	ix := &Index{
		db:       db,
		embedder: embedder,
		config:   config,
		path:     expandedPath,
		logger:   logger,
	}

	logger.Info("medical record index initialized",
		zap.String("path", expandedPath),
		zap.String("collection", config.Collection),
		zap.Int("vector_size", config.VectorSize),
	)

	return ix, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc adapts the Embedder to chromem's callback signature.
// chromem uses it for query-time embedding.
func (ix *Index) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return ix.embedder.EmbedQuery(ctx, text)
	}
}

func (ix *Index) collection(ctx context.Context) (*chromem.Collection, error) {
	collection, err := ix.db.GetOrCreateCollection(ix.config.Collection, nil, ix.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", ix.config.Collection, err)
	}
	return collection, nil
}

// NewRecordID generates a record identifier scoped to a patient:
// "<patientID>_<8 hex chars>".
func NewRecordID(patientID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s", patientID, suffix)
}

// FamilyHistoryRecordID returns the fixed record ID for a patient's family
// history document. The ID is deterministic so repeated uploads replace the
// record instead of duplicating it.
func FamilyHistoryRecordID(patientID string) string {
	return fmt.Sprintf("%s_%s", patientID, TypeFamilyHistory)
}

// Add inserts a medical record for a patient and returns its record ID.
//
// If recordID is empty a new one is generated. The metadata patient_id key is
// force-set from the patientID argument regardless of caller input, which is
// what guarantees the tenant isolation invariant. Embedding failure degrades
// to a logged no-op rather than an error, per the fail-open retrieval policy;
// the returned ID is still valid for retry.
func (ix *Index) Add(ctx context.Context, patientID, text string, metadata map[string]string, recordID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Index.Add")
	defer span.End()

	if strings.TrimSpace(patientID) == "" {
		return "", fmt.Errorf("%w: patient ID is required", ErrInvalidPatientID)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document text is required", ErrEmptyText)
	}

	if recordID == "" {
		recordID = NewRecordID(patientID)
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetaPatientID] = patientID

	span.SetAttributes(
		attribute.String("patient_id", patientID),
		attribute.String("record_id", recordID),
	)

	collection, err := ix.collection(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	embeddings, err := ix.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		span.RecordError(err)
		ix.logger.Warn("embedding failed, record not indexed",
			zap.String("patient_id", patientID),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
		return recordID, nil
	}

	doc := chromem.Document{
		ID:        recordID,
		Content:   text,
		Metadata:  meta,
		Embedding: embeddings[0],
	}
	// Concurrency of 1 since the embedding is already computed.
	if err := collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("adding record %s: %w", recordID, err)
	}

	span.SetStatus(codes.Ok, "success")
	ix.logger.Debug("added medical record",
		zap.String("patient_id", patientID),
		zap.String("record_id", recordID),
		zap.String("type", meta[MetaType]),
	)

	return recordID, nil
}

// AddFamilyHistory stores the patient's family history as a single record
// with a fixed ID, serialized to prose for embedding. Re-adding overwrites
// the previous record, so each patient has at most one family history entry.
func (ix *Index) AddFamilyHistory(ctx context.Context, patientID string, fh patients.FamilyHistory) (string, error) {
	text := fmt.Sprintf(
		"Family Medical History for %s:\nFather: %s\nMother: %s\nSiblings: %s\nFamily Diseases: %s\nAdditional: %s\n",
		patientID,
		valueOrNone(fh.Father),
		valueOrNone(fh.Mother),
		valueOrNone(fh.Siblings),
		valueOrNone(fh.FamilyDiseases),
		valueOrNone(fh.Additional),
	)

	metadata := map[string]string{
		MetaType: TypeFamilyHistory,
		MetaDate: "N/A",
	}

	return ix.Add(ctx, patientID, text, metadata, FamilyHistoryRecordID(patientID))
}

func valueOrNone(v string) string {
	if v == "" {
		return "None"
	}
	return v
}

// Query performs semantic search over one patient's records.
//
// Results are filtered to the given patient, sorted ascending by distance
// (best match first), and capped at k. Backend or embedder failures are
// recovered internally: the method logs a warning and returns an empty list,
// never an error, so downstream consumers degrade to reduced context instead
// of failing the request. The only errors returned are input validation
// failures, reported before any index access.
func (ix *Index) Query(ctx context.Context, patientID, queryText string, k int) ([]RetrievedRecord, error) {
	ctx, span := tracer.Start(ctx, "Index.Query")
	defer span.End()

	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patient ID is required", ErrInvalidPatientID)
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrEmptyText)
	}
	if k <= 0 {
		k = 5
	}

	span.SetAttributes(
		attribute.String("patient_id", patientID),
		attribute.Int("k", k),
	)

	results := ix.filteredQuery(ctx, patientID, queryText, k)

	records := make([]RetrievedRecord, len(results))
	for i, r := range results {
		records[i] = RetrievedRecord{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: r.Metadata,
			Distance: distanceFromSimilarity(r.Similarity),
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Distance < records[j].Distance
	})
	if len(records) > k {
		records = records[:k]
	}

	span.SetAttributes(attribute.Int("results", len(records)))
	span.SetStatus(codes.Ok, "success")
	return records, nil
}

// GetAll returns up to limit records for a patient without ranking; Distance
// is left zero. A limit <= 0 fetches everything. Like Query, backend
// failures degrade to an empty list.
func (ix *Index) GetAll(ctx context.Context, patientID string, limit int) ([]RetrievedRecord, error) {
	ctx, span := tracer.Start(ctx, "Index.GetAll")
	defer span.End()

	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patient ID is required", ErrInvalidPatientID)
	}

	span.SetAttributes(attribute.String("patient_id", patientID))

	// The patient ID doubles as the bulk-fetch query text; ranking is
	// irrelevant here, the where filter does the real work.
	results := ix.filteredQuery(ctx, patientID, patientID, limit)

	records := make([]RetrievedRecord, len(results))
	for i, r := range results {
		records[i] = RetrievedRecord{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: r.Metadata,
		}
	}

	span.SetAttributes(attribute.Int("results", len(records)))
	span.SetStatus(codes.Ok, "success")
	return records, nil
}

// filteredQuery runs a patient-filtered chromem query with fail-open error
// handling. A limit <= 0 or beyond the collection size is clamped to the
// collection size (chromem requires nResults <= document count).
func (ix *Index) filteredQuery(ctx context.Context, patientID, queryText string, limit int) []chromem.Result {
	collection, err := ix.collection(ctx)
	if err != nil {
		ix.logger.Warn("record collection unavailable",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return nil
	}

	docCount := collection.Count()
	if docCount == 0 {
		return nil
	}
	if limit <= 0 || limit > docCount {
		limit = docCount
	}

	where := map[string]string{MetaPatientID: patientID}
	results, err := collection.Query(ctx, queryText, limit, where, nil)
	if err != nil {
		ix.logger.Warn("record query failed, returning empty result set",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return nil
	}
	return results
}

// DeleteAll removes every record belonging to a patient (family history
// included) and returns the number removed. An unknown patient yields 0.
func (ix *Index) DeleteAll(ctx context.Context, patientID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Index.DeleteAll")
	defer span.End()

	if strings.TrimSpace(patientID) == "" {
		return 0, fmt.Errorf("%w: patient ID is required", ErrInvalidPatientID)
	}

	span.SetAttributes(attribute.String("patient_id", patientID))

	records, err := ix.GetAll(ctx, patientID, 0)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	collection, err := ix.collection(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := collection.Delete(ctx, nil, nil, ids...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("deleting records for %s: %w", patientID, err)
	}

	span.SetAttributes(attribute.Int("deleted", len(ids)))
	span.SetStatus(codes.Ok, "success")
	ix.logger.Info("deleted patient records",
		zap.String("patient_id", patientID),
		zap.Int("count", len(ids)),
	)

	return len(ids), nil
}

// Categorize partitions a patient's records into summary buckets by document
// type.
func (ix *Index) Categorize(ctx context.Context, patientID string) (Categorized, error) {
	records, err := ix.GetAll(ctx, patientID, 100)
	if err != nil {
		return Categorized{}, err
	}

	var out Categorized
	for _, r := range records {
		docType := r.Metadata[MetaType]
		switch {
		case docType == TypeFamilyHistory:
			out.FamilyHistory = append(out.FamilyHistory, r)
		case strings.Contains(strings.ToLower(docType), "lab"):
			out.LabReports = append(out.LabReports, r)
		case strings.Contains(strings.ToLower(docType), "prescription"):
			out.Prescriptions = append(out.Prescriptions, r)
		default:
			out.Other = append(out.Other, r)
		}
	}
	return out, nil
}

// Stats reports the total document count for observability.
func (ix *Index) Stats(ctx context.Context) Stats {
	stats := Stats{
		Collection: ix.config.Collection,
		Path:       ix.path,
	}
	if collection, err := ix.collection(ctx); err == nil {
		stats.TotalDocuments = collection.Count()
	}
	return stats
}

// Close closes the index. chromem persists automatically, so this only logs.
func (ix *Index) Close() error {
	ix.logger.Info("medical record index closed")
	return nil
}

// distanceFromSimilarity converts chromem's cosine similarity (higher is
// closer, at most 1 for normalized vectors) into the non-negative distance
// the scoring layer expects (lower is closer).
func distanceFromSimilarity(similarity float32) float64 {
	d := 1.0 - float64(similarity)
	if d < 0 {
		return 0
	}
	return d
}
