package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for index operations. Validation errors are checked before
// any index access and reported synchronously.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPatientID indicates a missing or malformed patient identifier.
	ErrInvalidPatientID = errors.New("invalid patient ID")

	// ErrEmptyText indicates an empty document or query text.
	ErrEmptyText = errors.New("empty text")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Embedder generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic
// meaning, enabling similarity search. Implementations live in the
// embeddings package.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Metadata keys the index reads or writes.
const (
	// MetaPatientID tags every record with its owning patient. The index
	// force-sets this key on insert; caller-supplied values are overwritten.
	MetaPatientID = "patient_id"

	// MetaType is the document type ("lab_report", "prescription",
	// "family_history", ...). Free-form except for the family history value.
	MetaType = "type"

	// MetaDate is the document's own date, as extracted from its content.
	MetaDate = "date"

	// MetaUploadDate is when the record entered the index.
	MetaUploadDate = "upload_date"
)

// TypeFamilyHistory is the reserved document type for the per-patient family
// history record. Exactly one such record exists per patient; re-adding it
// overwrites the previous one.
const TypeFamilyHistory = "family_history"

// RetrievedRecord is a query-time projection of a stored medical record.
//
// Distance is a non-negative dissimilarity (lower = more similar), defined as
// 1 - cosine similarity of the normalized embeddings. It is only meaningful
// on Query results; bulk fetches leave it zero.
type RetrievedRecord struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance,omitempty"`
}

// Categorized partitions a patient's records by document type.
//
// Bucketing rules, first match wins: exact type "family_history", then
// case-insensitive substring "lab", then case-insensitive substring
// "prescription", then everything else.
type Categorized struct {
	FamilyHistory []RetrievedRecord `json:"family_history"`
	LabReports    []RetrievedRecord `json:"lab_reports"`
	Prescriptions []RetrievedRecord `json:"prescriptions"`
	Other         []RetrievedRecord `json:"other_documents"`
}

// Total returns the number of records across all buckets.
func (c Categorized) Total() int {
	return len(c.FamilyHistory) + len(c.LabReports) + len(c.Prescriptions) + len(c.Other)
}

// Stats reports index-level counters for observability.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	Collection     string `json:"collection_name"`
	Path           string `json:"persist_directory"`
}
