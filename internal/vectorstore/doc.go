// Package vectorstore provides the patient-partitioned semantic record index.
//
// Records are embedded and stored in chromem-go, an embeddable vector
// database with automatic persistence to disk. Every record carries a
// patient_id metadata tag that is force-set on insert and filtered on every
// read, so a query for one patient can never return another patient's
// records regardless of what metadata the caller supplied.
//
// Retrieval is fail-open: backend or embedder failures during a query degrade
// to an empty result set with a logged warning instead of an error, so a
// retrieval outage reduces answer quality rather than availability.
package vectorstore
