package patients

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a patient ID is not present in the registry.
var ErrNotFound = errors.New("patient not found")

// Repository is the patient registry abstraction.
//
// Implementations must be safe for concurrent use. The retrieval and
// explanation core only reads through Get and Exists; Put and Delete belong
// to the upload path.
type Repository interface {
	// Get returns the profile for a patient, or ErrNotFound.
	Get(patientID string) (*Profile, error)

	// Put stores or replaces a profile, keyed by profile.PatientID.
	Put(profile *Profile) error

	// Exists reports whether the patient is registered.
	Exists(patientID string) bool

	// Delete removes a patient's profile. Returns ErrNotFound if absent.
	Delete(patientID string) error

	// List returns all registered patient IDs in sorted order.
	List() []string
}

// MemoryRepository is an in-memory Repository guarded by a RWMutex.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMemoryRepository creates an empty in-memory registry.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// Get returns a copy of the stored profile so callers cannot mutate registry
// state through the returned pointer.
func (r *MemoryRepository) Get(patientID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *profile
	clone.UploadedDocuments = append([]DocumentInfo(nil), profile.UploadedDocuments...)
	return &clone, nil
}

// Put stores or replaces a profile.
func (r *MemoryRepository) Put(profile *Profile) error {
	if profile == nil || profile.PatientID == "" {
		return errors.New("profile requires a patient ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *profile
	clone.UploadedDocuments = append([]DocumentInfo(nil), profile.UploadedDocuments...)
	r.profiles[profile.PatientID] = &clone
	return nil
}

// Exists reports whether the patient is registered.
func (r *MemoryRepository) Exists(patientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.profiles[patientID]
	return ok
}

// Delete removes a patient's profile.
func (r *MemoryRepository) Delete(patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[patientID]; !ok {
		return ErrNotFound
	}
	delete(r.profiles, patientID)
	return nil
}

// List returns all registered patient IDs in sorted order.
func (r *MemoryRepository) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ensure MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)
