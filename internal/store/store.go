// Package store implements the RequestStore contract of spec.md §4.F: a
// thread-safe mapping from RequestId to Status, with create/update/get.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/HukkaMehu/LePetPal/internal/domain"
	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// RequestStore is the surface CommandManager and the façade's status
// handler depend on. Get returns a deep-copied snapshot — the pointer
// fields of domain.Status are copied along with the struct, so the caller
// cannot mutate the live record (spec.md §4.F).
type RequestStore interface {
	Create(id domain.RequestID, initial domain.Status)
	Update(id domain.RequestID, patch domain.Patch) bool
	Get(id domain.RequestID) (domain.Status, bool)
}

// NewRequestID mints an opaque, globally unique, printable handle
// (spec.md §3).
func NewRequestID() domain.RequestID {
	return domain.RequestID(uuid.New().String())
}

// InMemoryStore is the reference RequestStore: a mutex-guarded map, the
// same shape as core.MemoryStore but keyed by RequestID and valued by
// domain.Status rather than a TTL'd string cache — this store has no
// eviction (spec.md §4.F: "Eviction policy is unspecified; a reference
// implementation may keep all entries").
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[domain.RequestID]domain.Status
	logger platform.Logger
}

// NewInMemoryStore builds an empty store.
func NewInMemoryStore(logger platform.Logger) *InMemoryStore {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	return &InMemoryStore{byID: make(map[domain.RequestID]domain.Status), logger: logger}
}

// Create inserts a new Status, overwriting any previous entry under id
// (callers mint fresh ids per admission, so collisions are not expected
// in practice).
func (s *InMemoryStore) Create(id domain.RequestID, initial domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = initial
	s.logger.Debug("status created", map[string]interface{}{"request_id": string(id), "state": string(initial.State)})
}

// Update applies patch under the store's lock, silently ignoring ids that
// are absent or already terminal (spec.md §4.F).
func (s *InMemoryStore) Update(id domain.RequestID, patch domain.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return false
	}
	next, ok := cur.Merge(patch)
	if !ok {
		return false
	}
	s.byID[id] = next
	return true
}

// Get returns a snapshot copy of the Status for id.
func (s *InMemoryStore) Get(id domain.RequestID) (domain.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[id]
	if st.Phase != nil {
		st.Phase = domain.StrPtr(*st.Phase)
	}
	if st.Confidence != nil {
		st.Confidence = domain.F64Ptr(*st.Confidence)
	}
	if st.DurationMs != nil {
		st.DurationMs = domain.I64Ptr(*st.DurationMs)
	}
	return st, ok
}
