package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HukkaMehu/LePetPal/internal/domain"
)

func TestInMemoryStore_CreateGet(t *testing.T) {
	s := NewInMemoryStore(nil)
	id := NewRequestID()
	s.Create(id, domain.NewQueuedStatus("accepted"))

	got, ok := s.Get(id)
	assert.True(t, ok)
	assert.Equal(t, domain.StateQueued, got.State)
}

func TestInMemoryStore_GetUnknownID(t *testing.T) {
	s := NewInMemoryStore(nil)
	_, ok := s.Get(domain.RequestID("deadbeef"))
	assert.False(t, ok)
}

func TestInMemoryStore_UpdateIgnoredWhenAbsent(t *testing.T) {
	s := NewInMemoryStore(nil)
	ok := s.Update(domain.RequestID("missing"), domain.Patch{State: domain.StateExecuting})
	assert.False(t, ok)
}

func TestInMemoryStore_UpdateIgnoredWhenTerminal(t *testing.T) {
	s := NewInMemoryStore(nil)
	id := NewRequestID()
	s.Create(id, domain.NewQueuedStatus(""))
	s.Update(id, domain.Patch{State: domain.StateFailed, Message: "safety check failed"})

	ok := s.Update(id, domain.Patch{State: domain.StateSucceeded})
	assert.False(t, ok)

	got, _ := s.Get(id)
	assert.Equal(t, domain.StateFailed, got.State)
}

func TestInMemoryStore_GetReturnsSnapshotCopy(t *testing.T) {
	s := NewInMemoryStore(nil)
	id := NewRequestID()
	s.Create(id, domain.NewQueuedStatus(""))

	snapshot, _ := s.Get(id)
	snapshot.Message = "mutated locally"

	got, _ := s.Get(id)
	assert.Empty(t, got.Message, "mutating a returned snapshot must not affect the stored record")
}

func TestNewRequestID_Unique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, string(a))
}
