package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryConfidenceStore is an in-memory implementation of ConfidenceStore.
// Suitable for development and testing. Data is lost on restart.
type MemoryConfidenceStore struct {
	mu        sync.RWMutex
	snapshots map[string]ConfidenceSnapshot
	closed    bool
}

// NewMemoryConfidenceStore creates a new in-memory confidence store
func NewMemoryConfidenceStore() *MemoryConfidenceStore {
	return &MemoryConfidenceStore{snapshots: make(map[string]ConfidenceSnapshot)}
}

// Close closes the store
func (s *MemoryConfidenceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryConfidenceStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save stores a copy of the snapshot
func (s *MemoryConfidenceStore) Save(ctx context.Context, snapshot ConfidenceSnapshot) error {
	if snapshot.AgentID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}
	s.snapshots[snapshot.AgentID] = cloneSnapshot(snapshot)
	return nil
}

// Load returns the snapshot for an agent
func (s *MemoryConfidenceStore) Load(ctx context.Context, agentID string) (ConfidenceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ConfidenceSnapshot{}, ErrStoreClosed
	}
	snap, ok := s.snapshots[agentID]
	if !ok {
		return ConfidenceSnapshot{}, ErrNotFound
	}
	return cloneSnapshot(snap), nil
}

// LoadAll returns every snapshot sorted by agent ID
func (s *MemoryConfidenceStore) LoadAll(ctx context.Context) ([]ConfidenceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]ConfidenceSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, cloneSnapshot(snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func cloneSnapshot(s ConfidenceSnapshot) ConfidenceSnapshot {
	if s.Capabilities != nil {
		caps := make(map[string]float64, len(s.Capabilities))
		for k, v := range s.Capabilities {
			caps[k] = v
		}
		s.Capabilities = caps
	}
	return s
}

// MemoryOutcomeStore is an in-memory implementation of OutcomeStore.
type MemoryOutcomeStore struct {
	mu      sync.RWMutex
	records []OutcomeRecord
	closed  bool
}

// NewMemoryOutcomeStore creates a new in-memory outcome store
func NewMemoryOutcomeStore() *MemoryOutcomeStore {
	return &MemoryOutcomeStore{}
}

// Close closes the store
func (s *MemoryOutcomeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy
func (s *MemoryOutcomeStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Append appends a record
func (s *MemoryOutcomeStore) Append(ctx context.Context, record *OutcomeRecord) error {
	if record == nil || record.AgentID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.records = append(s.records, *record)
	return nil
}

// List returns the newest records first
func (s *MemoryOutcomeStore) List(ctx context.Context, agentID string, limit int) ([]OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []OutcomeRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if agentID != "" && r.AgentID != agentID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
