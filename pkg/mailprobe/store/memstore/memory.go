package memstore

import (
	"context"
	"sync"

	"github.com/mailprobe/mailprobe/pkg/mailprobe/store"
)

// Store is an in-memory implementation of store.Store for tests and
// small corpora.
type Store struct {
	mu       sync.RWMutex
	messages map[string]store.Message
	order    []string // insertion order of message IDs
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		messages: make(map[string]store.Message),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertMessage inserts or updates a message, keyed by ID.
func (s *Store) UpsertMessage(ctx context.Context, m store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		return nil
	}

	if _, ok := s.messages[m.ID]; !ok {
		s.order = append(s.order, m.ID)
	}
	s.messages[m.ID] = copyMessage(m)
	return nil
}

// GetMessage returns a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (store.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.messages[id]; ok {
		return copyMessage(m), true, nil
	}
	return store.Message{}, false, nil
}

// ListMessages returns messages with the given label in insertion order.
// An empty label matches every message.
func (s *Store) ListMessages(ctx context.Context, label string, limit int) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var results []store.Message
	for _, id := range s.order {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		if label != "" && m.Label != label {
			continue
		}
		results = append(results, copyMessage(m))
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// DeleteMessage removes a message by ID. Unknown IDs are a no-op.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return nil
	}
	delete(s.messages, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// CountByLabel returns the number of stored messages with the given label.
func (s *Store) CountByLabel(ctx context.Context, label string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, m := range s.messages {
		if m.Label == label {
			count++
		}
	}
	return count, nil
}

// TrainingSet returns all stored documents and labels in insertion order.
func (s *Store) TrainingSet(ctx context.Context) ([][]string, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([][]string, 0, len(s.order))
	labels := make([]string, 0, len(s.order))
	for _, id := range s.order {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		tokens := make([]string, len(m.Tokens))
		copy(tokens, m.Tokens)
		docs = append(docs, tokens)
		labels = append(labels, m.Label)
	}
	return docs, labels, nil
}

func copyMessage(m store.Message) store.Message {
	out := m
	out.Tokens = make([]string, len(m.Tokens))
	copy(out.Tokens, m.Tokens)
	return out
}
