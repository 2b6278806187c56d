package store

import (
	"context"
	"time"
)

// Store is the main interface for persisting and querying the labeled
// training corpus. The trained model itself is never stored; training
// always recomputes it from the messages kept here.
type Store interface {
	Close() error

	// Messages
	UpsertMessage(ctx context.Context, m Message) error
	GetMessage(ctx context.Context, id string) (Message, bool, error)
	ListMessages(ctx context.Context, label string, limit int) ([]Message, error)
	DeleteMessage(ctx context.Context, id string) error

	// Aggregates
	CountByLabel(ctx context.Context, label string) (int64, error)

	// TrainingSet returns every stored message as a parallel pair of
	// token sequences and labels, in insertion order. Token order and
	// multiplicity are preserved exactly as ingested.
	TrainingSet(ctx context.Context) ([][]string, []string, error)
}

// Message is a stored, already-tokenized email with its label.
type Message struct {
	ID         string
	Label      string // "spam" or "ham"
	Tokens     []string
	ReceivedAt time.Time
}
