package mailprobe

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mailprobe/mailprobe/pkg/mailprobe/classifier"
	"github.com/mailprobe/mailprobe/pkg/mailprobe/config"
	"github.com/mailprobe/mailprobe/pkg/mailprobe/internalerr"
	"github.com/mailprobe/mailprobe/pkg/mailprobe/store"
	"github.com/mailprobe/mailprobe/pkg/mailprobe/store/memstore"
	"github.com/mailprobe/mailprobe/pkg/mailprobe/store/sqlite"
)

// Engine is the main spam classification facade. It owns the labeled
// corpus store and the naive Bayes classifier trained from it.
type Engine struct {
	store store.Store
	cls   *classifier.Classifier

	laplaceSmoothing bool
	preventUnderflow bool

	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine instance
type Options struct {
	// Store holds the labeled training corpus. Defaults to an in-memory
	// store when nil.
	Store store.Store

	// LaplaceSmoothing applies add-one smoothing during training.
	LaplaceSmoothing bool

	// PreventUnderflow scores documents in the log domain.
	PreventUnderflow bool
}

// New creates an Engine with the given options
func New(opts Options) *Engine {
	st := opts.Store
	if st == nil {
		st = memstore.New()
	}
	return &Engine{
		store:            st,
		cls:              classifier.New(),
		laplaceSmoothing: opts.LaplaceSmoothing,
		preventUnderflow: opts.PreventUnderflow,
		entropy:          ulid.Monotonic(rand.Reader, 0),
	}
}

// FromConfig creates an Engine from a loaded configuration, opening the
// SQLite corpus store when a path is configured.
func FromConfig(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var st store.Store
	if cfg.Store.Path != "" {
		opened, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open corpus store: %w", err)
		}
		st = opened
	}

	return New(Options{
		Store:            st,
		LaplaceSmoothing: cfg.Training.LaplaceSmoothing,
		PreventUnderflow: cfg.Prediction.PreventUnderflow,
	}), nil
}

// Close cleanly shuts down the Engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// Ingest stores one labeled, already-tokenized message in the corpus and
// returns its minted ID. The trained model is not updated; call Train to
// recompute it over the grown corpus.
func (e *Engine) Ingest(ctx context.Context, label string, tokens []string) (string, error) {
	if label != classifier.LabelSpam && label != classifier.LabelHam {
		return "", fmt.Errorf("%w: %q", internalerr.ErrUnknownLabel, label)
	}

	id := ulid.MustNew(ulid.Now(), e.entropy).String()
	m := store.Message{
		ID:         id,
		Label:      label,
		Tokens:     tokens,
		ReceivedAt: time.Now(),
	}
	if err := e.store.UpsertMessage(ctx, m); err != nil {
		return "", fmt.Errorf("store message: %w", err)
	}
	return id, nil
}

// IngestCorpus stores every message of a seed corpus
func (e *Engine) IngestCorpus(ctx context.Context, corpus *config.Corpus) error {
	for i, m := range corpus.Messages {
		if _, err := e.Ingest(ctx, m.Label, m.Tokens); err != nil {
			return fmt.Errorf("corpus entry %d: %w", i, err)
		}
	}
	return nil
}

// Train estimates the classifier from the full stored corpus
func (e *Engine) Train(ctx context.Context) error {
	rawDocs, labels, err := e.store.TrainingSet(ctx)
	if err != nil {
		return fmt.Errorf("load training set: %w", err)
	}

	docs := make([]classifier.Document, len(rawDocs))
	for i, tokens := range rawDocs {
		docs[i] = classifier.Document(tokens)
	}

	return e.cls.Train(docs, labels, e.laplaceSmoothing)
}

// Classify predicts a label for each document, in order
func (e *Engine) Classify(ctx context.Context, docs []classifier.Document) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.cls.Predict(docs, e.preventUnderflow)
}

// Evaluation holds the outcome of scoring a labeled holdout set
type Evaluation struct {
	Predicted []string
	Accuracy  float64
}

// Evaluate classifies a labeled holdout set and reports accuracy
func (e *Engine) Evaluate(ctx context.Context, docs []classifier.Document, truth []string) (Evaluation, error) {
	predicted, err := e.Classify(ctx, docs)
	if err != nil {
		return Evaluation{}, err
	}

	accuracy, err := e.cls.Accuracy(truth, predicted)
	if err != nil {
		return Evaluation{}, err
	}

	return Evaluation{Predicted: predicted, Accuracy: accuracy}, nil
}

// Stats returns the classifier's diagnostic summary
func (e *Engine) Stats() string {
	return e.cls.String()
}
