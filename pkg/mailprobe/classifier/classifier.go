package classifier

import (
	"fmt"
	"math"

	"github.com/mailprobe/mailprobe/pkg/mailprobe/internalerr"
)

// Labels recognized by the classifier. Any other label is rejected by Train.
const (
	LabelSpam = "spam"
	LabelHam  = "ham"
)

// Document is an ordered sequence of word tokens. Duplicates are
// meaningful: each occurrence counts once during training and contributes
// once per occurrence during scoring.
type Document []string

// model holds the full trained state. It is built in one pass by Train and
// never mutated afterwards, so concurrent Predict calls on a trained
// classifier are safe as long as no Train runs alongside them.
type model struct {
	spamDocs  int
	hamDocs   int
	totalDocs int

	pSpam float64
	pHam  float64

	spamWordCount map[string]int
	hamWordCount  map[string]int

	// vocabulary is the set of all distinct words seen in either class.
	// Scoring consults it before touching the probability maps, so words
	// outside it contribute nothing (the multiplicative identity, not 0).
	vocabulary map[string]struct{}

	pWordGivenSpam map[string]float64
	pWordGivenHam  map[string]float64
}

// Classifier is a binary naive Bayes spam/ham classifier over a
// bag-of-words representation. The zero value is untrained; Train must
// succeed before Predict can be used.
type Classifier struct {
	m *model
}

// New creates an untrained Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Trained reports whether a successful Train has run.
func (c *Classifier) Trained() bool {
	return c.m != nil
}

// Train estimates class priors and per-word conditional probabilities from
// a batch of labeled documents. It fully replaces any previously trained
// state on success and leaves it untouched on error.
//
// The conditional probability of a word given a class divides the word's
// occurrence count by the number of documents in that class (a
// presence-rate variant, not classical multinomial counts). With
// laplaceSmoothing the estimate becomes (count+1)/(classDocs+2), which is
// strictly inside (0,1) and makes log-domain scoring safe.
func (c *Classifier) Train(docs []Document, labels []string, laplaceSmoothing bool) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents", internalerr.ErrEmptyTrainingSet)
	}
	if len(docs) != len(labels) {
		return fmt.Errorf("%w: %d documents, %d labels", internalerr.ErrLengthMismatch, len(docs), len(labels))
	}

	m := &model{
		totalDocs:      len(docs),
		spamWordCount:  make(map[string]int),
		hamWordCount:   make(map[string]int),
		vocabulary:     make(map[string]struct{}),
		pWordGivenSpam: make(map[string]float64),
		pWordGivenHam:  make(map[string]float64),
	}

	for i, label := range labels {
		switch label {
		case LabelSpam:
			m.spamDocs++
		case LabelHam:
			m.hamDocs++
		default:
			return fmt.Errorf("%w: %q at index %d", internalerr.ErrUnknownLabel, label, i)
		}
	}

	// A class with zero documents makes the prior or the unsmoothed
	// conditionals divide by zero. Reject instead of producing NaN.
	if m.spamDocs == 0 || m.hamDocs == 0 {
		return fmt.Errorf("%w: %d spam, %d ham documents", internalerr.ErrDegenerateClass, m.spamDocs, m.hamDocs)
	}

	m.pSpam = float64(m.spamDocs) / float64(m.totalDocs)
	m.pHam = float64(m.hamDocs) / float64(m.totalDocs)

	for i, doc := range docs {
		counts := m.spamWordCount
		if labels[i] == LabelHam {
			counts = m.hamWordCount
		}
		for _, word := range doc {
			counts[word]++
		}
	}

	for word := range m.spamWordCount {
		m.vocabulary[word] = struct{}{}
	}
	for word := range m.hamWordCount {
		m.vocabulary[word] = struct{}{}
	}

	for word := range m.vocabulary {
		if laplaceSmoothing {
			m.pWordGivenSpam[word] = float64(m.spamWordCount[word]+1) / float64(m.spamDocs+2)
			m.pWordGivenHam[word] = float64(m.hamWordCount[word]+1) / float64(m.hamDocs+2)
		} else {
			m.pWordGivenSpam[word] = float64(m.spamWordCount[word]) / float64(m.spamDocs)
			m.pWordGivenHam[word] = float64(m.hamWordCount[word]) / float64(m.hamDocs)
		}
	}

	c.m = m
	return nil
}

// Predict classifies each document and returns one label per input, in
// order. Ties go to ham: a document is spam only when its spam score is
// strictly greater.
//
// With preventUnderflow the scores are sums of log probabilities instead
// of direct products, which keeps long documents from underflowing to 0.
// In that mode an unsmoothed conditional probability of exactly 0 has no
// logarithm; Predict fails with ErrZeroProbability rather than scoring
// with negative infinity.
func (c *Classifier) Predict(docs []Document, preventUnderflow bool) ([]string, error) {
	if c.m == nil {
		return nil, internalerr.ErrNotTrained
	}

	predicted := make([]string, 0, len(docs))
	for _, doc := range docs {
		var (
			label string
			err   error
		)
		if preventUnderflow {
			label, err = c.m.classifyLog(doc)
		} else {
			label = c.m.classifyDirect(doc)
		}
		if err != nil {
			return nil, err
		}
		predicted = append(predicted, label)
	}
	return predicted, nil
}

func (m *model) classifyDirect(doc Document) string {
	scoreSpam := m.pSpam
	scoreHam := m.pHam

	for _, word := range doc {
		if _, known := m.vocabulary[word]; !known {
			continue
		}
		scoreSpam *= m.pWordGivenSpam[word]
		scoreHam *= m.pWordGivenHam[word]
	}

	if scoreSpam > scoreHam {
		return LabelSpam
	}
	return LabelHam
}

func (m *model) classifyLog(doc Document) (string, error) {
	scoreSpam := math.Log(m.pSpam)
	scoreHam := math.Log(m.pHam)

	for _, word := range doc {
		if _, known := m.vocabulary[word]; !known {
			continue
		}
		pSpam := m.pWordGivenSpam[word]
		pHam := m.pWordGivenHam[word]
		if pSpam == 0 || pHam == 0 {
			return "", fmt.Errorf("%w: %q (train with Laplace smoothing for log-domain scoring)", internalerr.ErrZeroProbability, word)
		}
		scoreSpam += math.Log(pSpam)
		scoreHam += math.Log(pHam)
	}

	if scoreSpam > scoreHam {
		return LabelSpam, nil
	}
	return LabelHam, nil
}

// Accuracy returns the fraction of positions where truth and predicted
// agree, in [0,1].
func (c *Classifier) Accuracy(truth, predicted []string) (float64, error) {
	if len(truth) == 0 {
		return 0, fmt.Errorf("%w: no labels to compare", internalerr.ErrEmptyInput)
	}
	if len(truth) != len(predicted) {
		return 0, fmt.Errorf("%w: %d truth labels, %d predictions", internalerr.ErrLengthMismatch, len(truth), len(predicted))
	}

	correct := 0
	for i, want := range truth {
		if predicted[i] == want {
			correct++
		}
	}
	return float64(correct) / float64(len(truth)), nil
}

// String returns a diagnostic summary of the trained model.
func (c *Classifier) String() string {
	if c.m == nil {
		return "Classifier(untrained)"
	}
	return fmt.Sprintf(
		"Classifier(spam=%d ham=%d total=%d vocabulary=%d pSpam=%.4f pHam=%.4f)",
		c.m.spamDocs, c.m.hamDocs, c.m.totalDocs, len(c.m.vocabulary), c.m.pSpam, c.m.pHam,
	)
}
