package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mailprobe/mailprobe/pkg/mailprobe/classifier"
	"github.com/mailprobe/mailprobe/pkg/mailprobe/internalerr"
)

// Config represents the engine configuration
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Training   TrainingConfig   `yaml:"training"`
	Prediction PredictionConfig `yaml:"prediction"`
}

// StoreConfig configures corpus persistence. An empty path selects the
// in-memory store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TrainingConfig configures how the model is estimated
type TrainingConfig struct {
	LaplaceSmoothing bool `yaml:"laplace_smoothing"`
}

// PredictionConfig configures how documents are scored
type PredictionConfig struct {
	PreventUnderflow bool `yaml:"prevent_underflow"`
}

// Default returns the default engine configuration: in-memory store,
// smoothed training, log-domain scoring.
func Default() *Config {
	return &Config{
		Training:   TrainingConfig{LaplaceSmoothing: true},
		Prediction: PredictionConfig{PreventUnderflow: true},
	}
}

// Load reads an engine configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for contradictions. Scoring in the
// log domain without smoothing is allowed but fails at predict time the
// moment a zero probability shows up, so it is rejected here instead.
func (c *Config) Validate() error {
	if c.Prediction.PreventUnderflow && !c.Training.LaplaceSmoothing {
		return fmt.Errorf("%w: prevent_underflow requires laplace_smoothing", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Corpus represents a seed training corpus loaded from YAML
type Corpus struct {
	Messages []CorpusMessage `yaml:"messages"`
}

// CorpusMessage is one labeled, pre-tokenized document in a seed corpus
type CorpusMessage struct {
	Label  string   `yaml:"label"`
	Tokens []string `yaml:"tokens"`
}

// LoadCorpus loads a seed corpus from a YAML file. Every entry must carry
// one of the two recognized labels.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	for i, m := range corpus.Messages {
		if m.Label != classifier.LabelSpam && m.Label != classifier.LabelHam {
			return nil, fmt.Errorf("%w: %q at corpus entry %d", internalerr.ErrUnknownLabel, m.Label, i)
		}
	}

	return &corpus, nil
}
