package train

import (
	"fmt"
	"math/rand/v2"

	"github.com/samcharles93/lbl/internal/corpus"
	"github.com/samcharles93/lbl/internal/dataset"
	"github.com/samcharles93/lbl/internal/lbl"
	"github.com/samcharles93/lbl/internal/logger"
	"github.com/samcharles93/lbl/internal/tensor"
	"github.com/samcharles93/lbl/internal/vocab"
)

// Session is everything built from the corpora before training starts.
type Session struct {
	Config     Config
	Seed       int64
	Dictionary *vocab.Dictionary
	Model      *lbl.Model
	Data       Data
}

// Prepare builds the vocabulary from the training corpus, generates the
// instances of all three corpora and initialises a model. The dev and test
// corpora never add words to the vocabulary.
func Prepare(cfg Config, trainCorpus, devCorpus, testCorpus corpus.Corpus, log logger.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	seed := rand.Int64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	dict := vocab.FromCorpus(trainCorpus)
	data := Data{
		Train: dataset.MakeInstances(trainCorpus, dict, cfg.ContextSize),
		Dev:   dataset.MakeInstances(devCorpus, dict, cfg.ContextSize),
		Test:  dataset.MakeInstances(testCorpus, dict, cfg.ContextSize),
	}
	if data.Train.Len() == 0 {
		return nil, fmt.Errorf("%w: training corpus has no sentences", ErrEmptyDataset)
	}
	if data.Dev.Len() == 0 {
		return nil, fmt.Errorf("%w: dev corpus has no sentences", ErrEmptyDataset)
	}

	log.Info("build the model",
		"vocab_size", dict.Size(),
		"word_dim", cfg.Dim,
		"context_size", cfg.ContextSize,
		"seed", seed,
	)
	model, err := lbl.New(dict.Size(), cfg.Dim, cfg.ContextSize, tensor.NewSource(seed))
	if err != nil {
		return nil, err
	}
	return &Session{
		Config:     cfg,
		Seed:       seed,
		Dictionary: dict,
		Model:      model,
		Data:       data,
	}, nil
}

// Trainer returns a trainer over the session's model and data.
func (s *Session) Trainer(log logger.Logger) (*Trainer, error) {
	return New(s.Config, s.Model, s.Data, log)
}
