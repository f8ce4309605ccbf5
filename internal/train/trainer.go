// Package train runs minibatch gradient descent on a log-bilinear language
// model with periodic validation, patience-based early stopping and a
// per-epoch learning-rate schedule.
package train

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/lbl/internal/dataset"
	"github.com/samcharles93/lbl/internal/lbl"
	"github.com/samcharles93/lbl/internal/logger"
)

// State is the trainer's position in its run loop.
type State int

const (
	StateInitializing State = iota
	StateTrainingEpoch
	StateValidation
	StateEpochEnd
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateTrainingEpoch:
		return "training"
	case StateValidation:
		return "validation"
	case StateEpochEnd:
		return "epoch-end"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Data bundles the instance sets of a run. Test may be empty.
type Data struct {
	Train *dataset.Set
	Dev   *dataset.Set
	Test  *dataset.Set
}

// Checkpoint records one validation pass.
type Checkpoint struct {
	Epoch          int
	Minibatch      int
	NumBatches     int
	Iteration      int
	LearningRate   float64
	DevLogProb     float64
	DevPerplexity  float64
	Improved       bool
	TestLogProb    float64
	TestPerplexity float64
	Patience       int
}

// Result is the terminal report of a run. TestPerplexity is NaN when no
// test data was given.
type Result struct {
	BestDevPerplexity float64
	TestPerplexity    float64
	Epochs            int
	Iterations        int
	StoppedEarly      bool
	LearningRate      float64
	Elapsed           time.Duration
	EpochsPerSecond   float64
	Checkpoints       []Checkpoint
}

// Trainer owns the training state of one run. The model is mutated in place.
type Trainer struct {
	cfg   Config
	model *lbl.Model
	data  Data
	log   logger.Logger
	now   func() time.Time

	state State
}

// New validates cfg and returns a trainer. A nil logger discards output.
func New(cfg Config, model *lbl.Model, data Data, log logger.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidConfig)
	}
	if model.ContextSize != cfg.ContextSize {
		return nil, fmt.Errorf("%w: model context size %d, config %d", ErrInvalidConfig, model.ContextSize, cfg.ContextSize)
	}
	if data.Train == nil || data.Train.Len() == 0 {
		return nil, fmt.Errorf("%w: no training instances", ErrEmptyDataset)
	}
	if data.Dev == nil || data.Dev.Len() == 0 {
		return nil, fmt.Errorf("%w: no dev instances", ErrEmptyDataset)
	}
	if data.Test == nil {
		data.Test = &dataset.Set{ContextSize: cfg.ContextSize}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Trainer{
		cfg:   cfg,
		model: model,
		data:  data,
		log:   log,
		now:   time.Now,
		state: StateInitializing,
	}, nil
}

// State returns the current state of the run loop.
func (t *Trainer) State() State { return t.state }

func (t *Trainer) perplexity(set *dataset.Set) (logp, ppl float64, err error) {
	logp, err = t.model.Evaluate(set, t.cfg.BatchSize)
	if err != nil {
		return 0, 0, err
	}
	return logp, lbl.Perplexity(logp), nil
}

// Run trains until the epoch budget is spent, patience runs out, the
// schedule is invalid or ctx is cancelled. The result is returned in every
// case; err reports why the run ended abnormally.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	cfg := t.cfg
	nBatches := t.data.Train.NumBatches(cfg.BatchSize)

	res := &Result{
		BestDevPerplexity: math.Inf(1),
		TestPerplexity:    math.NaN(),
		LearningRate:      cfg.LearningRate,
	}
	rate := cfg.LearningRate
	patience := cfg.Patience
	lastEpochDevPPL := math.Inf(1)
	start := t.now()

	t.log.Info("training model",
		"train_instances", t.data.Train.Len(),
		"dev_instances", t.data.Dev.Len(),
		"test_instances", t.data.Test.Len(),
		"batches_per_epoch", nBatches,
		"params", t.model.NumParams(),
	)

	finish := func(err error) (*Result, error) {
		t.state = StateTerminal
		res.LearningRate = rate
		res.Elapsed = t.now().Sub(start)
		if secs := res.Elapsed.Seconds(); secs > 0 {
			res.EpochsPerSecond = float64(res.Epochs) / secs
		}
		t.logSummary(res)
		return res, err
	}

	done := false
	for epoch := 0; epoch < cfg.Epochs && !done; epoch++ {
		t.state = StateTrainingEpoch
		t.log.Debug("epoch", "epoch", epoch, "learning_rate", rate)
		var epochCost float64
		var steps int

		for b := range nBatches {
			if err := ctx.Err(); err != nil {
				return finish(err)
			}
			contexts, targets := t.data.Train.Batch(b, cfg.BatchSize)
			cost, err := t.model.Step(contexts, targets, rate)
			if err != nil {
				return finish(fmt.Errorf("epoch %d minibatch %d: %w", epoch, b, err))
			}
			epochCost += cost
			steps++

			itr := epoch*nBatches + b
			res.Iterations = itr + 1
			if itr%cfg.ValidationFreq == 0 {
				t.state = StateValidation
				cp, err := t.validate(epoch, b, nBatches, itr, rate, res.BestDevPerplexity)
				if err != nil {
					return finish(err)
				}
				if cp.Improved {
					patience = extendPatience(patience, itr, cfg.PatienceIncrease, cfg.ImprovementThreshold, cp.DevPerplexity, res.BestDevPerplexity)
					res.BestDevPerplexity = cp.DevPerplexity
					res.TestPerplexity = cp.TestPerplexity
				}
				cp.Patience = patience
				res.Checkpoints = append(res.Checkpoints, cp)
				t.state = StateTrainingEpoch
			}

			if patience > 0 && patience <= itr {
				t.log.Info("early stopping", "iteration", itr, "patience", patience)
				res.StoppedEarly = true
				done = true
				break
			}
		}
		res.Epochs = epoch + 1

		t.state = StateEpochEnd
		t.log.Debug("epoch end", "epoch", epoch, "train_cost", epochCost/float64(max(steps, 1)))

		var epochDevPPL float64
		if cfg.Schedule == ScheduleAdaptive {
			_, ppl, err := t.perplexity(t.data.Dev)
			if err != nil {
				return finish(err)
			}
			epochDevPPL = ppl
		}
		next, err := cfg.Schedule.Next(rate, epoch, lastEpochDevPPL, epochDevPPL)
		if err != nil {
			return finish(err)
		}
		if cfg.Schedule == ScheduleAdaptive {
			lastEpochDevPPL = epochDevPPL
		}
		if next != rate {
			t.log.Debug("learning rate update", "epoch", epoch, "from", rate, "to", next)
		}
		rate = next
	}
	return finish(nil)
}

func (t *Trainer) validate(epoch, b, nBatches, itr int, rate, best float64) (Checkpoint, error) {
	cp := Checkpoint{
		Epoch:          epoch,
		Minibatch:      b + 1,
		NumBatches:     nBatches,
		Iteration:      itr,
		LearningRate:   rate,
		TestLogProb:    math.NaN(),
		TestPerplexity: math.NaN(),
	}
	logp, ppl, err := t.perplexity(t.data.Dev)
	if err != nil {
		return cp, fmt.Errorf("dev evaluation: %w", err)
	}
	cp.DevLogProb, cp.DevPerplexity = logp, ppl
	progress := fmt.Sprintf("%d/%d", cp.Minibatch, nBatches)
	t.log.Debug("dev checkpoint", "epoch", epoch, "minibatch", progress, "dev_ppl", ppl, "dev_logp", logp)

	if ppl < best {
		cp.Improved = true
		if t.data.Test.Len() > 0 {
			tlogp, tppl, err := t.perplexity(t.data.Test)
			if err != nil {
				return cp, fmt.Errorf("test evaluation: %w", err)
			}
			cp.TestLogProb, cp.TestPerplexity = tlogp, tppl
			t.log.Debug("test checkpoint", "epoch", epoch, "minibatch", progress, "test_ppl", tppl, "test_logp", tlogp)
		}
	}
	return cp, nil
}

func (t *Trainer) logSummary(res *Result) {
	t.log.Info("optimization complete",
		"best_dev_ppl", res.BestDevPerplexity,
		"test_ppl", res.TestPerplexity,
	)
	t.log.Info("training throughput",
		"epochs", res.Epochs,
		"epochs_per_sec", res.EpochsPerSecond,
	)
	d, h, m, s := splitDuration(res.Elapsed)
	t.log.Info("total training time",
		"elapsed", fmt.Sprintf("%d days %d hours %d min %d sec", d, h, m, s),
	)
}

func splitDuration(d time.Duration) (days, hours, mins, secs int) {
	total := int(d / time.Second)
	return total / 86400, total / 3600 % 24, total / 60 % 60, total % 60
}
