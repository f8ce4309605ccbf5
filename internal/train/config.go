package train

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSchedule is returned for a learning-rate schedule name other
	// than simple, adaptive or constant.
	ErrUnknownSchedule = errors.New("train: unknown learning rate update strategy")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("train: invalid configuration")
	// ErrEmptyDataset is returned when the training or dev corpus yields no
	// instances.
	ErrEmptyDataset = errors.New("train: empty dataset")
)

// Schedule names a learning-rate update strategy applied at every epoch end.
type Schedule string

const (
	// ScheduleSimple sets the rate to 1/(epoch+1).
	ScheduleSimple Schedule = "simple"
	// ScheduleAdaptive halves the rate when the end-of-epoch dev perplexity
	// went up.
	ScheduleAdaptive Schedule = "adaptive"
	// ScheduleConstant never changes the rate.
	ScheduleConstant Schedule = "constant"
)

// ParseSchedule validates a schedule name.
func ParseSchedule(name string) (Schedule, error) {
	s := Schedule(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case ScheduleSimple, ScheduleAdaptive, ScheduleConstant:
		return s, nil
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
	}
}

// Next returns the learning rate for the epoch after epoch. prevPPL and
// currPPL are the dev perplexities measured at the end of the previous and
// the current epoch; only the adaptive schedule reads them.
func (s Schedule) Next(rate float64, epoch int, prevPPL, currPPL float64) (float64, error) {
	switch s {
	case ScheduleSimple:
		return 1.0 / float64(epoch+1), nil
	case ScheduleAdaptive:
		if currPPL > prevPPL {
			return rate / 2, nil
		}
		return rate, nil
	case ScheduleConstant:
		return rate, nil
	default:
		return rate, fmt.Errorf("%w: %s", ErrUnknownSchedule, string(s))
	}
}

// Config holds the model and optimisation hyperparameters of a run.
type Config struct {
	Dim         int `json:"word_dim" yaml:"word_dim"`
	ContextSize int `json:"context_size" yaml:"context_size"`

	LearningRate float64  `json:"learning_rate" yaml:"learning_rate"`
	Schedule     Schedule `json:"rate_update" yaml:"rate_update"`
	Epochs       int      `json:"epochs" yaml:"epochs"`
	BatchSize    int      `json:"batch_size" yaml:"batch_size"`

	// Seed drives parameter initialisation. Nil picks a fresh random seed.
	Seed *int64 `json:"seed,omitempty" yaml:"seed"`

	// Patience is the iteration budget before early stopping; zero disables
	// early stopping.
	Patience             int     `json:"patience,omitempty" yaml:"patience"`
	PatienceIncrease     float64 `json:"patience_incr" yaml:"patience_incr"`
	ImprovementThreshold float64 `json:"improvement_thrs" yaml:"improvement_thrs"`
	ValidationFreq       int     `json:"validation_freq" yaml:"validation_freq"`
}

// DefaultConfig returns the stock hyperparameters.
func DefaultConfig() Config {
	return Config{
		Dim:                  100,
		ContextSize:          2,
		LearningRate:         1.0,
		Schedule:             ScheduleSimple,
		Epochs:               10,
		BatchSize:            100,
		PatienceIncrease:     2,
		ImprovementThreshold: 0.995,
		ValidationFreq:       1000,
	}
}

// Validate checks the numeric hyperparameters. The schedule name is checked
// by ParseSchedule and again when it is first applied.
func (c Config) Validate() error {
	var problems []string
	if c.Dim <= 0 {
		problems = append(problems, fmt.Sprintf("word_dim must be positive, got %d", c.Dim))
	}
	if c.ContextSize <= 0 {
		problems = append(problems, fmt.Sprintf("context_size must be positive, got %d", c.ContextSize))
	}
	if c.LearningRate <= 0 {
		problems = append(problems, fmt.Sprintf("learning_rate must be positive, got %g", c.LearningRate))
	}
	if c.Epochs <= 0 {
		problems = append(problems, fmt.Sprintf("epochs must be positive, got %d", c.Epochs))
	}
	if c.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.Patience < 0 {
		problems = append(problems, fmt.Sprintf("patience must not be negative, got %d", c.Patience))
	}
	if c.PatienceIncrease < 1 {
		problems = append(problems, fmt.Sprintf("patience_incr must be at least 1, got %g", c.PatienceIncrease))
	}
	if c.ImprovementThreshold <= 0 || c.ImprovementThreshold > 1 {
		problems = append(problems, fmt.Sprintf("improvement_thrs must be in (0, 1], got %g", c.ImprovementThreshold))
	}
	if c.ValidationFreq <= 0 {
		problems = append(problems, fmt.Sprintf("validation_freq must be positive, got %d", c.ValidationFreq))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// extendPatience applies the patience rule of a checkpoint that improved on
// the best dev perplexity: a relative improvement beyond the threshold
// extends the budget to at least itr*incr. A zero patience stays disabled.
func extendPatience(patience, itr int, incr, threshold, devPPL, bestPPL float64) int {
	if patience <= 0 {
		return patience
	}
	if devPPL < bestPPL*threshold {
		return max(patience, int(float64(itr)*incr))
	}
	return patience
}
