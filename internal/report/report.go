// Package report serialises the outcome of a training run as JSON.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samcharles93/lbl/internal/train"
	"github.com/samcharles93/lbl/internal/version"
)

// Report is the JSON document of one run. Perplexities that are NaN or
// infinite are left out.
type Report struct {
	RunID       string       `json:"run_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Version     version.Info `json:"version"`
	Seed        int64        `json:"seed"`
	Config      train.Config `json:"config"`
	VocabSize   int          `json:"vocab_size"`
	Params      int          `json:"params"`
	Instances   Instances    `json:"instances"`
	Checkpoints []Checkpoint `json:"checkpoints"`
	Result      Result       `json:"result"`
	Error       string       `json:"error,omitempty"`
}

type Instances struct {
	Train int `json:"train"`
	Dev   int `json:"dev"`
	Test  int `json:"test"`
}

type Checkpoint struct {
	Epoch          int      `json:"epoch"`
	Minibatch      int      `json:"minibatch"`
	NumBatches     int      `json:"num_batches"`
	Iteration      int      `json:"iteration"`
	LearningRate   float64  `json:"learning_rate"`
	DevLogProb     *float64 `json:"dev_logp,omitempty"`
	DevPerplexity  *float64 `json:"dev_ppl,omitempty"`
	Improved       bool     `json:"improved"`
	TestLogProb    *float64 `json:"test_logp,omitempty"`
	TestPerplexity *float64 `json:"test_ppl,omitempty"`
	Patience       int      `json:"patience"`
}

type Result struct {
	BestDevPerplexity *float64 `json:"best_dev_ppl,omitempty"`
	TestPerplexity    *float64 `json:"test_ppl,omitempty"`
	Epochs            int      `json:"epochs"`
	Iterations        int      `json:"iterations"`
	StoppedEarly      bool     `json:"stopped_early"`
	LearningRate      float64  `json:"final_learning_rate"`
	ElapsedSeconds    float64  `json:"elapsed_seconds"`
	EpochsPerSecond   float64  `json:"epochs_per_second"`
}

// New builds a report from a prepared session and the trainer result. res
// may be nil when the run failed before producing one; runErr is recorded
// verbatim.
func New(sess *train.Session, res *train.Result, runErr error) *Report {
	r := &Report{
		RunID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Version:     version.Resolve(),
		Seed:        sess.Seed,
		Config:      sess.Config,
		VocabSize:   sess.Dictionary.Size(),
		Params:      sess.Model.NumParams(),
		Instances: Instances{
			Train: sess.Data.Train.Len(),
			Dev:   sess.Data.Dev.Len(),
		},
		Checkpoints: []Checkpoint{},
	}
	if sess.Data.Test != nil {
		r.Instances.Test = sess.Data.Test.Len()
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if res == nil {
		return r
	}

	for _, cp := range res.Checkpoints {
		r.Checkpoints = append(r.Checkpoints, Checkpoint{
			Epoch:          cp.Epoch,
			Minibatch:      cp.Minibatch,
			NumBatches:     cp.NumBatches,
			Iteration:      cp.Iteration,
			LearningRate:   cp.LearningRate,
			DevLogProb:     finite(cp.DevLogProb),
			DevPerplexity:  finite(cp.DevPerplexity),
			Improved:       cp.Improved,
			TestLogProb:    finite(cp.TestLogProb),
			TestPerplexity: finite(cp.TestPerplexity),
			Patience:       cp.Patience,
		})
	}
	r.Result = Result{
		BestDevPerplexity: finite(res.BestDevPerplexity),
		TestPerplexity:    finite(res.TestPerplexity),
		Epochs:            res.Epochs,
		Iterations:        res.Iterations,
		StoppedEarly:      res.StoppedEarly,
		LearningRate:      res.LearningRate,
		ElapsedSeconds:    res.Elapsed.Seconds(),
		EpochsPerSecond:   res.EpochsPerSecond,
	}
	return r
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Encode writes the report as indented JSON.
func (r *Report) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the report to path, replacing any existing file only
// once the new content is complete.
func (r *Report) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".lbl-report-*.json")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := r.Encode(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Read decodes a report written by WriteFile.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
