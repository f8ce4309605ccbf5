package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/lbl/internal/corpus"
	"github.com/samcharles93/lbl/internal/train"
)

func toySession(t *testing.T) *train.Session {
	t.Helper()
	cfg := train.DefaultConfig()
	cfg.Dim = 4
	cfg.Epochs = 1
	seed := int64(7)
	cfg.Seed = &seed
	sess, err := train.Prepare(cfg,
		corpus.Corpus{{"a", "b", "c"}, {"b", "c", "a"}},
		corpus.Corpus{{"a", "c"}},
		nil, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return sess
}

func TestNewOmitsNonFinite(t *testing.T) {
	t.Parallel()

	sess := toySession(t)
	res := &train.Result{
		BestDevPerplexity: 12.5,
		TestPerplexity:    math.NaN(),
		Epochs:            1,
		Iterations:        1,
		LearningRate:      1,
		Elapsed:           1500 * time.Millisecond,
		Checkpoints: []train.Checkpoint{{
			Iteration:      0,
			DevLogProb:     3.64,
			DevPerplexity:  12.5,
			Improved:       true,
			TestLogProb:    math.NaN(),
			TestPerplexity: math.Inf(1),
		}},
	}
	r := New(sess, res, nil)

	if _, err := uuid.Parse(r.RunID); err != nil {
		t.Fatalf("run id %q is not a uuid: %v", r.RunID, err)
	}
	if r.Result.TestPerplexity != nil {
		t.Fatal("NaN test perplexity should be omitted")
	}
	if r.Result.BestDevPerplexity == nil || *r.Result.BestDevPerplexity != 12.5 {
		t.Fatalf("best dev perplexity: %v", r.Result.BestDevPerplexity)
	}
	cp := r.Checkpoints[0]
	if cp.TestPerplexity != nil || cp.TestLogProb != nil {
		t.Fatal("non-finite checkpoint values should be omitted")
	}
	if r.Result.ElapsedSeconds != 1.5 {
		t.Fatalf("elapsed: %v", r.Result.ElapsedSeconds)
	}

	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "NaN") || strings.Contains(out, "Inf") {
		t.Fatalf("encoded report has non-finite values:\n%s", out)
	}
	if !strings.Contains(out, `"best_dev_ppl": 12.5`) {
		t.Fatalf("expected best_dev_ppl in output:\n%s", out)
	}
}

func TestNewRecordsError(t *testing.T) {
	t.Parallel()

	r := New(toySession(t), nil, errors.New("interrupted"))
	if r.Error != "interrupted" {
		t.Fatalf("error: %q", r.Error)
	}
	if r.Checkpoints == nil || len(r.Checkpoints) != 0 {
		t.Fatal("checkpoints should be an empty list")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	t.Parallel()

	sess := toySession(t)
	tr, err := sess.Trainer(nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "runs", "report.json")
	want := New(sess, res, nil)
	if err := want.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the report in the directory, got %d entries", len(entries))
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.RunID != want.RunID || got.Seed != 7 || got.VocabSize != sess.Dictionary.Size() {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Checkpoints) != len(res.Checkpoints) {
		t.Fatalf("checkpoints: got %d, want %d", len(got.Checkpoints), len(res.Checkpoints))
	}
	if got.Config.Schedule != train.ScheduleSimple {
		t.Fatalf("schedule: %q", got.Config.Schedule)
	}
}
