package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lbl/internal/train"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Epochs != nil || cfg.RateUpdate != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}

	good := filepath.Join(dir, "config.yaml")
	body := "epochs: 3\nrate_update: adaptive\nseed: 42\nlog_format: json\n"
	if err := os.WriteFile(good, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(good)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Epochs == nil || *cfg.Epochs != 3 || cfg.RateUpdate != "adaptive" || cfg.Seed == nil || *cfg.Seed != 42 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.WordDim != nil {
		t.Fatal("unset field should stay nil")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("epochs: [1, 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigPathOverride(t *testing.T) {
	t.Parallel()

	if got := configPath("/tmp/x.yaml"); got != "/tmp/x.yaml" {
		t.Fatalf("override ignored: %q", got)
	}
	if got := configPath(""); got != "" && filepath.Base(got) != "config.yaml" {
		t.Fatalf("unexpected default path %q", got)
	}
}

// runWithFlags parses args against the training flags and applies cfg.
// Flag destinations are package variables, so callers must not run in
// parallel.
func runWithFlags(t *testing.T, cfg Config, args ...string) (train.Config, bool) {
	t.Helper()
	var (
		out     train.Config
		seedSet bool
	)
	cmd := &cli.Command{
		Name:  "train",
		Flags: trainingFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			seedSet = applyTrainConfig(cmd, cfg)
			out = trainConfig(seedSet)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"train"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out, seedSet
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	epochs, dim := 7, 32
	lr := 0.25
	s := int64(11)
	file := Config{Epochs: &epochs, WordDim: &dim, LearnRate: &lr, RateUpdate: "constant", Seed: &s}

	cfg, seedSet := runWithFlags(t, file, "--epochs", "2", "-u", "adaptive")
	if cfg.Epochs != 2 {
		t.Fatalf("flag should win over file: epochs=%d", cfg.Epochs)
	}
	if cfg.Schedule != train.ScheduleAdaptive {
		t.Fatalf("flag should win over file: schedule=%q", cfg.Schedule)
	}
	if cfg.Dim != 32 || cfg.LearningRate != 0.25 {
		t.Fatalf("file values should fill unset flags: %+v", cfg)
	}
	if !seedSet || cfg.Seed == nil || *cfg.Seed != 11 {
		t.Fatalf("seed from file: set=%v seed=%v", seedSet, cfg.Seed)
	}
}

func TestDefaultsLeaveSeedUnset(t *testing.T) {
	cfg, seedSet := runWithFlags(t, Config{})
	if seedSet || cfg.Seed != nil {
		t.Fatal("seed should stay unset")
	}
	def := train.DefaultConfig()
	def.Seed = nil
	if cfg != def {
		t.Fatalf("flag defaults differ from train.DefaultConfig:\n got %+v\nwant %+v", cfg, def)
	}

	cfg, seedSet = runWithFlags(t, Config{}, "-s", "5", "-p", "100")
	if !seedSet || *cfg.Seed != 5 || cfg.Patience != 100 {
		t.Fatalf("short flags not applied: %+v", cfg)
	}
}
