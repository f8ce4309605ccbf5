package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lbl/internal/train"
)

var (
	wordDim         int
	contextSize     int
	learnRate       float64
	rateUpdate      string
	epochs          int
	batchSize       int
	seed            int64
	patience        int
	patienceIncr    float64
	improvementThrs float64
	validationFreq  int
	verbose         bool

	configFile string
	reportPath string
	logLevel   string
	logFormat  string
)

func trainingFlags() []cli.Flag {
	def := train.DefaultConfig()
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "word-dim",
			Aliases:     []string{"k"},
			Usage:       "dimensionality of the word embeddings",
			Value:       def.Dim,
			Sources:     cli.EnvVars("LBL_WORD_DIM"),
			Destination: &wordDim,
		},
		&cli.IntFlag{
			Name:        "context-size",
			Aliases:     []string{"n"},
			Usage:       "number of context words used",
			Value:       def.ContextSize,
			Sources:     cli.EnvVars("LBL_CONTEXT_SIZE"),
			Destination: &contextSize,
		},
		&cli.Float64Flag{
			Name:        "learn-rate",
			Aliases:     []string{"l"},
			Usage:       "initial learning rate",
			Value:       def.LearningRate,
			Sources:     cli.EnvVars("LBL_LEARN_RATE"),
			Destination: &learnRate,
		},
		&cli.StringFlag{
			Name:        "rate-update",
			Aliases:     []string{"u"},
			Usage:       "learning rate update strategy (simple, adaptive, constant)",
			Value:       string(def.Schedule),
			Sources:     cli.EnvVars("LBL_RATE_UPDATE"),
			Destination: &rateUpdate,
		},
		&cli.IntFlag{
			Name:        "epochs",
			Aliases:     []string{"e"},
			Usage:       "maximum number of training epochs",
			Value:       def.Epochs,
			Sources:     cli.EnvVars("LBL_EPOCHS"),
			Destination: &epochs,
		},
		&cli.IntFlag{
			Name:        "batch-size",
			Aliases:     []string{"b"},
			Usage:       "size of the minibatches",
			Value:       def.BatchSize,
			Sources:     cli.EnvVars("LBL_BATCH_SIZE"),
			Destination: &batchSize,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Aliases:     []string{"s"},
			Usage:       "random seed for parameter initialisation (default: random)",
			Sources:     cli.EnvVars("LBL_SEED"),
			Destination: &seed,
		},
		&cli.IntFlag{
			Name:        "patience",
			Aliases:     []string{"p"},
			Usage:       "early stopping patience in minibatch iterations (default: disabled)",
			Sources:     cli.EnvVars("LBL_PATIENCE"),
			Destination: &patience,
		},
		&cli.Float64Flag{
			Name:        "patience-incr",
			Aliases:     []string{"i"},
			Usage:       "wait this many times longer when a new best is found",
			Value:       def.PatienceIncrease,
			Sources:     cli.EnvVars("LBL_PATIENCE_INCR"),
			Destination: &patienceIncr,
		},
		&cli.Float64Flag{
			Name:        "improvement-thrs",
			Aliases:     []string{"t"},
			Usage:       "a relative improvement of this much is considered significant",
			Value:       def.ImprovementThreshold,
			Sources:     cli.EnvVars("LBL_IMPROVEMENT_THRS"),
			Destination: &improvementThrs,
		},
		&cli.IntFlag{
			Name:        "validation-freq",
			Aliases:     []string{"f"},
			Usage:       "validate the model every this many minibatches",
			Value:       def.ValidationFreq,
			Sources:     cli.EnvVars("LBL_VALIDATION_FREQ"),
			Destination: &validationFreq,
		},
		&cli.StringFlag{
			Name:        "report",
			Usage:       "write a JSON run report to this path",
			Sources:     cli.EnvVars("LBL_REPORT"),
			Destination: &reportPath,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/lbl/config.yaml)",
			Sources:     cli.EnvVars("LBL_CONFIG"),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("LBL_LOG_LEVEL"),
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Sources:     cli.EnvVars("LBL_LOG_FORMAT"),
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "log every checkpoint (shorthand for --log-level=debug)",
			Destination: &verbose,
		},
	}
}

// trainConfig assembles the training configuration from the flag values.
// The seed stays unset unless it was given on the command line, in the
// environment or in the config file.
func trainConfig(seedSet bool) train.Config {
	cfg := train.Config{
		Dim:                  wordDim,
		ContextSize:          contextSize,
		LearningRate:         learnRate,
		Schedule:             train.Schedule(rateUpdate),
		Epochs:               epochs,
		BatchSize:            batchSize,
		Patience:             patience,
		PatienceIncrease:     patienceIncr,
		ImprovementThreshold: improvementThrs,
		ValidationFreq:       validationFreq,
	}
	if seedSet {
		s := seed
		cfg.Seed = &s
	}
	return cfg
}

func serveFlags(addr *string, readTimeout *time.Duration) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("LBL_ADDR"),
			Destination: addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read header timeout",
			Value:       30 * time.Second,
			Destination: readTimeout,
		},
	}
}

// samplingFlags are shared by `train --sample` and `serve`.
func samplingFlags(temp *float64, topK *int, topP, minP *float64, maxTokens *int) []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:        "temperature",
			Aliases:     []string{"temp"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       1.0,
			Destination: temp,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "sample from the k most probable words",
			Value:       40,
			Destination: topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "nucleus sampling mass",
			Value:       1.0,
			Destination: topP,
		},
		&cli.Float64Flag{
			Name:        "min-p",
			Usage:       "drop words below this fraction of the best word's probability",
			Destination: minP,
		},
		&cli.IntFlag{
			Name:        "max-tokens",
			Usage:       "maximum words per sampled sentence",
			Value:       30,
			Destination: maxTokens,
		},
	}
}
