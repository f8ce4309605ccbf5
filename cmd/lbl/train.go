package main

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lbl/internal/corpus"
	"github.com/samcharles93/lbl/internal/logger"
	"github.com/samcharles93/lbl/internal/logits"
	"github.com/samcharles93/lbl/internal/report"
	"github.com/samcharles93/lbl/internal/train"
	"github.com/samcharles93/lbl/internal/vocab"
)

const trainUsage = "<train> <dev> [<test>]"

func trainCmd() *cli.Command {
	var (
		samples   int
		temp      float64
		topK      int
		topP      float64
		minP      float64
		maxTokens int
	)

	flags := append(trainingFlags(), loggingFlags()...)
	flags = append(flags, samplingFlags(&temp, &topK, &topP, &minP, &maxTokens)...)
	flags = append(flags, &cli.IntFlag{
		Name:        "sample",
		Usage:       "log this many sentences sampled from the trained model",
		Destination: &samples,
	})

	return &cli.Command{
		Name:      "train",
		Usage:     "Train a log-bilinear language model",
		ArgsUsage: trainUsage,
		Flags:     flags,
		Before:    setupLogging,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			sess, _, err := runTraining(ctx, cmd)
			if err != nil {
				return err
			}
			if samples <= 0 {
				return nil
			}
			sampler := logits.NewSampler(logits.SamplerConfig{
				Seed:        sess.Seed,
				Temperature: temp,
				TopK:        topK,
				TopP:        topP,
				MinP:        minP,
				Exclude:     []int{vocab.UnknownID, sess.Dictionary.StartID()},
			})
			for i := range samples {
				ids, err := sess.Model.Generate(sampler, nil, sess.Dictionary.StartID(), sess.Dictionary.EndID(), maxTokens)
				if err != nil {
					return err
				}
				log.Info("sample", "n", i+1, "text", strings.Join(sess.Dictionary.Tokens(ids), " "))
			}
			return nil
		},
	}
}

// runTraining loads the corpora named by the positional arguments, trains a
// model and writes the run report when --report is set. The returned report
// is built even when no report file was requested.
func runTraining(ctx context.Context, cmd *cli.Command) (*train.Session, *report.Report, error) {
	log := logger.FromContext(ctx)

	if cmd.NArg() < 2 || cmd.NArg() > 3 {
		return nil, nil, cli.Exit("usage: lbl "+cmd.Name+" [options] "+trainUsage, 2)
	}
	seedSet := applyTrainConfig(cmd, fileConfig)
	cfg := trainConfig(seedSet)
	schedule, err := train.ParseSchedule(rateUpdate)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	cfg.Schedule = schedule
	if err := cfg.Validate(); err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}

	trainPath, devPath, testPath := cmd.Args().Get(0), cmd.Args().Get(1), cmd.Args().Get(2)
	log.Info("load data", "train", trainPath, "dev", devPath, "test", testPath)
	trainCorpus, err := corpus.Load(trainPath)
	if err != nil {
		return nil, nil, err
	}
	devCorpus, err := corpus.Load(devPath)
	if err != nil {
		return nil, nil, err
	}
	testCorpus, err := corpus.LoadOptional(testPath)
	if err != nil {
		return nil, nil, err
	}

	sess, err := train.Prepare(cfg, trainCorpus, devCorpus, testCorpus, log)
	if err != nil {
		return nil, nil, err
	}
	tr, err := sess.Trainer(log)
	if err != nil {
		return nil, nil, err
	}
	res, runErr := tr.Run(ctx)

	rep := report.New(sess, res, runErr)
	if reportPath != "" {
		if err := rep.WriteFile(reportPath); err != nil {
			log.Error("failed to write report", "path", reportPath, "error", err)
		} else {
			log.Info("wrote report", "path", reportPath, "run_id", rep.RunID)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		log.Warn("training interrupted", "iterations", res.Iterations)
		return sess, rep, cli.Exit("", 130)
	}
	return sess, rep, runErr
}
