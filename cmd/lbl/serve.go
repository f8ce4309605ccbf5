package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lbl/internal/api"
	"github.com/samcharles93/lbl/internal/logger"
	"github.com/samcharles93/lbl/internal/logits"
	"github.com/samcharles93/lbl/internal/version"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		temp        float64
		topK        int
		topP        float64
		minP        float64
		maxTokens   int
	)

	flags := append(trainingFlags(), loggingFlags()...)
	flags = append(flags, serveFlags(&addr, &readTimeout)...)
	flags = append(flags, samplingFlags(&temp, &topK, &topP, &minP, &maxTokens)...)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Train a model, then serve predictions over HTTP",
		ArgsUsage: trainUsage,
		Flags:     flags,
		Before:    setupLogging,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &addr)

			sess, rep, err := runTraining(ctx, cmd)
			if err != nil {
				return err
			}

			server, err := api.NewServer(api.Config{
				Model:      sess.Model,
				Dictionary: sess.Dictionary,
				Info: api.ModelInfo{
					RunID:             rep.RunID,
					Version:           version.String(),
					Seed:              sess.Seed,
					BestDevPerplexity: rep.Result.BestDevPerplexity,
					TestPerplexity:    rep.Result.TestPerplexity,
				},
				Sampler: logits.SamplerConfig{
					Seed:        sess.Seed,
					Temperature: temp,
					TopK:        topK,
					TopP:        topP,
					MinP:        minP,
				},
				MaxTokens: maxTokens,
				Log:       log,
			})
			if err != nil {
				return err
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "run_id", rep.RunID)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
