package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus/internal/config"
	"github.com/nexus-research/nexus/internal/httpapi"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the research agent HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Sources: cli.EnvVars("NEXUS_SERVER_ADDR"),
				Usage:   "Server listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("NEXUS_CONFIG"),
				Usage:   "Path to a YAML config file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			addr := cfg.Server.Addr
			if v := cmd.String("addr"); v != "" {
				addr = v
			}

			logger := newLogger()
			agent, err := buildAgent(ctx, cfg, logger)
			if err != nil {
				return err
			}

			fast, pro := modelNames(cfg)
			api := httpapi.New(agent, httpapi.Config{
				MaxIterations:       cfg.Agent.MaxIterations,
				ConfidenceThreshold: cfg.Agent.ConfidenceThreshold,
				MinSources:          cfg.Agent.MinSources,
				ModelFast:           fast,
				ModelPro:            pro,
				StreamDelay:         time.Duration(cfg.Server.StreamDelayMS) * time.Millisecond,
				SearchConnected:     cfg.Tavily.APIKey != "",
				AllowedOrigins:      cfg.Server.AllowedOrigins,
			})

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("server started", "addr", addr, "provider", cfg.Provider)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "server failed", goerr.V("addr", addr))
			}
			return nil
		},
	}
}
