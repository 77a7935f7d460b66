package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus"
	"github.com/nexus-research/nexus/internal/config"
	"github.com/urfave/cli/v3"
)

func researchCommand() *cli.Command {
	return &cli.Command{
		Name:      "research",
		Usage:     "Run one research query and print the answer",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("NEXUS_CONFIG"),
				Usage:   "Path to a YAML config file",
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "Search iteration budget (overrides config)",
			},
			&cli.FloatFlag{
				Name:  "threshold",
				Usage: "Confidence threshold in [0,100] (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the full result as JSON",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "Print thinking steps as they happen",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return goerr.New("query argument is required")
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}

			logger := newLogger()
			agent, err := buildAgent(ctx, cfg, logger)
			if err != nil {
				return err
			}

			var runOpts []nexus.RunOption
			if n := cmd.Int("max-iterations"); n > 0 {
				runOpts = append(runOpts, nexus.WithRunMaxIterations(int(n)))
			}
			if v := cmd.Float("threshold"); v > 0 {
				runOpts = append(runOpts, nexus.WithRunConfidenceThreshold(v))
			}
			if cmd.Bool("trace") {
				runOpts = append(runOpts, nexus.WithRunEventSink(&traceSink{out: os.Stderr}))
			}

			result, err := agent.Research(ctx, query, runOpts...)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Println(result.FinalAnswer)
			fmt.Printf("\nConfidence: %.1f%% after %d iteration(s), %d self-correction(s)\n",
				result.Confidence, result.TotalIterations, len(result.RetryEvents))
			if len(result.Citations) > 0 {
				fmt.Println("\nSources:")
				for _, c := range result.Citations {
					fmt.Printf("  [%s] %s (%s, %s)\n", c.ID, c.Title, c.URL, c.Reliability)
				}
			}
			for _, caveat := range result.Caveats {
				fmt.Printf("\nCaveat: %s\n", caveat)
			}
			return nil
		},
	}
}

// traceSink prints run events to the terminal as they are published.
type traceSink struct {
	out *os.File
}

func (s *traceSink) Publish(ctx context.Context, event nexus.Event) error {
	switch event.Kind {
	case nexus.EventStep:
		if step, ok := event.Data.(nexus.ThinkingStep); ok {
			fmt.Fprintf(s.out, "[%s] %s\n", step.Type, step.Action)
		}
	case nexus.EventRetryTriggered:
		if retry, ok := event.Data.(nexus.RetryTriggeredData); ok {
			fmt.Fprintf(s.out, "[retry] confidence %.0f%% at iteration %d: %s\n",
				retry.Confidence, retry.Iteration, retry.Strategy)
		}
	case nexus.EventConfidenceUpdate:
		if conf, ok := event.Data.(nexus.ConfidenceUpdateData); ok {
			fmt.Fprintf(s.out, "[confidence] %.1f%% (threshold %.1f%%)\n",
				conf.Current, conf.Threshold)
		}
	}
	return nil
}
