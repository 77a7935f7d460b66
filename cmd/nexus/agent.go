package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus"
	"github.com/nexus-research/nexus/internal/config"
	"github.com/nexus-research/nexus/llm/claude"
	"github.com/nexus-research/nexus/llm/gemini"
	"github.com/nexus-research/nexus/llm/openai"
	"github.com/nexus-research/nexus/tools/tavily"
)

// buildAgent assembles the research agent from configuration: fast and pro
// model clients per the selected provider, the Tavily tool set, and agent
// behavior knobs.
func buildAgent(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*nexus.Agent, error) {
	fast, pro, err := buildClients(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Tavily.APIKey == "" {
		return nil, goerr.New("tavily api key is required (NEXUS_TAVILY_API_KEY)")
	}
	searchClient, err := tavily.New(cfg.Tavily.APIKey)
	if err != nil {
		return nil, err
	}

	return nexus.New(fast,
		nexus.WithProClient(pro),
		nexus.WithTools(nexus.NewToolRegistry(tavily.NewTools(searchClient)...)),
		nexus.WithMaxIterations(cfg.Agent.MaxIterations),
		nexus.WithConfidenceThreshold(cfg.Agent.ConfidenceThreshold),
		nexus.WithMinSources(cfg.Agent.MinSources),
		nexus.WithTargetSources(cfg.Agent.TargetSources),
		nexus.WithMaxCitationSources(cfg.Agent.MaxCitationSources),
		nexus.WithLogger(logger),
	), nil
}

// buildClients creates the fast and pro model clients for the configured
// provider. Providers without a fast/pro split use one client for both.
func buildClients(ctx context.Context, cfg *config.Config) (fast, pro nexus.LLMClient, err error) {
	switch cfg.Provider {
	case "gemini":
		fast, err = gemini.New(ctx, cfg.Gemini.APIKey, gemini.WithModel(cfg.Gemini.ModelFast))
		if err != nil {
			return nil, nil, err
		}
		pro, err = gemini.New(ctx, cfg.Gemini.APIKey, gemini.WithModel(cfg.Gemini.ModelPro))
		if err != nil {
			return nil, nil, err
		}

	case "groq":
		fast, err = openai.New(ctx, cfg.Groq.APIKey,
			openai.WithBaseURL(openai.GroqBaseURL),
			openai.WithModel(cfg.Groq.ModelFast))
		if err != nil {
			return nil, nil, err
		}
		pro, err = openai.New(ctx, cfg.Groq.APIKey,
			openai.WithBaseURL(openai.GroqBaseURL),
			openai.WithModel(cfg.Groq.ModelPro))
		if err != nil {
			return nil, nil, err
		}

	case "openai":
		fast, err = openai.New(ctx, cfg.OpenAI.APIKey, openai.WithModel(cfg.OpenAI.Model))
		if err != nil {
			return nil, nil, err
		}
		pro = fast

	case "claude":
		fast, err = claude.New(ctx, cfg.Claude.APIKey, claude.WithModel(cfg.Claude.Model))
		if err != nil {
			return nil, nil, err
		}
		pro = fast

	default:
		return nil, nil, goerr.New("unknown provider", goerr.V("provider", cfg.Provider))
	}

	return fast, pro, nil
}

// modelNames reports the configured fast/pro model pair for introspection
// endpoints.
func modelNames(cfg *config.Config) (fast, pro string) {
	switch cfg.Provider {
	case "groq":
		return cfg.Groq.ModelFast, cfg.Groq.ModelPro
	case "openai":
		return cfg.OpenAI.Model, cfg.OpenAI.Model
	case "claude":
		return cfg.Claude.Model, cfg.Claude.Model
	default:
		return cfg.Gemini.ModelFast, cfg.Gemini.ModelPro
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
