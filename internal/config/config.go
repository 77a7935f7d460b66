package config

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/viper"
)

// Config is the central configuration of the research agent. Values come from
// an optional YAML file merged with NEXUS_* environment variables; environment
// wins.
type Config struct {
	// Provider selects the LLM backend: "gemini", "groq", "openai" or
	// "claude".
	Provider string `mapstructure:"provider"`

	Gemini struct {
		APIKey    string `mapstructure:"api_key"`
		ModelFast string `mapstructure:"model_fast"`
		ModelPro  string `mapstructure:"model_pro"`
	} `mapstructure:"gemini"`

	Groq struct {
		APIKey    string `mapstructure:"api_key"`
		ModelFast string `mapstructure:"model_fast"`
		ModelPro  string `mapstructure:"model_pro"`
	} `mapstructure:"groq"`

	OpenAI struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"openai"`

	Claude struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"claude"`

	Tavily struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"tavily"`

	Agent struct {
		MaxIterations       int     `mapstructure:"max_iterations"`
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
		MinSources          int     `mapstructure:"min_sources"`
		TargetSources       int     `mapstructure:"target_sources"`
		MaxCitationSources  int     `mapstructure:"max_citation_sources"`
	} `mapstructure:"agent"`

	Server struct {
		Addr           string   `mapstructure:"addr"`
		StreamDelayMS  int      `mapstructure:"stream_delay_ms"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("provider", "gemini")

	// Empty defaults keep the keys visible to AutomaticEnv during Unmarshal.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("groq.api_key", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("claude.api_key", "")
	v.SetDefault("tavily.api_key", "")

	v.SetDefault("gemini.model_fast", "gemini-2.0-flash")
	v.SetDefault("gemini.model_pro", "gemini-1.5-pro")
	v.SetDefault("groq.model_fast", "llama-3.1-8b-instant")
	v.SetDefault("groq.model_pro", "llama-3.3-70b-versatile")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("claude.model", "claude-3-5-sonnet-latest")
	v.SetDefault("agent.max_iterations", 8)
	v.SetDefault("agent.confidence_threshold", 85.0)
	v.SetDefault("agent.min_sources", 3)
	v.SetDefault("agent.target_sources", 8)
	v.SetDefault("agent.max_citation_sources", 15)
	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("server.stream_delay_ms", 50)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:5173",
	})

	v.SetEnvPrefix("NEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration from the given YAML file path (empty means
// environment and defaults only) and validates the result.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, goerr.Wrap(err, "failed to read config file",
				goerr.V("path", path))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. API keys are checked at client construction,
// not here, so offline commands work without them.
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini", "groq", "openai", "claude":
	default:
		return goerr.New("unknown provider", goerr.V("provider", c.Provider))
	}

	if c.Agent.MaxIterations < 1 {
		return goerr.New("agent.max_iterations must be at least 1",
			goerr.V("max_iterations", c.Agent.MaxIterations))
	}
	if c.Agent.ConfidenceThreshold < 0 || c.Agent.ConfidenceThreshold > 100 {
		return goerr.New("agent.confidence_threshold must be within [0,100]",
			goerr.V("confidence_threshold", c.Agent.ConfidenceThreshold))
	}
	if c.Agent.MinSources < 1 || c.Agent.TargetSources < c.Agent.MinSources {
		return goerr.New("agent source bounds are inconsistent",
			goerr.V("min_sources", c.Agent.MinSources),
			goerr.V("target_sources", c.Agent.TargetSources))
	}
	if c.Server.StreamDelayMS < 0 {
		return goerr.New("server.stream_delay_ms must not be negative",
			goerr.V("stream_delay_ms", c.Server.StreamDelayMS))
	}
	return nil
}
