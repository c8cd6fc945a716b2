package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Upstream holds CLI flags for the forwarded chat completion endpoint
type Upstream struct {
	url           string
	apiKey        string
	defaultModel  string
	injectLimit   int
	memoryEnabled bool
}

// Flags returns CLI flags for upstream configuration
func (x *Upstream) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "upstream-url",
			Usage:       "OpenAI-compatible chat completions URL to forward to",
			Sources:     cli.EnvVars("MNEMO_UPSTREAM_URL"),
			Destination: &x.url,
		},
		&cli.StringFlag{
			Name:        "upstream-api-key",
			Usage:       "API key sent to the upstream as a Bearer token",
			Sources:     cli.EnvVars("MNEMO_UPSTREAM_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "default-model",
			Usage:       "Model substituted when the client request omits one",
			Sources:     cli.EnvVars("MNEMO_DEFAULT_MODEL"),
			Destination: &x.defaultModel,
		},
		&cli.IntFlag{
			Name:        "inject-limit",
			Usage:       "Maximum memories injected into one request",
			Value:       15,
			Sources:     cli.EnvVars("MNEMO_INJECT_LIMIT"),
			Destination: &x.injectLimit,
		},
		&cli.BoolFlag{
			Name:        "memory-enabled",
			Usage:       "Inject and curate memories (false turns the gateway into a pure proxy)",
			Value:       true,
			Sources:     cli.EnvVars("MNEMO_MEMORY_ENABLED"),
			Destination: &x.memoryEnabled,
		},
	}
}

// LogAttrs returns log attributes for the upstream configuration
func (x *Upstream) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("url", x.url),
		slog.String("default_model", x.defaultModel),
		slog.Int("inject_limit", x.injectLimit),
		slog.Bool("memory_enabled", x.memoryEnabled),
	}
}

// Validate checks the upstream configuration for the serve command
func (x *Upstream) Validate() error {
	if x.url == "" {
		return goerr.New("upstream-url is required")
	}
	if x.injectLimit <= 0 {
		return goerr.New("inject-limit must be positive", goerr.V("limit", x.injectLimit))
	}
	return nil
}

func (x *Upstream) URL() string          { return x.url }
func (x *Upstream) APIKey() string       { return x.apiKey }
func (x *Upstream) DefaultModel() string { return x.defaultModel }
func (x *Upstream) InjectLimit() int     { return x.injectLimit }
func (x *Upstream) MemoryEnabled() bool  { return x.memoryEnabled }
