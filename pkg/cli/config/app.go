package config

import (
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig is the TOML application configuration: the persona prompt, the
// extraction denylist and the seed memories.
type AppConfig struct {
	Persona  string   `toml:"persona"`
	Denylist []string `toml:"denylist"`
	Seeds    []Seed   `toml:"seed"`

	path string
}

// Seed is one bootstrap memory entry
type Seed struct {
	Content    string `toml:"content"`
	Importance int    `toml:"importance"`
}

// Validate checks if the Seed is valid
func (s *Seed) Validate() error {
	if strings.TrimSpace(s.Content) == "" {
		return goerr.New("seed content is required")
	}
	if s.Importance < 0 || s.Importance > model.MaxImportance {
		return goerr.New("seed importance out of range",
			goerr.V("content", s.Content),
			goerr.V("importance", s.Importance))
	}
	return nil
}

// Flags returns CLI flags for application configuration
func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to the application TOML config (persona, denylist, seeds)",
			Sources:     cli.EnvVars("MNEMO_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Load reads and validates the TOML file. Without a configured path it
// leaves the zero values in place.
func (a *AppConfig) Load() error {
	if a.path == "" {
		return nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", a.path))
	}
	if err := toml.Unmarshal(data, a); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", a.path))
	}
	return a.Validate()
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	for _, seed := range a.Seeds {
		if err := seed.Validate(); err != nil {
			return goerr.Wrap(err, "invalid seed entry")
		}
	}
	for _, term := range a.Denylist {
		if strings.TrimSpace(term) == "" {
			return goerr.New("denylist terms must not be blank")
		}
	}
	return nil
}

// SeedRecords converts the seed entries into importable records
func (a *AppConfig) SeedRecords() []model.MemoryRecord {
	records := make([]model.MemoryRecord, 0, len(a.Seeds))
	for _, seed := range a.Seeds {
		records = append(records, model.MemoryRecord{
			Content:    strings.TrimSpace(seed.Content),
			Importance: seed.Importance,
		})
	}
	return records
}
