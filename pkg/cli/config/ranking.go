package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/service/ranking"
	"github.com/urfave/cli/v3"
)

// Ranking holds CLI flags for the relevance scoring weights
type Ranking struct {
	keyword    float64
	importance float64
	recency    float64
}

// Flags returns CLI flags for ranking configuration
func (x *Ranking) Flags() []cli.Flag {
	defaults := ranking.DefaultWeights()
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "weight-keyword",
			Usage:       "Weight of the keyword hit ratio in relevance scoring",
			Value:       defaults.Keyword,
			Sources:     cli.EnvVars("MNEMO_WEIGHT_KEYWORD"),
			Destination: &x.keyword,
		},
		&cli.FloatFlag{
			Name:        "weight-importance",
			Usage:       "Weight of the stored importance in relevance scoring",
			Value:       defaults.Importance,
			Sources:     cli.EnvVars("MNEMO_WEIGHT_IMPORTANCE"),
			Destination: &x.importance,
		},
		&cli.FloatFlag{
			Name:        "weight-recency",
			Usage:       "Weight of the recency decay in relevance scoring",
			Value:       defaults.Recency,
			Sources:     cli.EnvVars("MNEMO_WEIGHT_RECENCY"),
			Destination: &x.recency,
		},
	}
}

// Configure validates the weights and returns them
func (x *Ranking) Configure() (ranking.Weights, error) {
	w := ranking.Weights{
		Keyword:    x.keyword,
		Importance: x.importance,
		Recency:    x.recency,
	}
	if w.Keyword < 0 || w.Importance < 0 || w.Recency < 0 {
		return ranking.Weights{}, goerr.New("ranking weights must not be negative",
			goerr.V("keyword", w.Keyword),
			goerr.V("importance", w.Importance),
			goerr.V("recency", w.Recency))
	}
	if w.Keyword+w.Importance+w.Recency == 0 {
		return ranking.Weights{}, goerr.New("at least one ranking weight must be positive")
	}
	return w, nil
}
