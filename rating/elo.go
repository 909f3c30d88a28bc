package rating

import (
	"math"

	"debatehub/models"
)

const (
	defaultKFactor       = 32.0
	defaultInitialRating = 1200
)

// Outcome classifies a participant's result in a concluded debate.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Config holds system parameters
type Config struct {
	KFactor       float64 `json:"k_factor"`
	InitialRating int     `json:"initial_rating"`
}

// DefaultConfig returns recommended default parameters
func DefaultConfig() *Config {
	return &Config{
		KFactor:       defaultKFactor,
		InitialRating: defaultInitialRating,
	}
}

// Elo implements the rating system
type Elo struct {
	Config *Config
}

// New creates an Elo rating system with configuration
func New(config *Config) *Elo {
	if config == nil {
		config = DefaultConfig()
	}
	return &Elo{Config: config}
}

// Contender is one debate participant entering the rating calculation.
type Contender struct {
	UserID string
	Side   models.ParticipantSide
	Rating int
}

// Result is the computed rating change and outcome for a single user.
type Result struct {
	UserID    string
	Side      models.ParticipantSide
	OldRating int
	NewRating int
	Outcome   Outcome
}

// ExpectedScore returns the expected score of self against opponent.
func (e *Elo) ExpectedScore(self, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-self)/400.0))
}

// Evaluate computes rating results for a concluded debate. Every pair of
// participants on different sides is scored independently; per-user deltas
// are summed and rounded once. winnerSide is empty for a draw.
//
// A pair involving a neutral participant always scores 0.5 for both, as does
// every pair when there is no winner.
func (e *Elo) Evaluate(contenders []Contender, winnerSide models.ParticipantSide) []Result {
	deltas := make([]float64, len(contenders))

	for i := range contenders {
		for j := i + 1; j < len(contenders); j++ {
			a, b := contenders[i], contenders[j]
			if a.Side == b.Side {
				continue
			}

			score := pairScore(a.Side, b.Side, winnerSide)
			ea := e.ExpectedScore(a.Rating, b.Rating)
			eb := e.ExpectedScore(b.Rating, a.Rating)

			deltas[i] += e.Config.KFactor * (score - ea)
			deltas[j] += e.Config.KFactor * ((1 - score) - eb)
		}
	}

	results := make([]Result, len(contenders))
	for i, c := range contenders {
		results[i] = Result{
			UserID:    c.UserID,
			Side:      c.Side,
			OldRating: c.Rating,
			NewRating: int(math.Round(float64(c.Rating) + deltas[i])),
			Outcome:   outcomeFor(c.Side, winnerSide),
		}
	}
	return results
}

// pairScore returns the actual score of a against b.
func pairScore(a, b, winnerSide models.ParticipantSide) float64 {
	if winnerSide == "" || winnerSide == models.SideNeutral {
		return 0.5
	}
	if a == models.SideNeutral || b == models.SideNeutral {
		return 0.5
	}
	if a == winnerSide {
		return 1
	}
	if b == winnerSide {
		return 0
	}
	return 0.5
}

// outcomeFor classifies a participant's result relative to the winning side.
// A neutral winning side means no side carried the motion, so everyone
// records a draw, matching the 0.5 every pair scores in that case.
func outcomeFor(side, winnerSide models.ParticipantSide) Outcome {
	switch {
	case winnerSide == "" || winnerSide == models.SideNeutral:
		return OutcomeDraw
	case side == winnerSide:
		return OutcomeWin
	case side == models.SideNeutral:
		return OutcomeDraw
	default:
		return OutcomeLoss
	}
}
