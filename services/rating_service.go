package services

import (
	"context"
	"fmt"
	"time"

	"debatehub/models"
	"debatehub/rating"
	"debatehub/store"
)

// RatingService computes and applies rating deltas when a debate concludes.
type RatingService struct {
	store  store.Store
	engine *rating.Elo
}

// NewRatingService creates a rating service. A nil engine uses defaults.
func NewRatingService(st store.Store, engine *rating.Elo) *RatingService {
	if engine == nil {
		engine = rating.New(nil)
	}
	return &RatingService{store: st, engine: engine}
}

// ApplyConclusion evaluates all pairwise outcomes for a concluded debate and
// applies the resulting updates as one atomic unit. The store's idempotency
// record keyed on the debate id makes a repeat call a no-op, so a retried
// conclusion never double-counts; applied reports whether this call wrote.
func (s *RatingService) ApplyConclusion(ctx context.Context, debateID string, winnerSide models.ParticipantSide, participants []models.Participant, concludedAt time.Time) (bool, error) {
	if len(participants) == 0 {
		return false, nil
	}

	userIDs := make([]string, len(participants))
	for i, participant := range participants {
		userIDs[i] = participant.UserID
	}
	users, err := s.store.GetUsers(ctx, userIDs)
	if err != nil {
		return false, fmt.Errorf("load participants: %w", err)
	}

	contenders := make([]rating.Contender, len(participants))
	for i, participant := range participants {
		contenders[i] = rating.Contender{
			UserID: participant.UserID,
			Side:   participant.Side,
			Rating: users[i].Rating,
		}
	}

	results := s.engine.Evaluate(contenders, winnerSide)
	updates := make([]store.RatingUpdate, len(results))
	for i, result := range results {
		updates[i] = store.RatingUpdate{
			UserID:    result.UserID,
			NewRating: result.NewRating,
			Outcome:   result.Outcome,
		}
	}
	return s.store.ApplyRatingUpdates(ctx, debateID, concludedAt, updates)
}
