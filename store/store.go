package store

import (
	"context"
	"errors"
	"time"

	"debatehub/models"
	"debatehub/rating"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateParticipant is returned when a (debate, user) pair
	// already exists. The uniqueness constraint makes concurrent joins
	// resolve to exactly one winner.
	ErrDuplicateParticipant = errors.New("store: participant already exists")
)

// RatingUpdate is one participant's share of a debate conclusion.
type RatingUpdate struct {
	UserID    string
	NewRating int
	Outcome   rating.Outcome
}

// Store is the durable storage collaborator for the debate core.
//
// ApplyRatingUpdates is the transactional primitive used by the rating
// engine: all updates land atomically together with an idempotency record
// keyed on the debate id. A second call for the same debate is a no-op and
// reports applied=false.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsersByRating(ctx context.Context) ([]models.User, error)
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)

	// Debates
	CreateDebate(ctx context.Context, debate *models.Debate) error
	GetDebate(ctx context.Context, id string) (*models.Debate, error)
	UpdateDebate(ctx context.Context, debate *models.Debate) error
	ListDebates(ctx context.Context, status models.DebateStatus) ([]models.Debate, error)
	DeleteDebate(ctx context.Context, id string) error

	// Participants
	AddParticipant(ctx context.Context, participant *models.Participant) error
	GetParticipant(ctx context.Context, debateID, userID string) (*models.Participant, error)
	ListParticipants(ctx context.Context, debateID string) ([]models.Participant, error)
	UpdateParticipantSide(ctx context.Context, debateID, userID string, side models.ParticipantSide) error

	// Messages
	AppendMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, debateID string) ([]models.Message, error)
	SetMessageFlagged(ctx context.Context, messageID string, flagged bool) error

	// Fact checks
	UpsertFactCheck(ctx context.Context, factCheck *models.FactCheck) error
	GetFactCheckByMessage(ctx context.Context, messageID string) (*models.FactCheck, error)

	// Rating conclusion
	ApplyRatingUpdates(ctx context.Context, debateID string, concludedAt time.Time, updates []RatingUpdate) (bool, error)
}
