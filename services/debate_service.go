package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"debatehub/events"
	"debatehub/models"
	"debatehub/store"
)

// FactChecker dispatches verification jobs. Enqueue must not block; it
// reports false when the job was dropped.
type FactChecker interface {
	Enqueue(debateID, messageID, claim string) bool
}

// debateState carries the per-debate critical section plus the message
// ordering state that lives under it.
type debateState struct {
	mu      sync.Mutex
	loaded  bool
	seq     int64
	lastMsg time.Time
}

// DebateService owns the debate lifecycle: creation, joins, the
// waiting -> active -> concluded state machine, and message ingestion.
// Lifecycle-mutating operations on the same debate serialize on a per-debate
// mutex; different debates share nothing and proceed in parallel.
type DebateService struct {
	store       store.Store
	ratings     *RatingService
	factChecker FactChecker
	sink        events.Sink

	mu     sync.Mutex
	states map[string]*debateState
}

// NewDebateService wires the lifecycle controller. factChecker may be nil
// when no moderation backend is configured.
func NewDebateService(st store.Store, ratings *RatingService, factChecker FactChecker, sink events.Sink) *DebateService {
	if sink == nil {
		sink = events.Discard{}
	}
	return &DebateService{
		store:       st,
		ratings:     ratings,
		factChecker: factChecker,
		sink:        sink,
		states:      make(map[string]*debateState),
	}
}

func (s *DebateService) state(debateID string) *debateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[debateID]
	if !ok {
		st = &debateState{}
		s.states[debateID] = st
	}
	return st
}

func (s *DebateService) forgetState(debateID string) {
	s.mu.Lock()
	delete(s.states, debateID)
	s.mu.Unlock()
}

func (s *DebateService) emit(debateID, eventType string, payload interface{}) {
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("debate: build %s event: %v", eventType, err)
		return
	}
	s.sink.Publish(debateID, event)
}

// CreateDebate creates a debate in waiting state and joins the creator. An
// empty creatorSide defaults to neutral.
func (s *DebateService) CreateDebate(ctx context.Context, topic, description string, mode models.DebateMode, creatorID string, creatorSide models.ParticipantSide) (*models.Debate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic must not be empty", ErrInvalidInput)
	}
	if !models.ValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	if creatorSide == "" {
		creatorSide = models.SideNeutral
	}
	if !models.ValidSide(creatorSide) {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidInput, creatorSide)
	}
	if _, err := s.store.GetUser(ctx, creatorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown creator %q", ErrInvalidInput, creatorID)
		}
		return nil, fmt.Errorf("load creator: %w", err)
	}

	now := time.Now().UTC()
	debate := &models.Debate{
		ID:          uuid.NewString(),
		Topic:       topic,
		Description: strings.TrimSpace(description),
		Mode:        mode,
		Status:      models.StatusWaiting,
		CreatedBy:   creatorID,
		CreatedAt:   now,
	}
	if err := s.store.CreateDebate(ctx, debate); err != nil {
		return nil, fmt.Errorf("create debate: %w", err)
	}

	participant := &models.Participant{
		ID:       uuid.NewString(),
		DebateID: debate.ID,
		UserID:   creatorID,
		Side:     creatorSide,
		JoinedAt: now,
	}
	if err := s.store.AddParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("add creator: %w", err)
	}

	s.emit(debate.ID, events.TypeDebateCreated, events.DebatePayload{
		DebateID: debate.ID,
		Topic:    debate.Topic,
		Status:   string(debate.Status),
		Mode:     string(debate.Mode),
	})
	return debate, nil
}

// Join adds a user to a waiting debate. Concurrent joins for the same user
// resolve through the store's uniqueness constraint: exactly one succeeds.
func (s *DebateService) Join(ctx context.Context, debateID, userID string, side models.ParticipantSide) (*models.Participant, error) {
	if !models.ValidSide(side) {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidInput, side)
	}

	st := s.state(debateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	debate, err := s.getDebateLocked(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: debate is %s", ErrInvalidState, debate.Status)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %q", ErrInvalidInput, userID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	participant := &models.Participant{
		ID:       uuid.NewString(),
		DebateID: debateID,
		UserID:   userID,
		Side:     side,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.store.AddParticipant(ctx, participant); err != nil {
		if errors.Is(err, store.ErrDuplicateParticipant) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("add participant: %w", err)
	}

	s.emit(debateID, events.TypeParticipantJoined, events.ParticipantPayload{
		DebateID: debateID,
		UserID:   userID,
		Side:     string(side),
	})
	return participant, nil
}

// ChangeSide re-sides a participant. Only permitted while the debate is
// still waiting; sides freeze when it goes active.
func (s *DebateService) ChangeSide(ctx context.Context, debateID, userID string, side models.ParticipantSide) error {
	if !models.ValidSide(side) {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidInput, side)
	}

	st := s.state(debateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	debate, err := s.getDebateLocked(ctx, debateID)
	if err != nil {
		return err
	}
	if debate.Status != models.StatusWaiting {
		return fmt.Errorf("%w: side is frozen once the debate is %s", ErrInvalidState, debate.Status)
	}
	if err := s.store.UpdateParticipantSide(ctx, debateID, userID, side); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotParticipant
		}
		return fmt.Errorf("update side: %w", err)
	}
	return nil
}

// Start transitions waiting -> active. It requires quorum: at least one
// participant on each non-neutral side.
func (s *DebateService) Start(ctx context.Context, debateID string) (*models.Debate, error) {
	st := s.state(debateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	debate, err := s.getDebateLocked(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: debate is %s", ErrInvalidState, debate.Status)
	}

	participants, err := s.store.ListParticipants(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	var hasFor, hasAgainst bool
	for _, participant := range participants {
		switch participant.Side {
		case models.SideFor:
			hasFor = true
		case models.SideAgainst:
			hasAgainst = true
		}
	}
	if !hasFor || !hasAgainst {
		return nil, fmt.Errorf("%w: need at least one participant for and one against", ErrInvalidState)
	}

	debate.Status = models.StatusActive
	if err := s.store.UpdateDebate(ctx, debate); err != nil {
		return nil, fmt.Errorf("update debate: %w", err)
	}

	s.emit(debateID, events.TypeDebateStarted, events.DebatePayload{
		DebateID: debate.ID,
		Topic:    debate.Topic,
		Status:   string(debate.Status),
		Mode:     string(debate.Mode),
	})
	return debate, nil
}

// SendMessage appends a message to an active debate's transcript. Timestamps
// are monotonically non-decreasing per debate and the sequence number breaks
// ties, so acceptance order is the visibility order. For moderated debates a
// fact-check job is dispatched fire-and-forget; send returns once the
// message is durable, never waiting on verification.
func (s *DebateService) SendMessage(ctx context.Context, debateID, userID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}

	st := s.state(debateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	debate, err := s.getDebateLocked(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: debate is %s", ErrForbidden, debate.Status)
	}
	if _, err := s.store.GetParticipant(ctx, debateID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("load participant: %w", err)
	}

	if err := s.loadOrderingState(ctx, debateID, st); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if now.Before(st.lastMsg) {
		now = st.lastMsg
	}
	st.seq++

	message := &models.Message{
		ID:        uuid.NewString(),
		DebateID:  debateID,
		UserID:    userID,
		Content:   content,
		Seq:       st.seq,
		CreatedAt: now,
	}
	if err := s.store.AppendMessage(ctx, message); err != nil {
		st.seq--
		return nil, fmt.Errorf("append message: %w", err)
	}
	st.lastMsg = now

	s.emit(debateID, events.TypeMessageAppended, events.MessagePayload{
		MessageID: message.ID,
		DebateID:  debateID,
		UserID:    userID,
		Content:   content,
		Seq:       message.Seq,
	})

	if debate.Mode == models.ModeModerated && s.factChecker != nil {
		if !s.factChecker.Enqueue(debateID, message.ID, content) {
			log.Printf("debate %s: fact-check queue saturated, message %s left unverified",
				debateID, message.ID)
		}
	}
	return message, nil
}

// loadOrderingState restores seq and last timestamp from the stored
// transcript on first touch, so ordering survives restarts.
func (s *DebateService) loadOrderingState(ctx context.Context, debateID string, st *debateState) error {
	if st.loaded {
		return nil
	}
	messages, err := s.store.ListMessages(ctx, debateID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if len(messages) > 0 {
		tail := messages[len(messages)-1]
		st.seq = tail.Seq
		st.lastMsg = tail.CreatedAt
	}
	st.loaded = true
	return nil
}

// Conclude transitions active -> concluded and applies ratings exactly once.
// Ratings go first: the store's idempotency record is written in the same
// transaction as the deltas, so if persisting the status change fails a
// retried Conclude skips the deltas and only finishes the transition.
func (s *DebateService) Conclude(ctx context.Context, debateID, winnerID string) (*models.Debate, error) {
	st := s.state(debateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	debate, err := s.getDebateLocked(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if debate.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: debate is %s", ErrInvalidState, debate.Status)
	}

	participants, err := s.store.ListParticipants(ctx, debateID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	var winnerSide models.ParticipantSide
	if winnerID != "" {
		found := false
		for _, participant := range participants {
			if participant.UserID == winnerID {
				winnerSide = participant.Side
				found = true
				break
			}
		}
		if !found {
			return nil, ErrInvalidWinner
		}
	}

	concludedAt := time.Now().UTC()
	applied, err := s.ratings.ApplyConclusion(ctx, debateID, winnerSide, participants, concludedAt)
	if err != nil {
		return nil, fmt.Errorf("apply ratings: %w", err)
	}
	if !applied {
		log.Printf("debate %s: ratings already applied, finishing transition only", debateID)
	}

	debate.Status = models.StatusConcluded
	debate.WinnerID = winnerID
	debate.ConcludedAt = &concludedAt
	if err := s.store.UpdateDebate(ctx, debate); err != nil {
		return nil, fmt.Errorf("update debate: %w", err)
	}

	s.emit(debateID, events.TypeDebateConcluded, events.DebatePayload{
		DebateID: debate.ID,
		Topic:    debate.Topic,
		Status:   string(debate.Status),
		Mode:     string(debate.Mode),
		WinnerID: debate.WinnerID,
	})
	return debate, nil
}

// DeleteDebate removes a debate and everything it owns.
func (s *DebateService) DeleteDebate(ctx context.Context, debateID string) error {
	st := s.state(debateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.store.DeleteDebate(ctx, debateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.forgetState(debateID)
			return ErrDebateNotFound
		}
		return fmt.Errorf("delete debate: %w", err)
	}

	s.forgetState(debateID)
	return nil
}

// GetDebate returns a debate by id.
func (s *DebateService) GetDebate(ctx context.Context, debateID string) (*models.Debate, error) {
	return s.getDebate(ctx, debateID)
}

// ListDebates returns debates, optionally filtered by status ("" for all).
func (s *DebateService) ListDebates(ctx context.Context, status models.DebateStatus) ([]models.Debate, error) {
	if status != "" && status != models.StatusWaiting && status != models.StatusActive && status != models.StatusConcluded {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.store.ListDebates(ctx, status)
}

// ListParticipants returns participants in join order.
func (s *DebateService) ListParticipants(ctx context.Context, debateID string) ([]models.Participant, error) {
	if _, err := s.getDebate(ctx, debateID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, debateID)
}

// IsParticipant reports whether the user currently belongs to the debate.
func (s *DebateService) IsParticipant(ctx context.Context, debateID, userID string) (bool, error) {
	_, err := s.store.GetParticipant(ctx, debateID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListMessages returns the transcript in acceptance order.
func (s *DebateService) ListMessages(ctx context.Context, debateID string) ([]models.Message, error) {
	if _, err := s.getDebate(ctx, debateID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, debateID)
}

func (s *DebateService) getDebate(ctx context.Context, debateID string) (*models.Debate, error) {
	debate, err := s.store.GetDebate(ctx, debateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDebateNotFound
		}
		return nil, fmt.Errorf("load debate: %w", err)
	}
	return debate, nil
}

// getDebateLocked is getDebate for callers holding the debate's state lock.
// When the debate does not exist the lazily created state entry is dropped
// again, so probing unknown ids leaves the state map empty.
func (s *DebateService) getDebateLocked(ctx context.Context, debateID string) (*models.Debate, error) {
	debate, err := s.getDebate(ctx, debateID)
	if errors.Is(err, ErrDebateNotFound) {
		s.forgetState(debateID)
	}
	return debate, err
}
