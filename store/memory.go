package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"debatehub/models"
	"debatehub/rating"
)

// MemoryStore is an in-process Store used by tests and local development.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string]models.User
	stats        map[string]models.UserStats
	debates      map[string]models.Debate
	participants map[string][]models.Participant // debateID -> join order
	messages     map[string][]models.Message     // debateID -> acceptance order
	factChecks   map[string]models.FactCheck     // messageID -> row
	applied      map[string]bool                 // debateID -> ratings applied
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]models.User),
		stats:        make(map[string]models.UserStats),
		debates:      make(map[string]models.Debate),
		participants: make(map[string][]models.Participant),
		messages:     make(map[string][]models.Message),
		factChecks:   make(map[string]models.FactCheck),
		applied:      make(map[string]bool),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	s.stats[user.ID] = models.UserStats{UserID: user.ID, UpdatedAt: user.CreatedAt}
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) GetUsers(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, ok := s.users[id]
		if !ok {
			return nil, ErrNotFound
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *MemoryStore) ListUsersByRating(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Rating != users[j].Rating {
			return users[i].Rating > users[j].Rating
		}
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *MemoryStore) GetUserStats(_ context.Context, userID string) (*models.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &stats, nil
}

func (s *MemoryStore) CreateDebate(_ context.Context, debate *models.Debate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debates[debate.ID] = *debate
	return nil
}

func (s *MemoryStore) GetDebate(_ context.Context, id string) (*models.Debate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	debate, ok := s.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &debate, nil
}

func (s *MemoryStore) UpdateDebate(_ context.Context, debate *models.Debate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debates[debate.ID]; !ok {
		return ErrNotFound
	}
	s.debates[debate.ID] = *debate
	return nil
}

func (s *MemoryStore) ListDebates(_ context.Context, status models.DebateStatus) ([]models.Debate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	debates := make([]models.Debate, 0, len(s.debates))
	for _, debate := range s.debates {
		if status != "" && debate.Status != status {
			continue
		}
		debates = append(debates, debate)
	}
	sort.Slice(debates, func(i, j int) bool {
		return debates[i].CreatedAt.Before(debates[j].CreatedAt)
	})
	return debates, nil
}

// DeleteDebate removes a debate together with its participants, messages
// and their fact checks.
func (s *MemoryStore) DeleteDebate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debates[id]; !ok {
		return ErrNotFound
	}
	delete(s.debates, id)
	delete(s.participants, id)
	for _, message := range s.messages[id] {
		delete(s.factChecks, message.ID)
	}
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) AddParticipant(_ context.Context, participant *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participants[participant.DebateID] {
		if existing.UserID == participant.UserID {
			return ErrDuplicateParticipant
		}
	}
	s.participants[participant.DebateID] = append(s.participants[participant.DebateID], *participant)
	return nil
}

func (s *MemoryStore) GetParticipant(_ context.Context, debateID, userID string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, participant := range s.participants[debateID] {
		if participant.UserID == userID {
			return &participant, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListParticipants(_ context.Context, debateID string) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participants := make([]models.Participant, len(s.participants[debateID]))
	copy(participants, s.participants[debateID])
	return participants, nil
}

func (s *MemoryStore) UpdateParticipantSide(_ context.Context, debateID, userID string, side models.ParticipantSide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	participants := s.participants[debateID]
	for i := range participants {
		if participants[i].UserID == userID {
			participants[i].Side = side
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) AppendMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[message.DebateID] = append(s.messages[message.DebateID], *message)
	return nil
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, messages := range s.messages {
		for _, message := range messages {
			if message.ID == id {
				return &message, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListMessages(_ context.Context, debateID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]models.Message, len(s.messages[debateID]))
	copy(messages, s.messages[debateID])
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].Seq < messages[j].Seq
	})
	return messages, nil
}

func (s *MemoryStore) SetMessageFlagged(_ context.Context, messageID string, flagged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for debateID, messages := range s.messages {
		for i := range messages {
			if messages[i].ID == messageID {
				s.messages[debateID][i].IsFlagged = flagged
				return nil
			}
		}
	}
	return ErrNotFound
}

// UpsertFactCheck stores the fact check for its message, replacing any
// earlier attempt. The messageID key keeps the row unique.
func (s *MemoryStore) UpsertFactCheck(_ context.Context, factCheck *models.FactCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.factChecks[factCheck.MessageID]; ok {
		factCheck.ID = existing.ID
	}
	s.factChecks[factCheck.MessageID] = *factCheck
	return nil
}

func (s *MemoryStore) GetFactCheckByMessage(_ context.Context, messageID string) (*models.FactCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	factCheck, ok := s.factChecks[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	return &factCheck, nil
}

// ApplyRatingUpdates applies a debate conclusion as one atomic unit. The
// applied set is the idempotency record: a repeat call for the same debate
// changes nothing and reports applied=false.
func (s *MemoryStore) ApplyRatingUpdates(_ context.Context, debateID string, concludedAt time.Time, updates []RatingUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied[debateID] {
		return false, nil
	}

	for _, update := range updates {
		if _, ok := s.users[update.UserID]; !ok {
			return false, ErrNotFound
		}
	}

	s.applied[debateID] = true
	for _, update := range updates {
		user := s.users[update.UserID]
		user.Rating = update.NewRating
		user.UpdatedAt = concludedAt
		s.users[update.UserID] = user

		stats := s.stats[update.UserID]
		stats.UserID = update.UserID
		stats.TotalDebates++
		switch update.Outcome {
		case rating.OutcomeWin:
			stats.Wins++
		case rating.OutcomeLoss:
			stats.Losses++
		default:
			stats.Draws++
		}
		stats.RatingHistory = append(stats.RatingHistory, models.RatingHistoryEntry{
			Timestamp: concludedAt,
			Rating:    update.NewRating,
		})
		stats.UpdatedAt = concludedAt
		s.stats[update.UserID] = stats
	}
	return true, nil
}
