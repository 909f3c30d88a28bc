package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"debatehub/models"
	"debatehub/rating"
)

func seedUser(t *testing.T, s *MemoryStore, id string, userRating int) {
	t.Helper()
	now := time.Now().UTC()
	err := s.CreateUser(context.Background(), &models.User{
		ID:        id,
		Username:  id,
		Email:     id + "@example.com",
		Rating:    userRating,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
}

func TestAddParticipantUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := &models.Participant{ID: uuid.NewString(), DebateID: "d1", UserID: "u1", Side: models.SideFor}
	if err := s.AddParticipant(ctx, first); err != nil {
		t.Fatalf("First AddParticipant failed: %v", err)
	}

	dup := &models.Participant{ID: uuid.NewString(), DebateID: "d1", UserID: "u1", Side: models.SideAgainst}
	if err := s.AddParticipant(ctx, dup); err != ErrDuplicateParticipant {
		t.Errorf("Expected ErrDuplicateParticipant, got %v", err)
	}

	other := &models.Participant{ID: uuid.NewString(), DebateID: "d2", UserID: "u1", Side: models.SideFor}
	if err := s.AddParticipant(ctx, other); err != nil {
		t.Errorf("Same user on another debate should join: %v", err)
	}
}

func TestConcurrentJoinsSingleWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &models.Participant{ID: uuid.NewString(), DebateID: "d1", UserID: "u1", Side: models.SideFor}
			if err := s.AddParticipant(ctx, p); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 successful join, got %d", count)
	}

	participants, err := s.ListParticipants(ctx, "d1")
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(participants) != 1 {
		t.Errorf("Expected 1 participant row, got %d", len(participants))
	}
}

func TestListMessagesOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ts := time.Now().UTC()
	// Two messages share a timestamp; seq breaks the tie.
	messages := []models.Message{
		{ID: "m1", DebateID: "d1", UserID: "u1", Content: "first", Seq: 1, CreatedAt: ts},
		{ID: "m2", DebateID: "d1", UserID: "u2", Content: "second", Seq: 2, CreatedAt: ts},
		{ID: "m3", DebateID: "d1", UserID: "u1", Content: "third", Seq: 3, CreatedAt: ts.Add(time.Millisecond)},
	}
	for i := range messages {
		if err := s.AppendMessage(ctx, &messages[i]); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	listed, err := s.ListMessages(ctx, "d1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	for i, message := range listed {
		if message.Seq != int64(i+1) {
			t.Errorf("Position %d holds seq %d", i, message.Seq)
		}
	}
}

func TestUpsertFactCheckSingleRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	confidence := 0.9
	first := &models.FactCheck{ID: "f1", MessageID: "m1", Claim: "claim", VerificationResult: "true", ConfidenceScore: &confidence}
	if err := s.UpsertFactCheck(ctx, first); err != nil {
		t.Fatalf("UpsertFactCheck: %v", err)
	}

	lower := 0.2
	retry := &models.FactCheck{ID: "f2", MessageID: "m1", Claim: "claim", VerificationResult: "false", ConfidenceScore: &lower}
	if err := s.UpsertFactCheck(ctx, retry); err != nil {
		t.Fatalf("UpsertFactCheck retry: %v", err)
	}

	row, err := s.GetFactCheckByMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("GetFactCheckByMessage: %v", err)
	}
	if row.ID != "f1" {
		t.Errorf("Retry should keep the original row id, got %s", row.ID)
	}
	if row.VerificationResult != "false" {
		t.Errorf("Retry should overwrite the result, got %s", row.VerificationResult)
	}
}

func TestApplyRatingUpdatesIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", 1200)
	seedUser(t, s, "u2", 1200)

	concludedAt := time.Now().UTC()
	updates := []RatingUpdate{
		{UserID: "u1", NewRating: 1216, Outcome: rating.OutcomeWin},
		{UserID: "u2", NewRating: 1184, Outcome: rating.OutcomeLoss},
	}

	applied, err := s.ApplyRatingUpdates(ctx, "d1", concludedAt, updates)
	if err != nil {
		t.Fatalf("ApplyRatingUpdates: %v", err)
	}
	if !applied {
		t.Fatal("First apply should report applied=true")
	}

	applied, err = s.ApplyRatingUpdates(ctx, "d1", concludedAt, updates)
	if err != nil {
		t.Fatalf("Second ApplyRatingUpdates: %v", err)
	}
	if applied {
		t.Error("Second apply should be a no-op")
	}

	user, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Rating != 1216 {
		t.Errorf("Expected rating 1216, got %d", user.Rating)
	}

	stats, err := s.GetUserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats.TotalDebates != 1 || stats.Wins != 1 {
		t.Errorf("Expected 1 debate and 1 win, got %d/%d", stats.TotalDebates, stats.Wins)
	}
	if stats.TotalDebates != stats.Wins+stats.Losses+stats.Draws {
		t.Errorf("Stats totals out of balance: %+v", stats)
	}
	if len(stats.RatingHistory) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(stats.RatingHistory))
	}
}

func TestApplyRatingUpdatesAtomicOnMissingUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, s, "u1", 1200)

	updates := []RatingUpdate{
		{UserID: "u1", NewRating: 1216, Outcome: rating.OutcomeWin},
		{UserID: "ghost", NewRating: 1184, Outcome: rating.OutcomeLoss},
	}
	applied, err := s.ApplyRatingUpdates(ctx, "d1", time.Now().UTC(), updates)
	if err == nil || applied {
		t.Fatalf("Expected failure for unknown user, got applied=%v err=%v", applied, err)
	}

	// Nothing may have been applied partially.
	user, _ := s.GetUser(ctx, "u1")
	if user.Rating != 1200 {
		t.Errorf("Partial apply leaked: rating %d", user.Rating)
	}
	applied, err = s.ApplyRatingUpdates(ctx, "d1", time.Now().UTC(), updates[:1])
	if err != nil || !applied {
		t.Errorf("Retry after failure should apply, got applied=%v err=%v", applied, err)
	}
}

func TestDeleteDebateCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	debate := &models.Debate{ID: "d1", Topic: "t", Mode: models.ModeModerated, Status: models.StatusWaiting, CreatedAt: time.Now()}
	if err := s.CreateDebate(ctx, debate); err != nil {
		t.Fatalf("CreateDebate: %v", err)
	}
	s.AddParticipant(ctx, &models.Participant{ID: "p1", DebateID: "d1", UserID: "u1", Side: models.SideFor})
	s.AppendMessage(ctx, &models.Message{ID: "m1", DebateID: "d1", UserID: "u1", Content: "c", Seq: 1, CreatedAt: time.Now()})
	s.UpsertFactCheck(ctx, &models.FactCheck{ID: "f1", MessageID: "m1", Claim: "c"})

	if err := s.DeleteDebate(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDebate: %v", err)
	}

	if _, err := s.GetDebate(ctx, "d1"); err != ErrNotFound {
		t.Errorf("Debate should be gone, got %v", err)
	}
	participants, _ := s.ListParticipants(ctx, "d1")
	if len(participants) != 0 {
		t.Errorf("Participants should cascade, got %d", len(participants))
	}
	messages, _ := s.ListMessages(ctx, "d1")
	if len(messages) != 0 {
		t.Errorf("Messages should cascade, got %d", len(messages))
	}
	if _, err := s.GetFactCheckByMessage(ctx, "m1"); err != ErrNotFound {
		t.Errorf("Fact check should cascade, got %v", err)
	}
}
