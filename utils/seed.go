package utils

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"debatehub/models"
	"debatehub/store"
)

// SeedUsers creates a couple of starter users when the store is empty. User
// creation is otherwise external to the core; this only keeps a fresh
// install usable.
func SeedUsers(ctx context.Context, st store.Store) {
	existing, err := st.ListUsersByRating(ctx)
	if err != nil {
		log.Printf("seed: list users: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	now := time.Now().UTC()
	seedUsers := []models.User{
		{
			ID:        uuid.NewString(),
			Username:  "DebateMaster",
			Email:     "user1@example.com",
			Bio:       "Experienced debater",
			Rating:    models.DefaultRating,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        uuid.NewString(),
			Username:  "LogicLord",
			Email:     "user2@example.com",
			Bio:       "Lover of logical arguments",
			Rating:    models.DefaultRating,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for i := range seedUsers {
		if err := st.CreateUser(ctx, &seedUsers[i]); err != nil {
			log.Printf("seed: create user %s: %v", seedUsers[i].Username, err)
		}
	}
	log.Printf("seed: created %d starter users", len(seedUsers))
}
