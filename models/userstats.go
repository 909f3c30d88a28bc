package models

import "time"

// RatingHistoryEntry is one point in a user's rating history, appended once
// per concluded debate the user participated in.
type RatingHistoryEntry struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Rating    int       `bson:"rating" json:"rating"`
}

// UserStats holds per-user aggregates. TotalDebates always equals
// Wins + Losses + Draws.
type UserStats struct {
	UserID        string               `bson:"_id" json:"userId"`
	TotalDebates  int                  `bson:"totalDebates" json:"totalDebates"`
	Wins          int                  `bson:"wins" json:"wins"`
	Losses        int                  `bson:"losses" json:"losses"`
	Draws         int                  `bson:"draws" json:"draws"`
	RatingHistory []RatingHistoryEntry `bson:"ratingHistory" json:"ratingHistory"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}
