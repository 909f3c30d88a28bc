package models

import "time"

// Participant is a (debate, user) membership row. A user appears at most
// once per debate; the side is immutable once the debate is active.
type Participant struct {
	ID       string          `bson:"_id" json:"id"`
	DebateID string          `bson:"debateId" json:"debateId"`
	UserID   string          `bson:"userId" json:"userId"`
	Side     ParticipantSide `bson:"side" json:"side"`
	JoinedAt time.Time       `bson:"joinedAt" json:"joinedAt"`
}
