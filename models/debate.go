package models

import "time"

// DebateMode determines whether messages pass through the fact-check pipeline.
type DebateMode string

const (
	ModeUnmoderated DebateMode = "unmoderated"
	ModeModerated   DebateMode = "moderated"
)

// DebateStatus is the lifecycle state of a debate. Transitions only move
// forward: waiting -> active -> concluded.
type DebateStatus string

const (
	StatusWaiting   DebateStatus = "waiting"
	StatusActive    DebateStatus = "active"
	StatusConcluded DebateStatus = "concluded"
)

// ParticipantSide is the position a participant argues from.
type ParticipantSide string

const (
	SideFor     ParticipantSide = "for"
	SideAgainst ParticipantSide = "against"
	SideNeutral ParticipantSide = "neutral"
)

// ValidMode reports whether m is one of the closed set of debate modes.
func ValidMode(m DebateMode) bool {
	return m == ModeUnmoderated || m == ModeModerated
}

// ValidSide reports whether s is one of the closed set of participant sides.
func ValidSide(s ParticipantSide) bool {
	return s == SideFor || s == SideAgainst || s == SideNeutral
}

// Debate defines a single debate session.
// ConcludedAt is set exactly when Status becomes StatusConcluded.
// WinnerID is empty for a draw and may only be set on a concluded debate.
type Debate struct {
	ID          string       `bson:"_id" json:"id"`
	Topic       string       `bson:"topic" json:"topic"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Mode        DebateMode   `bson:"mode" json:"mode"`
	Status      DebateStatus `bson:"status" json:"status"`
	CreatedBy   string       `bson:"createdBy" json:"createdBy"`
	WinnerID    string       `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	ConcludedAt *time.Time   `bson:"concludedAt,omitempty" json:"concludedAt,omitempty"`
}
