package models

import "time"

// Message is one transcript entry. Seq is assigned under the debate lock and
// breaks ties between messages sharing a timestamp, so ordering by
// (createdAt, seq) reproduces acceptance order.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	DebateID  string    `bson:"debateId" json:"debateId"`
	UserID    string    `bson:"userId" json:"userId"`
	Content   string    `bson:"content" json:"content"`
	IsFlagged bool      `bson:"isFlagged" json:"isFlagged"`
	Seq       int64     `bson:"seq" json:"seq"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
