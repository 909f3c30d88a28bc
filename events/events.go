package events

import (
	"encoding/json"
	"time"
)

// Lifecycle event types published by the debate core.
const (
	TypeDebateCreated      = "debate_created"
	TypeParticipantJoined  = "participant_joined"
	TypeDebateStarted      = "debate_started"
	TypeMessageAppended    = "message_appended"
	TypeFactCheckCompleted = "fact_check_completed"
	TypeDebateConcluded    = "debate_concluded"
)

// Event is the envelope delivered to sinks.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// DebatePayload describes a debate lifecycle transition.
type DebatePayload struct {
	DebateID string `json:"debateId"`
	Topic    string `json:"topic"`
	Status   string `json:"status"`
	Mode     string `json:"mode"`
	WinnerID string `json:"winnerId,omitempty"`
}

// ParticipantPayload describes a join.
type ParticipantPayload struct {
	DebateID string `json:"debateId"`
	UserID   string `json:"userId"`
	Side     string `json:"side"`
}

// MessagePayload describes an accepted message.
type MessagePayload struct {
	MessageID string `json:"messageId"`
	DebateID  string `json:"debateId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Seq       int64  `json:"seq"`
}

// FactCheckPayload describes a completed verification.
type FactCheckPayload struct {
	MessageID       string   `json:"messageId"`
	DebateID        string   `json:"debateId"`
	Result          string   `json:"result"`
	ConfidenceScore *float64 `json:"confidenceScore,omitempty"`
	Flagged         bool     `json:"flagged"`
}

// NewEvent creates a new event with timestamp
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().Unix(),
	}, nil
}

// Sink receives lifecycle notifications. Publish is fire-and-forget: it must
// never block the caller and delivery failures stay inside the sink.
type Sink interface {
	Publish(debateID string, event *Event)
}

// Fanout delivers every event to each wrapped sink.
type Fanout []Sink

func (f Fanout) Publish(debateID string, event *Event) {
	for _, sink := range f {
		sink.Publish(debateID, event)
	}
}

// Discard drops every event. Used when no transport is attached.
type Discard struct{}

func (Discard) Publish(string, *Event) {}
