package models

import "time"

// ExchangeStatus is the lifecycle state of an exchange request.
type ExchangeStatus string

const (
	StatusPending   ExchangeStatus = "pending"
	StatusActive    ExchangeStatus = "active"
	StatusCompleted ExchangeStatus = "completed"
	StatusCancelled ExchangeStatus = "cancelled"
	StatusRejected  ExchangeStatus = "rejected"
)

// Terminal reports whether no transition may leave s.
func (s ExchangeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s ExchangeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Message is one entry in an exchange's conversation thread.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Exchange is a bilateral skill trade between a requester (learner) and a
// provider (the one sharing the skill).
type Exchange struct {
	ID             string         `json:"id"`
	RequesterID    string         `json:"requester_id"`
	ProviderID     string         `json:"provider_id"`
	RequestedSkill string         `json:"requested_skill"`
	OfferedSkill   string         `json:"offered_skill"`
	Status         ExchangeStatus `json:"status"`
	Messages       []Message      `json:"messages"`
	AcceptedAt     *time.Time     `json:"accepted_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Rating         *int           `json:"rating,omitempty"`
	Review         string         `json:"review,omitempty"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching
// shared state.
func (e *Exchange) Clone() *Exchange {
	c := *e
	c.Messages = append([]Message{}, e.Messages...)
	if e.AcceptedAt != nil {
		t := *e.AcceptedAt
		c.AcceptedAt = &t
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.Rating != nil {
		r := *e.Rating
		c.Rating = &r
	}
	return &c
}

// Counterpart returns the other participant's id.
func (e *Exchange) Counterpart(userID string) string {
	if userID == e.RequesterID {
		return e.ProviderID
	}
	return e.RequesterID
}
