// Package alerts delivers engine notifications as in-app notices, either
// through an asynq queue or inline when no queue is configured.
package alerts

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskDeliverNotification = "notification:deliver"
)

// Queue names and their worker priorities.
const (
	QueueNotifications = "notifications"
)

// DeliverPayload is the body of a TaskDeliverNotification task.
type DeliverPayload struct {
	Kind        string         `json:"kind"`
	RecipientID string         `json:"recipient_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	QueuedAt    time.Time      `json:"queued_at"`
}

// NewDeliverTask wraps a notification in an asynq task.
func NewDeliverTask(kind, recipientID string, payload map[string]any) (*asynq.Task, error) {
	b, err := json.Marshal(DeliverPayload{
		Kind:        kind,
		RecipientID: recipientID,
		Payload:     payload,
		QueuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliverNotification, b), nil
}
