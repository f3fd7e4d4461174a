package marketplace

import "github.com/sudo-init-do/skillswap/internal/models"

// Role is the caller's part in an exchange, resolved once per operation.
type Role int

const (
	RoleOutsider Role = iota
	RoleRequester
	RoleProvider
)

func (r Role) String() string {
	switch r {
	case RoleRequester:
		return "requester"
	case RoleProvider:
		return "provider"
	default:
		return "outsider"
	}
}

// RoleOf resolves userID's role in ex.
func RoleOf(ex *models.Exchange, userID string) Role {
	switch userID {
	case "":
		return RoleOutsider
	case ex.RequesterID:
		return RoleRequester
	case ex.ProviderID:
		return RoleProvider
	}
	return RoleOutsider
}

// Notification kinds sent to the Notifier.
const (
	NotifyExchangeRequested = "exchange_requested"
	NotifyExchangeWithdrawn = "exchange_withdrawn"
	NotifyStatusChanged     = "exchange_status_changed"
	NotifyMessageReceived   = "message_received"
	NotifyReviewReceived    = "review_received"
	NotifyTokensEarned      = "tokens_earned"
	NotifyBadgeEarned       = "badge_earned"
)

// Realtime event types published on an exchange thread.
const (
	EventMessageNew    = "message_new"
	EventStatusChanged = "status_changed"
	EventReviewAdded   = "review_added"
)

// Notifier delivers out-of-band notices. Notify must not block and its
// failures stay with the implementation.
type Notifier interface {
	Notify(kind, recipientID string, payload map[string]any)
}

// Event is pushed to everyone watching an exchange thread.
type Event struct {
	Type       string `json:"type"`
	ExchangeID string `json:"exchange_id"`
	Data       any    `json:"data,omitempty"`
}

// Events fans thread events out to live subscribers.
type Events interface {
	Publish(ev Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, map[string]any) {}

type nopEvents struct{}

func (nopEvents) Publish(Event) {}

// notice is a notification staged inside a transaction and sent after commit.
type notice struct {
	kind      string
	recipient string
	payload   map[string]any
}
