// Package marketplace runs the exchange lifecycle: requests, the status
// state machine with its completion rewards, the message thread, reviews
// and partner recommendations.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sudo-init-do/skillswap/internal/badge"
	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
	"github.com/sudo-init-do/skillswap/internal/wallet"
)

const maxMessageLen = 2000

// transitions is the status graph. Terminal states have no entry.
var transitions = map[models.ExchangeStatus][]models.ExchangeStatus{
	models.StatusPending: {models.StatusActive, models.StatusRejected, models.StatusCancelled},
	models.StatusActive:  {models.StatusCompleted, models.StatusCancelled},
}

// CanTransition reports whether the graph has an edge from -> to.
func CanTransition(from, to models.ExchangeStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// allowed reports whether role may request the move to target.
func allowed(role Role, target models.ExchangeStatus) bool {
	switch target {
	case models.StatusActive, models.StatusRejected:
		return role == RoleProvider
	case models.StatusCancelled, models.StatusCompleted:
		return role == RoleRequester || role == RoleProvider
	}
	return false
}

// Engine applies exchange operations. Every write runs in one store
// transaction and is retried on version conflicts.
type Engine struct {
	store    store.Store
	ledger   *wallet.Ledger
	notifier Notifier
	events   Events
	retries  int
	now      func() time.Time
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithEvents(ev Events) Option { return func(e *Engine) { e.events = ev } }

// WithConflictRetries sets how many times a conflicting write is re-run.
func WithConflictRetries(n int) Option { return func(e *Engine) { e.retries = n } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(s store.Store, l *wallet.Ledger, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		ledger:   l,
		notifier: nopNotifier{},
		events:   nopEvents{},
		retries:  3,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run executes fn in a transaction, re-running it when the store reports a
// version conflict. fn must be safe to repeat from scratch.
func (e *Engine) run(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt <= e.retries; attempt++ {
		err = e.store.WithTx(ctx, fn)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		log.Printf("[exchange] %s: conflict on attempt %d: %v", op, attempt+1, err)
	}
	return err
}

func (e *Engine) dispatch(notices []notice) {
	for _, n := range notices {
		e.notifier.Notify(n.kind, n.recipient, n.payload)
	}
}

// Create opens a pending exchange from requesterID to providerID.
func (e *Engine) Create(ctx context.Context, requesterID, providerID, requestedSkill, offeredSkill string) (*models.Exchange, error) {
	requestedSkill = strings.TrimSpace(requestedSkill)
	offeredSkill = strings.TrimSpace(offeredSkill)
	switch {
	case providerID == "":
		return nil, fmt.Errorf("%w: provider_id is required", domain.ErrValidation)
	case requestedSkill == "" || offeredSkill == "":
		return nil, fmt.Errorf("%w: requested_skill and offered_skill are required", domain.ErrValidation)
	case requesterID == providerID:
		return nil, fmt.Errorf("%w: cannot request an exchange with yourself", domain.ErrValidation)
	}

	requester, err := e.store.GetUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	provider, err := e.store.GetUser(ctx, providerID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	ex := &models.Exchange{
		ID:             uuid.New().String(),
		RequesterID:    requester.ID,
		ProviderID:     provider.ID,
		RequestedSkill: requestedSkill,
		OfferedSkill:   offeredSkill,
		Status:         models.StatusPending,
		Messages:       []models.Message{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.CreateExchange(ctx, ex); err != nil {
		return nil, err
	}

	log.Printf("[exchange] %s created by %s for %s", ex.ID, requester.ID, provider.ID)
	e.notifier.Notify(NotifyExchangeRequested, provider.ID, map[string]any{
		"exchange_id":     ex.ID,
		"requester_id":    requester.ID,
		"requester_name":  requester.Name,
		"requested_skill": ex.RequestedSkill,
		"offered_skill":   ex.OfferedSkill,
	})
	return ex, nil
}

// Get returns an exchange to one of its participants.
func (e *Engine) Get(ctx context.Context, exchangeID, callerID string) (*models.Exchange, error) {
	ex, err := e.store.GetExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if RoleOf(ex, callerID) == RoleOutsider {
		return nil, fmt.Errorf("%w: not a participant of exchange %s", domain.ErrForbidden, exchangeID)
	}
	return ex, nil
}

func (e *Engine) ListForUser(ctx context.Context, userID string) ([]models.Exchange, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListExchangesForUser(ctx, userID)
}

// Transition moves an exchange to target on behalf of callerID. On
// completion both parties are rewarded in the same transaction, and the
// status is written after every side effect.
func (e *Engine) Transition(ctx context.Context, exchangeID, callerID string, target models.ExchangeStatus) (*models.Exchange, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, target)
	}

	var (
		result  *models.Exchange
		from    models.ExchangeStatus
		notices []notice
	)
	err := e.run(ctx, "transition", func(tx store.Tx) error {
		notices = nil

		ex, err := tx.GetExchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		role := RoleOf(ex, callerID)
		if role == RoleOutsider {
			return fmt.Errorf("%w: not a participant of exchange %s", domain.ErrForbidden, exchangeID)
		}
		if !CanTransition(ex.Status, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, ex.Status, target)
		}
		if !allowed(role, target) {
			return fmt.Errorf("%w: %s may not move exchange to %s", domain.ErrForbidden, role, target)
		}

		now := e.now()
		switch target {
		case models.StatusActive:
			if ex.AcceptedAt == nil {
				ex.AcceptedAt = &now
			}
		case models.StatusCompleted:
			if ex.CompletedAt == nil {
				ex.CompletedAt = &now
			}
			completed, err := e.complete(ctx, tx, ex)
			if err != nil {
				return err
			}
			notices = append(notices, completed...)
		}

		from = ex.Status
		ex.Status = target
		ex.UpdatedAt = now
		if err := tx.UpdateExchange(ctx, ex); err != nil {
			return err
		}

		notices = append(notices, notice{
			kind:      NotifyStatusChanged,
			recipient: ex.Counterpart(callerID),
			payload: map[string]any{
				"exchange_id": ex.ID,
				"from":        string(from),
				"to":          string(target),
				"by":          callerID,
			},
		})
		result = ex
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[exchange] %s %s -> %s by %s", result.ID, from, target, callerID)
	e.events.Publish(Event{
		Type:       EventStatusChanged,
		ExchangeID: result.ID,
		Data:       map[string]any{"from": from, "to": target, "by": callerID},
	})
	e.dispatch(notices)
	return result, nil
}

// complete credits, counts and badges both parties. Users are locked in
// ascending id order so concurrent completions cannot deadlock.
func (e *Engine) complete(ctx context.Context, tx store.Tx, ex *models.Exchange) ([]notice, error) {
	parties := []string{ex.RequesterID, ex.ProviderID}
	sort.Strings(parties)

	var notices []notice
	for _, id := range parties {
		u, err := tx.LockUser(ctx, id)
		if err != nil {
			return nil, err
		}

		reward := completionReward(ex, u)
		balance, err := e.ledger.Credit(ctx, tx, u.ID, reward, models.EntryEarned,
			fmt.Sprintf("Completed exchange: %s", ex.RequestedSkill), &ex.ID)
		if err != nil {
			return nil, fmt.Errorf("reward %s: %w", u.ID, err)
		}

		total, err := tx.IncrementExchanges(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		granted, err := tx.GrantBadges(ctx, u.ID, badge.Evaluate(total, u.Badges))
		if err != nil {
			return nil, err
		}

		notices = append(notices, notice{
			kind:      NotifyTokensEarned,
			recipient: u.ID,
			payload: map[string]any{
				"exchange_id":     ex.ID,
				"amount":          reward,
				"balance":         balance,
				"total_exchanges": total,
			},
		})
		for _, b := range granted {
			notices = append(notices, notice{
				kind:      NotifyBadgeEarned,
				recipient: u.ID,
				payload:   map[string]any{"badge": b, "exchange_id": ex.ID},
			})
		}
	}
	return notices, nil
}

// AddMessage appends to the thread of a pending or active exchange.
func (e *Engine) AddMessage(ctx context.Context, exchangeID, callerID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return nil, fmt.Errorf("%w: message too long (max %d characters)", domain.ErrValidation, maxMessageLen)
	}

	var (
		msg       models.Message
		recipient string
	)
	err := e.run(ctx, "message", func(tx store.Tx) error {
		ex, err := tx.GetExchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		if RoleOf(ex, callerID) == RoleOutsider {
			return fmt.Errorf("%w: not a participant of exchange %s", domain.ErrForbidden, exchangeID)
		}
		if ex.Status != models.StatusPending && ex.Status != models.StatusActive {
			return fmt.Errorf("%w: cannot message a %s exchange", domain.ErrInvalidTransition, ex.Status)
		}

		now := e.now()
		msg = models.Message{ID: uuid.New().String(), SenderID: callerID, Text: text, CreatedAt: now}
		if err := tx.AppendMessage(ctx, ex.ID, msg); err != nil {
			return err
		}
		// bumping the version orders the append against concurrent transitions
		ex.UpdatedAt = now
		if err := tx.UpdateExchange(ctx, ex); err != nil {
			return err
		}
		recipient = ex.Counterpart(callerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.events.Publish(Event{Type: EventMessageNew, ExchangeID: exchangeID, Data: msg})
	e.notifier.Notify(NotifyMessageReceived, recipient, map[string]any{
		"exchange_id": exchangeID,
		"sender_id":   callerID,
		"message_id":  msg.ID,
	})
	return &msg, nil
}

// Delete withdraws an unanswered request. Only the requester may do it and
// only while the exchange is pending.
func (e *Engine) Delete(ctx context.Context, exchangeID, callerID string) error {
	var providerID string
	err := e.run(ctx, "delete", func(tx store.Tx) error {
		ex, err := tx.GetExchange(ctx, exchangeID)
		if err != nil {
			return err
		}
		if RoleOf(ex, callerID) != RoleRequester {
			return fmt.Errorf("%w: only the requester can delete an exchange", domain.ErrForbidden)
		}
		if ex.Status != models.StatusPending {
			return fmt.Errorf("%w: cannot delete a %s exchange", domain.ErrForbidden, ex.Status)
		}
		providerID = ex.ProviderID
		return tx.DeleteExchange(ctx, ex.ID, ex.Version)
	})
	if err != nil {
		return err
	}

	log.Printf("[exchange] %s withdrawn by %s", exchangeID, callerID)
	e.notifier.Notify(NotifyExchangeWithdrawn, providerID, map[string]any{
		"exchange_id":  exchangeID,
		"requester_id": callerID,
	})
	return nil
}
