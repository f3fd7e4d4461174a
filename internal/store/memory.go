package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// Memory is an in-process Store. Transactions are serialized on a single
// mutex and staged on copies, so a failed transaction leaves no trace.
type Memory struct {
	mu            sync.Mutex
	users         map[string]*models.User
	exchanges     map[string]*models.Exchange
	ledger        map[string][]models.LedgerEntry
	notifications map[string][]models.Notification
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*models.User),
		exchanges:     make(map[string]*models.Exchange),
		ledger:        make(map[string][]models.LedgerEntry),
		notifications: make(map[string][]models.Notification),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.SkillsOffered = append([]models.Skill(nil), u.SkillsOffered...)
	c.SkillsWanted = append([]models.Skill(nil), u.SkillsWanted...)
	c.Badges = append([]string(nil), u.Badges...)
	return &c
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if _, ok := m.users[u.ID]; ok {
		return fmt.Errorf("%w: user %s already exists", domain.ErrValidation, u.ID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return cloneUser(u), nil
}

func (m *Memory) ListActiveUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.IsActive {
			out = append(out, *cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListUserIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) CreateExchange(_ context.Context, ex *models.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exchanges[ex.ID]; ok {
		return fmt.Errorf("%w: exchange %s already exists", domain.ErrValidation, ex.ID)
	}
	m.exchanges[ex.ID] = ex.Clone()
	return nil
}

func (m *Memory) GetExchange(_ context.Context, id string) (*models.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.exchanges[id]
	if !ok {
		return nil, fmt.Errorf("%w: exchange %s", domain.ErrNotFound, id)
	}
	return ex.Clone(), nil
}

func (m *Memory) ListExchangesForUser(_ context.Context, userID string) ([]models.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Exchange
	for _, ex := range m.exchanges {
		if ex.RequesterID == userID || ex.ProviderID == userID {
			out = append(out, *ex.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListLedgerEntries(_ context.Context, userID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return append([]models.LedgerEntry(nil), m.ledger[userID]...), nil
}

func (m *Memory) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	m.notifications[n.UserID] = append(m.notifications[n.UserID], *n)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, userID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.notifications[userID]
	out := make([]models.Notification, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.notifications[userID]
	for i := range list {
		if list[i].ID == notificationID && list[i].ReadAt == nil {
			now := time.Now().UTC()
			list[i].ReadAt = &now
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s not found or already read", domain.ErrNotFound, notificationID)
}

// WithTx holds the store lock for the duration of fn and commits the staged
// writes only if fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:         m,
		users:     make(map[string]*models.User),
		exchanges: make(map[string]*models.Exchange),
		messages:  make(map[string][]models.Message),
		deleted:   make(map[string]bool),
		ledger:    make(map[string][]models.LedgerEntry),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	m         *Memory
	users     map[string]*models.User
	exchanges map[string]*models.Exchange
	messages  map[string][]models.Message
	deleted   map[string]bool
	ledger    map[string][]models.LedgerEntry
}

func (t *memTx) commit() {
	for id, u := range t.users {
		t.m.users[id] = u
	}
	for id, ex := range t.exchanges {
		t.m.exchanges[id] = ex
	}
	for id, msgs := range t.messages {
		if ex, ok := t.m.exchanges[id]; ok {
			ex.Messages = append(ex.Messages, msgs...)
		}
	}
	for id := range t.deleted {
		delete(t.m.exchanges, id)
	}
	for id, entries := range t.ledger {
		t.m.ledger[id] = append(t.m.ledger[id], entries...)
	}
}

// user returns the staged copy of a user, staging it on first access.
func (t *memTx) user(id string) (*models.User, error) {
	if u, ok := t.users[id]; ok {
		return u, nil
	}
	u, ok := t.m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	c := cloneUser(u)
	t.users[id] = c
	return c, nil
}

func (t *memTx) exchange(id string) (*models.Exchange, bool) {
	if t.deleted[id] {
		return nil, false
	}
	if ex, ok := t.exchanges[id]; ok {
		return ex, true
	}
	ex, ok := t.m.exchanges[id]
	return ex, ok
}

func (t *memTx) GetUser(_ context.Context, id string) (*models.User, error) {
	u, err := t.user(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (t *memTx) LockUser(ctx context.Context, id string) (*models.User, error) {
	return t.GetUser(ctx, id)
}

func (t *memTx) GetExchange(_ context.Context, id string) (*models.Exchange, error) {
	ex, ok := t.exchange(id)
	if !ok {
		return nil, fmt.Errorf("%w: exchange %s", domain.ErrNotFound, id)
	}
	c := ex.Clone()
	c.Messages = append(c.Messages, t.messages[id]...)
	return c, nil
}

func (t *memTx) ListLedgerEntries(_ context.Context, userID string) ([]models.LedgerEntry, error) {
	if _, err := t.user(userID); err != nil {
		return nil, err
	}
	out := append([]models.LedgerEntry(nil), t.m.ledger[userID]...)
	return append(out, t.ledger[userID]...), nil
}

func (t *memTx) UpdateExchange(_ context.Context, ex *models.Exchange) error {
	cur, ok := t.exchange(ex.ID)
	if !ok {
		return fmt.Errorf("%w: exchange %s", domain.ErrNotFound, ex.ID)
	}
	if cur.Version != ex.Version {
		return fmt.Errorf("%w: exchange %s was modified concurrently", domain.ErrConflict, ex.ID)
	}
	next := cur.Clone()
	next.Status = ex.Status
	next.AcceptedAt = ex.AcceptedAt
	next.CompletedAt = ex.CompletedAt
	next.Rating = ex.Rating
	next.Review = ex.Review
	next.UpdatedAt = ex.UpdatedAt
	next.Version = cur.Version + 1
	t.exchanges[ex.ID] = next
	ex.Version = next.Version
	return nil
}

func (t *memTx) AppendMessage(_ context.Context, exchangeID string, msg models.Message) error {
	if _, ok := t.exchange(exchangeID); !ok {
		return fmt.Errorf("%w: exchange %s", domain.ErrNotFound, exchangeID)
	}
	t.messages[exchangeID] = append(t.messages[exchangeID], msg)
	return nil
}

func (t *memTx) DeleteExchange(_ context.Context, id string, version int64) error {
	cur, ok := t.exchange(id)
	if !ok {
		return fmt.Errorf("%w: exchange %s", domain.ErrNotFound, id)
	}
	if cur.Version != version {
		return fmt.Errorf("%w: exchange %s was modified concurrently", domain.ErrConflict, id)
	}
	t.deleted[id] = true
	delete(t.exchanges, id)
	delete(t.messages, id)
	return nil
}

func (t *memTx) AppendLedgerEntry(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	u, err := t.user(entry.UserID)
	if err != nil {
		return 0, err
	}
	if u.TokenBalance+entry.Amount < 0 {
		return u.TokenBalance, fmt.Errorf("%w: balance %d, debit %d", domain.ErrInsufficientFunds, u.TokenBalance, -entry.Amount)
	}
	u.TokenBalance += entry.Amount
	entry.BalanceAfter = u.TokenBalance
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	t.ledger[entry.UserID] = append(t.ledger[entry.UserID], *entry)
	return u.TokenBalance, nil
}

func (t *memTx) IncrementExchanges(_ context.Context, userID string) (int, error) {
	u, err := t.user(userID)
	if err != nil {
		return 0, err
	}
	u.TotalExchanges++
	return u.TotalExchanges, nil
}

func (t *memTx) GrantBadges(_ context.Context, userID string, badges []string) ([]string, error) {
	u, err := t.user(userID)
	if err != nil {
		return nil, err
	}
	var granted []string
	for _, b := range badges {
		if u.HasBadge(b) {
			continue
		}
		u.Badges = append(u.Badges, b)
		granted = append(granted, b)
	}
	return granted, nil
}

func (t *memTx) SetRating(_ context.Context, userID string, rating float64) error {
	u, err := t.user(userID)
	if err != nil {
		return err
	}
	u.Rating = rating
	return nil
}

func (t *memTx) ListProviderRatings(_ context.Context, providerID string) ([]int, error) {
	var ratings []int
	seen := make(map[string]bool)
	for id, ex := range t.exchanges {
		seen[id] = true
		if ex.ProviderID == providerID && ex.Rating != nil {
			ratings = append(ratings, *ex.Rating)
		}
	}
	for id, ex := range t.m.exchanges {
		if seen[id] || t.deleted[id] {
			continue
		}
		if ex.ProviderID == providerID && ex.Rating != nil {
			ratings = append(ratings, *ex.Rating)
		}
	}
	return ratings, nil
}
