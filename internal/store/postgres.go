package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the queries need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Schema is managed by db.EnsureSchema.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const userColumns = `u.id, u.name, u.email, u.role, u.is_active, u.skills_offered, u.skills_wanted,
	u.rating, u.token_balance, u.total_exchanges, u.created_at,
	ARRAY(SELECT b.badge FROM user_badges b WHERE b.user_id = u.id ORDER BY b.granted_at, b.badge)`

const exchangeColumns = `id, requester_id, provider_id, requested_skill, offered_skill, status,
	accepted_at, completed_at, rating, review, version, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.SkillsOffered, &u.SkillsWanted,
		&u.Rating, &u.TokenBalance, &u.TotalExchanges, &u.CreatedAt, &u.Badges)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanExchange(row pgx.Row) (*models.Exchange, error) {
	var ex models.Exchange
	var status string
	err := row.Scan(&ex.ID, &ex.RequesterID, &ex.ProviderID, &ex.RequestedSkill, &ex.OfferedSkill, &status,
		&ex.AcceptedAt, &ex.CompletedAt, &ex.Rating, &ex.Review, &ex.Version, &ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ex.Status = models.ExchangeStatus(status)
	ex.Messages = []models.Message{}
	return &ex, nil
}

// mapErr turns driver errors into engine errors. Serialization failures and
// deadlocks become ErrConflict so the engine retries them.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, what, pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s already exists", domain.ErrValidation, what)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func getUser(ctx context.Context, q querier, id string, lock bool) (*models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	if lock {
		sql += ` FOR UPDATE OF u`
	}
	u, err := scanUser(q.QueryRow(ctx, sql, id))
	return u, mapErr(err, "user "+id)
}

func getExchange(ctx context.Context, q querier, id string) (*models.Exchange, error) {
	ex, err := scanExchange(q.QueryRow(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "exchange "+id)
	}

	rows, err := q.Query(ctx,
		`SELECT id, sender_id, text, created_at FROM exchange_messages WHERE exchange_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, mapErr(err, "exchange messages")
	}
	defer rows.Close()
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, mapErr(err, "exchange message")
		}
		ex.Messages = append(ex.Messages, m)
	}
	return ex, mapErr(rows.Err(), "exchange messages")
}

func skillsJSON(skills []models.Skill) (string, error) {
	if skills == nil {
		skills = []models.Skill{}
	}
	b, err := json.Marshal(skills)
	return string(b), err
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, p.pool, id, false)
}

func (p *Postgres) GetExchange(ctx context.Context, id string) (*models.Exchange, error) {
	return getExchange(ctx, p.pool, id)
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Role == "" {
		u.Role = "member"
	}
	offered, err := skillsJSON(u.SkillsOffered)
	if err != nil {
		return err
	}
	wanted, err := skillsJSON(u.SkillsWanted)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, role, is_active, skills_offered, skills_wanted, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9)`,
		u.ID, u.Name, u.Email, u.Role, u.IsActive, offered, wanted, u.Rating, u.CreatedAt,
	)
	return mapErr(err, "user "+u.ID)
}

func (p *Postgres) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users u WHERE u.is_active ORDER BY u.id`)
	if err != nil {
		return nil, mapErr(err, "active users")
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr(err, "user row")
		}
		users = append(users, *u)
	}
	return users, mapErr(rows.Err(), "active users")
}

func (p *Postgres) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, mapErr(err, "user ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, mapErr(err, "user ids")
}

func (p *Postgres) CreateExchange(ctx context.Context, ex *models.Exchange) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO exchanges (id, requester_id, provider_id, requested_skill, offered_skill, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ex.ID, ex.RequesterID, ex.ProviderID, ex.RequestedSkill, ex.OfferedSkill, string(ex.Status),
		ex.Version, ex.CreatedAt, ex.UpdatedAt,
	)
	return mapErr(err, "exchange "+ex.ID)
}

// ListExchangesForUser returns the user's exchanges newest first, without
// their message threads.
func (p *Postgres) ListExchangesForUser(ctx context.Context, userID string) ([]models.Exchange, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+exchangeColumns+` FROM exchanges
		 WHERE requester_id = $1 OR provider_id = $1
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, mapErr(err, "exchanges")
	}
	defer rows.Close()

	var out []models.Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, mapErr(err, "exchange row")
		}
		out = append(out, *ex)
	}
	return out, mapErr(rows.Err(), "exchanges")
}

func (p *Postgres) ListLedgerEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	return listLedger(ctx, p.pool, userID)
}

func listLedger(ctx context.Context, q querier, userID string) ([]models.LedgerEntry, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, mapErr(err, "user "+userID)
	}
	if !exists {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}

	rows, err := q.Query(ctx, `
		SELECT id, user_id, amount, kind, reason, exchange_id, balance_after, created_at
		FROM token_ledger WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, mapErr(err, "ledger")
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &kind, &e.Reason, &e.ExchangeID, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, mapErr(err, "ledger row")
		}
		e.Kind = models.EntryKind(kind)
		entries = append(entries, e)
	}
	return entries, mapErr(rows.Err(), "ledger")
}

func (p *Postgres) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	var payload *string
	if n.Payload != nil {
		b, err := json.Marshal(n.Payload)
		if err != nil {
			return err
		}
		s := string(b)
		payload = &s
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, kind, payload, created_at) VALUES ($1, $2, $3, $4::jsonb, $5)`,
		n.ID, n.UserID, n.Kind, payload, n.CreatedAt,
	)
	return mapErr(err, "notification")
}

func (p *Postgres) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, kind, payload, created_at, read_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err, "notifications")
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Payload, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, mapErr(err, "notification row")
		}
		items = append(items, n)
	}
	return items, mapErr(rows.Err(), "notifications")
}

func (p *Postgres) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	res, err := p.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notificationID, userID,
	)
	if err != nil {
		return mapErr(err, "notification")
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s not found or already read", domain.ErrNotFound, notificationID)
	}
	return nil
}

func (p *Postgres) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("transaction start failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return mapErr(tx.Commit(ctx), "commit")
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, t.tx, id, false)
}

func (t *pgTx) LockUser(ctx context.Context, id string) (*models.User, error) {
	return getUser(ctx, t.tx, id, true)
}

func (t *pgTx) GetExchange(ctx context.Context, id string) (*models.Exchange, error) {
	return getExchange(ctx, t.tx, id)
}

func (t *pgTx) ListLedgerEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	return listLedger(ctx, t.tx, userID)
}

// exchangeMissOrConflict tells a missing row apart from a stale version
// after a CAS statement touched nothing.
func (t *pgTx) exchangeMissOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM exchanges WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapErr(err, "exchange "+id)
	}
	if !exists {
		return fmt.Errorf("%w: exchange %s", domain.ErrNotFound, id)
	}
	return fmt.Errorf("%w: exchange %s was modified concurrently", domain.ErrConflict, id)
}

func (t *pgTx) UpdateExchange(ctx context.Context, ex *models.Exchange) error {
	res, err := t.tx.Exec(ctx, `
		UPDATE exchanges
		SET status = $1, accepted_at = $2, completed_at = $3, rating = $4, review = $5,
		    updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8`,
		string(ex.Status), ex.AcceptedAt, ex.CompletedAt, ex.Rating, ex.Review, ex.UpdatedAt, ex.ID, ex.Version,
	)
	if err != nil {
		return mapErr(err, "exchange "+ex.ID)
	}
	if res.RowsAffected() == 0 {
		return t.exchangeMissOrConflict(ctx, ex.ID)
	}
	ex.Version++
	return nil
}

func (t *pgTx) AppendMessage(ctx context.Context, exchangeID string, msg models.Message) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO exchange_messages (id, exchange_id, sender_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, exchangeID, msg.SenderID, msg.Text, msg.CreatedAt,
	)
	return mapErr(err, "message")
}

func (t *pgTx) DeleteExchange(ctx context.Context, id string, version int64) error {
	res, err := t.tx.Exec(ctx, `DELETE FROM exchanges WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return mapErr(err, "exchange "+id)
	}
	if res.RowsAffected() == 0 {
		return t.exchangeMissOrConflict(ctx, id)
	}
	return nil
}

func (t *pgTx) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `
		UPDATE users SET token_balance = token_balance + $1
		WHERE id = $2 AND token_balance + $1 >= 0
		RETURNING token_balance`,
		entry.Amount, entry.UserID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		u, lookupErr := getUser(ctx, t.tx, entry.UserID, false)
		if lookupErr != nil {
			return 0, lookupErr
		}
		return u.TokenBalance, fmt.Errorf("%w: balance %d, debit %d", domain.ErrInsufficientFunds, u.TokenBalance, -entry.Amount)
	}
	if err != nil {
		return 0, mapErr(err, "token balance")
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.BalanceAfter = balance
	_, err = t.tx.Exec(ctx, `
		INSERT INTO token_ledger (id, user_id, amount, kind, reason, exchange_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.Amount, string(entry.Kind), entry.Reason, entry.ExchangeID, balance, entry.CreatedAt,
	)
	if err != nil {
		return 0, mapErr(err, "ledger entry")
	}
	return balance, nil
}

func (t *pgTx) IncrementExchanges(ctx context.Context, userID string) (int, error) {
	var total int
	err := t.tx.QueryRow(ctx,
		`UPDATE users SET total_exchanges = total_exchanges + 1 WHERE id = $1 RETURNING total_exchanges`, userID,
	).Scan(&total)
	return total, mapErr(err, "user "+userID)
}

func (t *pgTx) GrantBadges(ctx context.Context, userID string, badges []string) ([]string, error) {
	var granted []string
	for _, b := range badges {
		res, err := t.tx.Exec(ctx,
			`INSERT INTO user_badges (user_id, badge) VALUES ($1, $2) ON CONFLICT (user_id, badge) DO NOTHING`,
			userID, b,
		)
		if err != nil {
			return nil, mapErr(err, "badge "+b)
		}
		if res.RowsAffected() == 1 {
			granted = append(granted, b)
		}
	}
	return granted, nil
}

func (t *pgTx) SetRating(ctx context.Context, userID string, rating float64) error {
	res, err := t.tx.Exec(ctx, `UPDATE users SET rating = $1 WHERE id = $2`, rating, userID)
	if err != nil {
		return mapErr(err, "user "+userID)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (t *pgTx) ListProviderRatings(ctx context.Context, providerID string) ([]int, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT rating FROM exchanges WHERE provider_id = $1 AND rating IS NOT NULL`, providerID)
	if err != nil {
		return nil, mapErr(err, "ratings")
	}
	ratings, err := pgx.CollectRows(rows, pgx.RowTo[int])
	return ratings, mapErr(err, "ratings")
}
