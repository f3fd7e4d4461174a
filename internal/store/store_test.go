package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// runStoreContract checks the behaviour every Store implementation must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	newUser := func(name string) *models.User {
		u := &models.User{
			ID:       uuid.New().String(),
			Name:     name,
			IsActive: true,
			SkillsOffered: []models.Skill{
				{Name: "Photography", Category: "Art", ExperienceLevel: models.LevelAdvanced},
			},
		}
		require.NoError(t, s.CreateUser(ctx, u))
		return u
	}
	newExchange := func(requester, provider *models.User) *models.Exchange {
		now := time.Now().UTC().Truncate(time.Microsecond)
		ex := &models.Exchange{
			ID:             uuid.New().String(),
			RequesterID:    requester.ID,
			ProviderID:     provider.ID,
			RequestedSkill: "Photography",
			OfferedSkill:   "Guitar",
			Status:         models.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, s.CreateExchange(ctx, ex))
		return ex
	}

	t.Run("GetUserRoundTripsSkills", func(t *testing.T) {
		u := newUser("alice")
		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Name)
		require.Len(t, got.SkillsOffered, 1)
		assert.Equal(t, models.LevelAdvanced, got.SkillsOffered[0].ExperienceLevel)
		assert.Empty(t, got.Badges)
	})

	t.Run("MissingRowsAreNotFound", func(t *testing.T) {
		_, err := s.GetUser(ctx, "no-such-user")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = s.GetExchange(ctx, "no-such-exchange")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("EmptyThreadIsAnArray", func(t *testing.T) {
		requester := newUser("quiet-req")
		ex := newExchange(requester, newUser("quiet-prov"))

		got, err := s.GetExchange(ctx, ex.ID)
		require.NoError(t, err)
		b, err := json.Marshal(got)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"messages":[]`)

		list, err := s.ListExchangesForUser(ctx, requester.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.NotNil(t, list[0].Messages)
	})

	t.Run("UpdateExchangeIsCompareAndSwap", func(t *testing.T) {
		ex := newExchange(newUser("req"), newUser("prov"))

		stale := ex.Clone()
		err := s.WithTx(ctx, func(tx Tx) error {
			ex.Status = models.StatusActive
			return tx.UpdateExchange(ctx, ex)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), ex.Version)

		err = s.WithTx(ctx, func(tx Tx) error {
			stale.Status = models.StatusCancelled
			return tx.UpdateExchange(ctx, stale)
		})
		assert.True(t, errors.Is(err, domain.ErrConflict))

		got, err := s.GetExchange(ctx, ex.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	})

	t.Run("FailedTransactionLeavesNoTrace", func(t *testing.T) {
		u := newUser("rollback")
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx Tx) error {
			if _, err := tx.AppendLedgerEntry(ctx, &models.LedgerEntry{
				UserID: u.ID, Amount: 10, Kind: models.EntryEarned, Reason: "test", CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
			if _, err := tx.IncrementExchanges(ctx, u.ID); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.TokenBalance)
		assert.Equal(t, 0, got.TotalExchanges)
		entries, err := s.ListLedgerEntries(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("LedgerRejectsOverdraft", func(t *testing.T) {
		u := newUser("spender")
		err := s.WithTx(ctx, func(tx Tx) error {
			bal, err := tx.AppendLedgerEntry(ctx, &models.LedgerEntry{
				UserID: u.ID, Amount: 15, Kind: models.EntryEarned, CreatedAt: time.Now().UTC(),
			})
			assert.Equal(t, int64(15), bal)
			return err
		})
		require.NoError(t, err)

		err = s.WithTx(ctx, func(tx Tx) error {
			_, err := tx.AppendLedgerEntry(ctx, &models.LedgerEntry{
				UserID: u.ID, Amount: -16, Kind: models.EntrySpent, CreatedAt: time.Now().UTC(),
			})
			return err
		})
		assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

		entries, err := s.ListLedgerEntries(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(15), entries[0].BalanceAfter)
	})

	t.Run("GrantBadgesIsIdempotent", func(t *testing.T) {
		u := newUser("badger")
		var first, second []string
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			var err error
			first, err = tx.GrantBadges(ctx, u.ID, []string{"First Exchange"})
			return err
		}))
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			var err error
			second, err = tx.GrantBadges(ctx, u.ID, []string{"First Exchange"})
			return err
		}))
		assert.Equal(t, []string{"First Exchange"}, first)
		assert.Empty(t, second)

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"First Exchange"}, got.Badges)
	})

	t.Run("MessagesAndDelete", func(t *testing.T) {
		req, prov := newUser("m-req"), newUser("m-prov")
		ex := newExchange(req, prov)
		msg := models.Message{ID: uuid.New().String(), SenderID: req.ID, Text: "hi", CreatedAt: time.Now().UTC()}
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			return tx.AppendMessage(ctx, ex.ID, msg)
		}))
		got, err := s.GetExchange(ctx, ex.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "hi", got.Messages[0].Text)

		err = s.WithTx(ctx, func(tx Tx) error { return tx.DeleteExchange(ctx, ex.ID, ex.Version+1) })
		assert.True(t, errors.Is(err, domain.ErrConflict))
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error { return tx.DeleteExchange(ctx, ex.ID, ex.Version) }))
		_, err = s.GetExchange(ctx, ex.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("ProviderRatingsSeeOwnWrites", func(t *testing.T) {
		req, prov := newUser("r-req"), newUser("r-prov")
		ex := newExchange(req, prov)
		var ratings []int
		require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
			five := 5
			ex.Status = models.StatusCompleted
			ex.Rating = &five
			if err := tx.UpdateExchange(ctx, ex); err != nil {
				return err
			}
			var err error
			ratings, err = tx.ListProviderRatings(ctx, prov.ID)
			return err
		}))
		assert.Equal(t, []int{5}, ratings)
	})

	t.Run("Notifications", func(t *testing.T) {
		u := newUser("notified")
		n := &models.Notification{UserID: u.ID, Kind: "exchange_requested", Payload: map[string]any{"exchange_id": "x"}}
		require.NoError(t, s.CreateNotification(ctx, n))
		items, err := s.ListNotifications(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Nil(t, items[0].ReadAt)

		require.NoError(t, s.MarkNotificationRead(ctx, u.ID, n.ID))
		err = s.MarkNotificationRead(ctx, u.ID, n.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemoryListActiveUsersSkipsInactiveAndSorts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateUser(ctx, &models.User{ID: "b", Name: "b", IsActive: true}))
	require.NoError(t, m.CreateUser(ctx, &models.User{ID: "a", Name: "a", IsActive: true}))
	require.NoError(t, m.CreateUser(ctx, &models.User{ID: "c", Name: "c", IsActive: false}))

	users, err := m.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].ID)
	assert.Equal(t, "b", users[1].ID)

	ids, err := m.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateUser(ctx, &models.User{ID: "a", Name: "a"}))

	u, err := m.GetUser(ctx, "a")
	require.NoError(t, err)
	u.Badges = append(u.Badges, "forged")
	u.TokenBalance = 1000

	again, err := m.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, again.Badges)
	assert.Equal(t, int64(0), again.TokenBalance)
}
