package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
	"github.com/sudo-init-do/skillswap/internal/wallet"
)

func setup(t *testing.T) (*store.Memory, *wallet.Ledger, *Handler) {
	t.Helper()
	s := store.NewMemory()
	for _, id := range []string{"u1", "u2"} {
		require.NoError(t, s.CreateUser(context.Background(), &models.User{ID: id, IsActive: true}))
	}
	l := wallet.NewLedger(s)
	return s, l, NewHandler(s, l)
}

func TestAdjust(t *testing.T) {
	_, l, h := setup(t)
	ctx := context.Background()

	bal, err := h.Adjust(ctx, "u1", "root", AdjustRequest{Amount: 30, Kind: models.EntryBonus, Reason: "launch promo"})
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal)

	bal, err = h.Adjust(ctx, "u1", "root", AdjustRequest{Amount: 12, Kind: models.EntryPenalty, Reason: "no-show"})
	require.NoError(t, err)
	assert.Equal(t, int64(18), bal)

	_, err = h.Adjust(ctx, "u1", "root", AdjustRequest{Amount: 100, Kind: models.EntryPenalty, Reason: "too much"})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = h.Adjust(ctx, "u1", "root", AdjustRequest{Amount: 5, Kind: models.EntryEarned, Reason: "sneaky"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.Adjust(ctx, "u1", "root", AdjustRequest{Amount: 5, Kind: models.EntryBonus})
	assert.ErrorIs(t, err, domain.ErrValidation)

	hist, err := l.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "no-show (by admin root)", hist[1].Reason)
}

func TestAdminHTTP(t *testing.T) {
	_, _, h := setup(t)
	e := echo.New()
	g := e.Group("/admin", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "root")
			return next(c)
		}
	})
	h.Register(g)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/admin/ledger/u2/adjust", `{"amount":7,"kind":"bonus","reason":"welcome"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u2","balance":7}`, rec.Body.String())

	rec = do(http.MethodPost, "/admin/ledger/u2/adjust", `{"amount":70,"kind":"penalty","reason":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(http.MethodGet, "/admin/ledger/u2/reconcile", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)
	assert.Contains(t, rec.Body.String(), `"ledger_sum":7`)

	rec = do(http.MethodGet, "/admin/ledger/u2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "welcome (by admin root)")

	rec = do(http.MethodGet, "/admin/ledger/nobody/reconcile", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fixedUsers []string

func (f fixedUsers) ListUserIDs(context.Context) ([]string, error) { return f, nil }

func TestReconcileAll(t *testing.T) {
	s, l, h := setup(t)
	_, err := h.Adjust(context.Background(), "u1", "", AdjustRequest{Amount: 3, Kind: models.EntryBonus, Reason: "r"})
	require.NoError(t, err)

	res, err := ReconcileAll(context.Background(), s, l)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Empty(t, res.Inconsistent)
	assert.Zero(t, res.Errors)

	res, err = ReconcileAll(context.Background(), fixedUsers{"u1", "ghost"}, l)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.Errors)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReconcileAll(ctx, s, l)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweeper(t *testing.T) {
	s, l, _ := setup(t)

	_, err := NewSweeper("not a schedule", s, l)
	assert.Error(t, err)

	sw, err := NewSweeper("@every 1h", s, l)
	require.NoError(t, err)
	assert.NotPanics(t, sw.Sweep)
	sw.Start()
	sw.Stop()
}
