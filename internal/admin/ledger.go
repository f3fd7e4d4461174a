// Package admin holds operator endpoints and jobs for checking and
// correcting token ledgers.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
	"github.com/sudo-init-do/skillswap/internal/wallet"
)

// AdjustRequest is the payload for POST /admin/ledger/:id/adjust.
type AdjustRequest struct {
	Amount int64            `json:"amount"`
	Kind   models.EntryKind `json:"kind"`
	Reason string           `json:"reason"`
}

type Handler struct {
	store  store.Store
	ledger *wallet.Ledger
}

func NewHandler(s store.Store, l *wallet.Ledger) *Handler {
	return &Handler{store: s, ledger: l}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/ledger/:id", h.UserLedger)
	g.GET("/ledger/:id/reconcile", h.ReconcileUser)
	g.POST("/ledger/:id/adjust", h.AdjustBalance)
}

// GET /admin/ledger/:id returns a user's ledger for admin monitoring
func (h *Handler) UserLedger(c echo.Context) error {
	entries, err := h.ledger.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "entries": entries})
}

// GET /admin/ledger/:id/reconcile
func (h *Handler) ReconcileUser(c echo.Context) error {
	report, err := h.ledger.Reconcile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}
	return c.JSON(http.StatusOK, report)
}

// POST /admin/ledger/:id/adjust grants a bonus or applies a penalty.
func (h *Handler) AdjustBalance(c echo.Context) error {
	var req AdjustRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	adminID, _ := c.Get("user_id").(string)

	balance, err := h.Adjust(c.Request().Context(), c.Param("id"), adminID, req)
	if err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "balance": balance})
}

// Adjust records one bonus or penalty entry for userID.
func (h *Handler) Adjust(ctx context.Context, userID, adminID string, req AdjustRequest) (int64, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return 0, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	if adminID != "" {
		reason = fmt.Sprintf("%s (by admin %s)", reason, adminID)
	}

	var balance int64
	err := h.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		switch req.Kind {
		case models.EntryBonus:
			balance, err = h.ledger.Credit(ctx, tx, userID, req.Amount, req.Kind, reason, nil)
		case models.EntryPenalty:
			balance, err = h.ledger.Debit(ctx, tx, userID, req.Amount, req.Kind, reason, nil)
		default:
			err = fmt.Errorf("%w: kind must be %q or %q", domain.ErrValidation, models.EntryBonus, models.EntryPenalty)
		}
		return err
	})
	return balance, err
}
