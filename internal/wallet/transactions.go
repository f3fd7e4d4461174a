package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// Transactions returns the authenticated user's ledger, newest first
func (h *Handler) Transactions(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "unauthorized or invalid user",
		})
	}

	entries, err := h.ledger.History(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}

	txs := make([]models.LedgerEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		txs = append(txs, entries[i])
	}
	return c.JSON(http.StatusOK, txs)
}
