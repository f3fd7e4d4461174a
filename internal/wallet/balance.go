package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/domain"
)

// Handler serves the wallet endpoints for the authenticated user.
type Handler struct {
	ledger *Ledger
}

func NewHandler(l *Ledger) *Handler {
	return &Handler{ledger: l}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/balance", h.Balance)
	g.GET("/transactions", h.Transactions)
}

// Balance returns the authenticated user's token balance
func (h *Handler) Balance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	balance, err := h.ledger.Balance(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": userID,
		"balance": balance,
	})
}
