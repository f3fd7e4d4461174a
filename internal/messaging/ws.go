package messaging

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/marketplace"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// ExchangeReader returns an exchange only to its participants.
type ExchangeReader interface {
	Get(ctx context.Context, exchangeID, callerID string) (*models.Exchange, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ExchangeWS returns the websocket endpoint for realtime updates on an
// exchange thread.
func (h *Hub) ExchangeWS(exchanges ExchangeReader) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := c.Get("user_id").(string)
		if !ok || userID == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}

		exchangeID := c.Param("id")
		if exchangeID == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing exchange id"})
		}

		// Verify participation
		if _, err := exchanges.Get(c.Request().Context(), exchangeID, userID); err != nil {
			return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		cl := &client{conn: conn, userID: userID}
		h.register(exchangeID, cl)
		h.Publish(marketplace.Event{Type: EventPresenceJoin, ExchangeID: exchangeID, Data: echo.Map{"user_id": userID}})

		// Read loop (client frames are discarded; the protocol is server push)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.unregister(exchangeID, cl)
		_ = conn.Close()
		h.Publish(marketplace.Event{Type: EventPresenceLeave, ExchangeID: exchangeID, Data: echo.Map{"user_id": userID}})
		return nil
	}
}
