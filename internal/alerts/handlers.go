package alerts

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// NotificationStore reads and updates a user's in-app notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

type Handler struct {
	store NotificationStore
}

func NewHandler(s NotificationStore) *Handler {
	return &Handler{store: s}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.ListNotifications)
	g.POST("/:id/read", h.MarkNotificationRead)
}

// ListNotifications returns current user's notifications, newest first
func (h *Handler) ListNotifications(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	items, err := h.store.ListNotifications(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	if items == nil {
		items = []models.Notification{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks specific notification as read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	nid := c.Param("id")
	if nid == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	if err := h.store.MarkNotificationRead(c.Request().Context(), userID, nid); err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
