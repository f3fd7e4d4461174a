// Package user serves read-only member profiles.
package user

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/badge"
	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type Handler struct {
	users UserReader
}

func NewHandler(users UserReader) *Handler {
	return &Handler{users: users}
}

// GET /users/:id/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	u, err := h.users.GetUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
	}
	if !u.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	var locked []string
	for _, b := range badge.All() {
		if !u.HasBadge(b) {
			locked = append(locked, b)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":              u.ID,
		"name":            u.Name,
		"skills_offered":  nonNil(u.SkillsOffered),
		"skills_wanted":   nonNil(u.SkillsWanted),
		"rating":          u.Rating,
		"token_balance":   u.TokenBalance,
		"total_exchanges": u.TotalExchanges,
		"badges":          nonNilStrings(u.Badges),
		"locked_badges":   nonNilStrings(locked),
		"created_at":      u.CreatedAt.Format(time.RFC3339),
	})
}

func nonNil(s []models.Skill) []models.Skill {
	if s == nil {
		return []models.Skill{}
	}
	return s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
