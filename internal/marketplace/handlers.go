package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
)

// Handler exposes the engine and scorer over HTTP. Every route expects
// "user_id" to have been set by the JWT middleware.
type Handler struct {
	engine *Engine
	scorer *Scorer
}

func NewHandler(engine *Engine, scorer *Scorer) *Handler {
	return &Handler{engine: engine, scorer: scorer}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/exchanges", h.CreateExchange)
	g.GET("/exchanges", h.ListExchanges)
	g.GET("/exchanges/:id", h.GetExchange)
	g.POST("/exchanges/:id/transition", h.TransitionExchange)
	g.POST("/exchanges/:id/messages", h.AddMessage)
	g.POST("/exchanges/:id/review", h.AddReview)
	g.DELETE("/exchanges/:id", h.DeleteExchange)
	g.GET("/recommendations", h.Recommend)
	g.GET("/users/:id/ratings", h.ProviderRatings)
}

func fail(c echo.Context, err error) error {
	return c.JSON(domain.StatusCode(err), echo.Map{"error": domain.PublicMessage(err)})
}

func callerID(c echo.Context) (string, bool) {
	uid, ok := c.Get("user_id").(string)
	return uid, ok && uid != ""
}

// CreateExchange - requester asks a provider for a skill exchange
func (h *Handler) CreateExchange(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req models.CreateExchangeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ex, err := h.engine.Create(c.Request().Context(), uid, req.ProviderID, req.RequestedSkill, req.OfferedSkill)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ex)
}

func (h *Handler) ListExchanges(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	list, err := h.engine.ListForUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	if list == nil {
		list = []models.Exchange{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetExchange(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ex, err := h.engine.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ex)
}

// TransitionExchange - accept, reject, cancel or complete an exchange
func (h *Handler) TransitionExchange(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}

	ex, err := h.engine.Transition(c.Request().Context(), c.Param("id"), uid, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ex)
}

func (h *Handler) AddMessage(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req models.MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	msg, err := h.engine.AddMessage(c.Request().Context(), c.Param("id"), uid, req.Text)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// AddReview - requester rates a completed exchange
func (h *Handler) AddReview(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req models.ReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ex, err := h.engine.AddReview(c.Request().Context(), c.Param("id"), uid, req.Rating, req.Review)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ex)
}

func (h *Handler) DeleteExchange(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	if err := h.engine.Delete(c.Request().Context(), c.Param("id"), uid); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "exchange request withdrawn"})
}

func (h *Handler) Recommend(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rec, err := h.scorer.Recommend(c.Request().Context(), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ProviderRatings returns the public rating breakdown of a user
func (h *Handler) ProviderRatings(c echo.Context) error {
	summary, err := h.engine.Ratings(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
