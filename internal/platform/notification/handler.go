package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the active notification stack over HTTP.
type Handler struct {
	bus *Bus
}

func NewHandler(bus *Bus) *Handler {
	return &Handler{bus: bus}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.HandleList)
	g.POST("/notifications", h.HandlePublish)
	g.DELETE("/notifications/:id", h.HandleDismiss)
	g.DELETE("/notifications", h.HandleClear)
}

type publishRequest struct {
	Type       Kind   `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms"`
	Persistent bool   `json:"persistent"`
}

func (h *Handler) HandleList(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": h.bus.Active()})
}

func (h *Handler) HandlePublish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	n := h.bus.Publish(Notification{
		Kind:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		DurationMs: req.DurationMs,
		Persistent: req.Persistent,
	})
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": n})
}

// HandleDismiss always answers 204; dismissing an unknown id is not an error.
func (h *Handler) HandleDismiss(c echo.Context) error {
	h.bus.Dismiss(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleClear(c echo.Context) error {
	h.bus.Clear()
	return c.NoContent(http.StatusNoContent)
}
