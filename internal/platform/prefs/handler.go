package prefs

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/auth"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/preferences/:key", h.Get)
	g.PUT("/preferences/:key", h.Put)
	g.DELETE("/preferences/:key", h.Delete)
}

type preference struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func scope(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

// Get answers the stored value. The optional ?default= query parameter is
// returned when nothing usable is stored; without it the fallback is null.
func (h *Handler) Get(c echo.Context) error {
	fallback := json.RawMessage("null")
	if d := c.QueryParam("default"); d != "" {
		if !json.Valid([]byte(d)) {
			return apperr.Validation("default must be valid JSON")
		}
		fallback = json.RawMessage(d)
	}
	key := c.Param("key")
	v, err := h.store.Get(c.Request().Context(), scope(c), key, fallback)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": preference{Key: key, Value: v}, "error": nil})
}

func (h *Handler) Put(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	key := c.Param("key")
	if err := h.store.Set(c.Request().Context(), scope(c), key, body); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": preference{Key: key, Value: body}, "error": nil})
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), scope(c), c.Param("key")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
