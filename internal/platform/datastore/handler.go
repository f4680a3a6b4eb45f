package datastore

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
)

const (
	StatusPath    = "/api/v1/system/status"
	ReconnectPath = "/api/v1/system/reconnect"
)

// SetupGuide is returned while connection parameters are missing.
type SetupGuide struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

var defaultSetupGuide = SetupGuide{
	Title: "Database setup required",
	Steps: []string{
		"Create a PostgreSQL database for the clinic.",
		"Set DATABASE_URL to its connection URL (postgres://...).",
		"Set DATABASE_ACCESS_KEY to the database password or access key.",
		"Restart the server. Default departments and settings are created on first connect.",
	},
}

// Respond writes res as JSON, mapping a failed result to the status code of
// its error kind.
func Respond[T any](c echo.Context, okStatus int, res Result[T]) error {
	if res.Err != nil {
		return c.JSON(apperr.HTTPStatus(res.Err), res)
	}
	return c.JSON(okStatus, res)
}

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET(StatusPath, h.GetStatus)
	e.POST(ReconnectPath, h.Reconnect)
}

func (h *Handler) GetStatus(c echo.Context) error {
	st := h.client.Status()
	body := map[string]interface{}{"status": st}
	if !st.Configured {
		body["setup"] = defaultSetupGuide
	}
	return c.JSON(http.StatusOK, body)
}

// Reconnect re-runs the connectivity probe on demand.
func (h *Handler) Reconnect(c echo.Context) error {
	if !h.client.Configured() {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "setup_required",
			"setup": defaultSetupGuide,
		})
	}
	ok := h.client.Probe(c.Request().Context())
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{"status": h.client.Status()})
}

// RequireStore answers 503 for /api/ routes while the store is unconfigured or
// disconnected. System routes always pass, as do routes under the exempt
// prefixes.
func RequireStore(client *Client, exempt ...string) echo.MiddlewareFunc {
	free := append([]string{"/api/v1/system"}, exempt...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !strings.HasPrefix(path, "/api/") || underAny(path, free) {
				return next(c)
			}

			st := client.Status()
			switch {
			case !st.Configured:
				return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
					"data":  nil,
					"error": "setup_required",
					"setup": defaultSetupGuide,
				})
			case st.State == StateDisconnected:
				return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
					"data":      nil,
					"error":     "database unreachable",
					"detail":    st.LastError,
					"reconnect": ReconnectPath,
				})
			}
			return next(c)
		}
	}
}

// underAny reports whether path equals one of prefixes or lies beneath it.
func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
