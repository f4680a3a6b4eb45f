package auth

import "github.com/labstack/echo/v4"

// publicRoutes bypass authentication: infrastructure endpoints and the
// patient-facing booking, queue and prescription pages. Keys are
// "METHOD route-pattern".
var publicRoutes = map[string]bool{
	"GET /health":                            true,
	"GET /health/db":                         true,
	"GET /metrics":                           true,
	"GET /api/v1/system/status":              true,
	"POST /api/v1/system/reconnect":          true,
	"POST /api/v1/auth/login":                true,
	"POST /api/v1/bookings":                  true,
	"GET /api/v1/queue":                      true,
	"GET /api/v1/queue/:department":          true,
	"GET /api/v1/queue/:department/position": true,
	"GET /api/v1/departments":                true,
	"GET /api/v1/departments/:name":          true,
	"GET /api/v1/prescriptions":              true,
	"GET /api/v1/prescriptions/download":     true,
	"GET /api/v1/prescriptions/:id/download": true,
	"GET /api/v1/ws":                         true,
}

// AuthSkipper reports whether the matched route needs no credentials.
func AuthSkipper(c echo.Context) bool {
	return IsPublicRoute(c.Request().Method, c.Path())
}

func IsPublicRoute(method, route string) bool {
	return publicRoutes[method+" "+route]
}
