package db

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClinicIDKey contextKey = "clinic_id"
	DBConnKey   contextKey = "db_conn"

	ClinicIDHeader = "X-Clinic-ID"
)

var clinicIDPattern = regexp.MustCompile(`^[A-Z0-9]{2,16}$`)

// ClinicMiddleware resolves the clinic a request acts on and stores it in the
// request context. The clinic id prefixes patient UIDs and scopes visits.
func ClinicMiddleware(defaultClinic string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clinicID := strings.ToUpper(strings.TrimSpace(extractClinicID(c, defaultClinic)))
			if !clinicIDPattern.MatchString(clinicID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
			}

			ctx := WithClinic(c.Request().Context(), clinicID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("clinic_id", clinicID)
			return next(c)
		}
	}
}

func extractClinicID(c echo.Context, defaultClinic string) string {
	if cid, ok := c.Get("jwt_clinic_id").(string); ok && cid != "" {
		return cid
	}
	if cid := c.Request().Header.Get(ClinicIDHeader); cid != "" {
		return cid
	}
	if cid := c.QueryParam("clinic_id"); cid != "" {
		return cid
	}
	return defaultClinic
}

func WithClinic(ctx context.Context, clinicID string) context.Context {
	return context.WithValue(ctx, ClinicIDKey, clinicID)
}

// ClinicFromContext returns the clinic id or fallback when none is set.
func ClinicFromContext(ctx context.Context, fallback string) string {
	if cid, _ := ctx.Value(ClinicIDKey).(string); cid != "" {
		return cid
	}
	return fallback
}

// WithConn pins a connection or transaction to ctx so repositories sharing
// the context run on it.
func WithConn(ctx context.Context, conn DBTX) context.Context {
	return context.WithValue(ctx, DBConnKey, conn)
}

// ConnFromContext retrieves a pinned connection from context.
func ConnFromContext(ctx context.Context) DBTX {
	conn, _ := ctx.Value(DBConnKey).(DBTX)
	return conn
}
