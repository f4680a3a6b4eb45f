package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection or script fragments in query parameters.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw := req.URL.RawPath
			if raw == "" {
				raw = req.URL.Path
			}

			if reason := inspectPath(req.URL.Path, raw); reason != "" {
				return reject(c, logger, reason)
			}
			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return reject(c, logger, "header value too large: "+name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return reject(c, logger, "header injection detected: "+name)
					}
				}
			}
			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(key) || containsNullByte(v) {
						return reject(c, logger, "null byte in query parameter")
					}
					if scriptPattern.MatchString(key) || scriptPattern.MatchString(v) {
						return reject(c, logger, "script content in query parameter")
					}
				}
			}
			return next(c)
		}
	}
}

func inspectPath(path, raw string) string {
	for _, p := range []string{path, raw} {
		lower := strings.ToLower(p)
		if strings.Contains(p, "..") || strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e") {
			return "path traversal detected"
		}
		if containsNullByte(p) {
			return "null byte in path"
		}
	}
	return ""
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}

func reject(c echo.Context, logger zerolog.Logger, reason string) error {
	logger.Warn().Str("path", c.Request().URL.Path).Str("remote_ip", c.RealIP()).Str("reason", reason).
		Msg("request rejected")
	return c.JSON(http.StatusBadRequest, map[string]interface{}{"data": nil, "error": reason})
}
