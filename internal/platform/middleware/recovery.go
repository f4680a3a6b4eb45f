package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RecoveryAction is a link offered on the fallback response.
type RecoveryAction struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// RecoveryDocument replaces the response of a handler that panicked.
type RecoveryDocument struct {
	ReportID   string           `json:"report_id"`
	Message    string           `json:"message"`
	Actions    []RecoveryAction `json:"actions"`
	Diagnostic string           `json:"diagnostic,omitempty"`
}

// Recovery is the last line of defence for a request: a panic anywhere below
// it is logged and answered with a fallback document offering reload and home
// links. With verbose set the document also carries a copyable report.
func Recovery(logger zerolog.Logger, verbose bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				var stack [4096]byte
				n := runtime.Stack(stack[:], false)
				reportID := uuid.New().String()
				rid := fmt.Sprintf("%v", c.Get("request_id"))

				logger.Error().
					Str("request_id", rid).
					Str("report_id", reportID).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				doc := RecoveryDocument{
					ReportID: reportID,
					Message:  "Something went wrong. Reload the page or return home.",
					Actions: []RecoveryAction{
						{Label: "Reload", Href: c.Request().URL.RequestURI()},
						{Label: "Go home", Href: "/"},
					},
				}
				if verbose {
					doc.Diagnostic = diagnosticReport(reportID, rid, c.Request(), r, string(stack[:n]))
				}

				if c.Response().Committed {
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"data":     nil,
					"error":    "internal server error",
					"recovery": doc,
				})
			}()
			return next(c)
		}
	}
}

func diagnosticReport(reportID, requestID string, req *http.Request, r interface{}, stack string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report ID: %s\n", reportID)
	fmt.Fprintf(&b, "Request ID: %s\n", requestID)
	fmt.Fprintf(&b, "Time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Request: %s %s\n", req.Method, req.URL.RequestURI())
	fmt.Fprintf(&b, "User-Agent: %s\n", req.UserAgent())
	fmt.Fprintf(&b, "Error: %v\n\n%s", r, stack)
	return b.String()
}
