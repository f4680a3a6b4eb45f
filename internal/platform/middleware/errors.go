package middleware

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediqueue/mediqueue/internal/platform/apperr"
)

var notFoundPage = template.Must(template.New("notfound").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Page not found</title></head>
<body><h1>404</h1><p>The page {{.}} does not exist.</p><p><a href="/">Back to home</a></p></body></html>`))

// ErrorHandler renders every error that reaches echo as a {data, error}
// envelope. Unknown routes get a not-found document linking home, as HTML
// when the client asks for it.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := interface{}("internal server error")

		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				logger.Debug().Err(he.Internal).Msg("http error")
			}
		case apperr.KindOf(err) != apperr.KindInternal:
			code = apperr.HTTPStatus(err)
			msg = apperr.Message(err)
		default:
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(code)
			return
		}

		if code == http.StatusNotFound && errors.Is(err, echo.ErrNotFound) {
			path := c.Request().URL.Path
			if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
				c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
				c.Response().WriteHeader(http.StatusNotFound)
				notFoundPage.Execute(c.Response(), path)
				return
			}
			c.JSON(http.StatusNotFound, map[string]interface{}{
				"data":  nil,
				"error": "page not found",
				"path":  path,
				"links": map[string]string{"home": "/"},
			})
			return
		}

		c.JSON(code, map[string]interface{}{"data": nil, "error": msg})
	}
}
