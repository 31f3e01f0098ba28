package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registro/core"
)

type errorPage struct {
	Code    int
	Message string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprint(origErr.Message)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(code)
			logger.Error(message, errors.Wrap(err, message), getPrincipal(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Response().Committed {
			return
		}

		var rErr error
		switch {
		case ctx.Request().Method == http.MethodHead:
			rErr = ctx.NoContent(code)
		case code == http.StatusForbidden:
			// role violations answer with their static message only
			rErr = ctx.String(code, message)
		default:
			if ctx.Echo().Debug && code == http.StatusInternalServerError {
				message = err.Error()
			}
			rErr = ctx.Render(code, "errors/error", page{
				Title:     message,
				Principal: getPrincipal(ctx),
				Data:      errorPage{Code: code, Message: message},
			})
			if rErr != nil {
				rErr = ctx.String(code, message)
			}
		}
		if rErr != nil {
			ctx.Echo().Logger.Error(rErr)
		}
	}
}
