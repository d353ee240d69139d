package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
)

var (
	errClassNotFound = echo.NewHTTPError(http.StatusNotFound, "class not found")
	errEditNotFound  = echo.NewHTTPError(http.StatusNotFound, "attendance edit not found or expired")
	errUnknownCell   = echo.NewHTTPError(http.StatusBadRequest, attendance.ErrUnknownCell.Error())
)

func malformedPayload(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "malformed payload").SetInternal(err)
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if fldErrs := origErr.FieldMap(); fldErrs != nil {
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *attendance.ConfigurationError:
			code = http.StatusUnprocessableEntity
			message = origErr.Reason
		case *attendance.SubmissionError:
			// the edit stays open: the client may submit it again
			code = http.StatusBadGateway
			if !origErr.Retryable() {
				logger.Error("attendance store failure", err)
				signalShutdown()
			}
			message = echo.Map{
				"error":     origErr.Error(),
				"mode":      origErr.Mode,
				"date":      origErr.Date.Format(attendance.DateLayout),
				"retryable": origErr.Retryable(),
			}
		default:
			switch origErr {
			case attendance.ErrNotFound:
				code, message = errClassNotFound.Code, errClassNotFound.Message
			case attendance.ErrUnknownCell:
				code, message = errUnknownCell.Code, errUnknownCell.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{"path": ctx.Path()})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			if m, ok := message.(echo.Map); ok {
				m["debug"] = err.Error()
			} else {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
