package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/student"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "operator not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrorCodes maps sentinel errors of the core packages to a response status.
var domainErrorCodes = map[error]int{
	schoolyear.ErrNotFound:        http.StatusNotFound,
	schoolyear.ErrNoActiveYear:    http.StatusNotFound,
	class.ErrNotFound:             http.StatusNotFound,
	student.ErrNotFound:           http.StatusNotFound,
	enrollment.ErrNotFound:        http.StatusNotFound,
	class.ErrYearLocked:           http.StatusConflict,
	enrollment.ErrYearLocked:      http.StatusConflict,
	enrollment.ErrAlreadyEnrolled: http.StatusConflict,
	enrollment.ErrNotActive:       http.StatusConflict,
	enrollment.ErrClassInactive:   http.StatusConflict,
	enrollment.ErrStudentInactive: http.StatusConflict,
	enrollment.ErrDifferentYear:   http.StatusBadRequest,
	enrollment.ErrInvalidStatus:   http.StatusBadRequest,
	placement.ErrYearRequired:     http.StatusBadRequest,
	placement.ErrSameYear:         http.StatusBadRequest,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var vErr *core.ValidationError
		cause := errors.Cause(err)

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, fErr := range origErr {
				fldErrs[fErr.Field()] = fErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		default:
			if errors.As(err, &vErr) {
				if vErr.Fields != nil {
					fldErrs := make(map[string]string, len(vErr.Fields))
					for _, fErr := range vErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = vErr.Error()
				}
				code = http.StatusBadRequest
				break
			}
			if c, ok := domainErrorCodes[cause]; ok {
				code = c
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			if op, oErr := getContextOperator(ctx); oErr == nil {
				logger.Error(msg, errors.Wrap(err, msg), op)
			} else {
				logger.Error(msg, errors.Wrap(err, msg))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
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
