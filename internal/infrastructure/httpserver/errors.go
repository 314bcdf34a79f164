package httpserver

import (
	"errors"
	"net/http"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
)

const routeNotFound = "Route not found"

type errorBody struct {
	Error string `json:"error"`
}

// httpErrorHandler renders every failure as {"error": message}. Unknown routes
// and unsupported methods both answer 404.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code == http.StatusNotFound || code == http.StatusMethodNotAllowed {
		code = http.StatusNotFound
		msg = routeNotFound
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, errorBody{Error: msg})
	}
	if werr != nil && s.logger != nil {
		s.logger.WithError(werr).Error("failed to write error response")
	}
}

// readingError maps a service failure to an HTTP error. Validation problems
// keep their message; everything else is logged and replaced by fallback.
func (s *Server) readingError(c echo.Context, err error, fallback string) error {
	var verr *astrology.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Message)
	}
	if errors.Is(err, astrology.ErrValidation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if s.logger != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"operation":  helpers.GetOperation(c),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error("reading request failed")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, fallback)
}
