package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
)

type birthDetailsBody struct {
	DOB       string                `json:"dob" validate:"required"`
	Time      string                `json:"time" validate:"required"`
	Latitude  *astrology.Coordinate `json:"latitude" validate:"required"`
	Longitude *astrology.Coordinate `json:"longitude" validate:"required"`
	Timezone  string                `json:"timezone" validate:"required"`
	Language  string                `json:"language"`
}

func (b *birthDetailsBody) request() *astrology.AstrologyRequest {
	return &astrology.AstrologyRequest{
		BirthDetails: astrology.BirthDetails{
			DOB:       b.DOB,
			Time:      b.Time,
			Latitude:  b.Latitude,
			Longitude: b.Longitude,
			Timezone:  b.Timezone,
		},
		Language: astrology.Language(b.Language),
	}
}

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

func (s *Server) chart(c echo.Context) error {
	return s.serveReading(c, astrology.TagChart, "Failed to fetch chart", s.readings.Chart)
}

func (s *Server) dasha(c echo.Context) error {
	return s.serveReading(c, astrology.TagDasha, "Failed to fetch dasha", s.readings.Dasha)
}

func (s *Server) yearly(c echo.Context) error {
	return s.serveReading(c, astrology.TagYearly, "Failed to fetch yearly forecast", s.readings.Yearly)
}

func (s *Server) serveReading(c echo.Context, tag astrology.OperationTag, fallback string, read func(context.Context, *astrology.AstrologyRequest) (json.RawMessage, error)) error {
	helpers.SetOperation(c, string(tag))

	var body birthDetailsBody
	if err := c.Bind(&body); err != nil {
		return bindError(err)
	}
	req := body.request()
	if err := c.Validate(&body); err != nil || req.Validate() != nil {
		return echo.NewHTTPError(http.StatusBadRequest, astrology.ErrMissingBirthDetails.Message)
	}

	data, err := read(c.Request().Context(), req)
	if err != nil {
		return s.readingError(c, err, fallback)
	}
	return c.JSON(http.StatusOK, dataResponse{Data: data})
}

// bindError keeps the message of a coordinate that failed to parse and hides
// decoder details otherwise.
func bindError(err error) error {
	var verr *astrology.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Message)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}
