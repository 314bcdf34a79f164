package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
)

type explainBody struct {
	Data     json.RawMessage `json:"data"`
	Language string          `json:"language"`
}

func (s *Server) explainChart(c echo.Context) error {
	return s.serveExplanation(c, astrology.KindChart)
}

func (s *Server) explainDasha(c echo.Context) error {
	return s.serveExplanation(c, astrology.KindDasha)
}

func (s *Server) explainYearly(c echo.Context) error {
	return s.serveExplanation(c, astrology.KindYearly)
}

func (s *Server) serveExplanation(c echo.Context, kind astrology.OperationKind) error {
	helpers.SetOperation(c, string(astrology.ExplainTag(kind)))

	var body explainBody
	if err := c.Bind(&body); err != nil {
		return bindError(err)
	}
	if len(body.Data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, astrology.ErrMissingExplanationData.Message)
	}

	exp, err := s.readings.Explain(c.Request().Context(), &astrology.ExplanationRequest{
		Kind:     kind,
		Data:     body.Data,
		Language: astrology.Language(body.Language),
	})
	if err != nil {
		return s.readingError(c, err, "Failed to get explanation")
	}
	return c.JSON(http.StatusOK, exp)
}
