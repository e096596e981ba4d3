package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"query-evolver/internal/similarity"
	"query-evolver/pkg/models"
)

// CompareDatasets scores two result sets
// (POST /api/v1/similarity/datasets)
func (s *Server) CompareDatasets(c echo.Context) error {
	var req models.DatasetComparisonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	return c.JSON(http.StatusOK, models.DatasetComparisonResponse{
		Score:          similarity.ComparePair(req.Left, req.Right),
		OrderSensitive: similarity.IsOrderSensitive(req.Left.Query, req.Right.Query),
	})
}

// CompareStrings scores two strings with Jaro-Winkler
// (POST /api/v1/similarity/strings)
func (s *Server) CompareStrings(c echo.Context) error {
	var req models.StringComparisonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return c.JSON(http.StatusOK, models.StringComparisonResponse{Score: similarity.StringSimilarity(req.A, req.B)})
}
