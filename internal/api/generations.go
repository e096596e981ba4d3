package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"query-evolver/internal/repository"
	"query-evolver/pkg/models"
)

// ListGenerations returns every stored generation, oldest first
// (GET /api/v1/generations)
func (s *Server) ListGenerations(c echo.Context) error {
	generations, err := s.Store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if generations == nil {
		generations = []*models.Generation{}
	}
	return c.JSON(http.StatusOK, generations)
}

// LatestGeneration returns the highest-numbered generation
// (GET /api/v1/generations/latest)
func (s *Server) LatestGeneration(c echo.Context) error {
	rec, err := s.Store.Latest(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetGeneration returns one generation
// (GET /api/v1/generations/:generation)
func (s *Server) GetGeneration(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("generation"))
	if err != nil || n < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "generation must be a non-negative integer")
	}

	rec, err := s.Store.Get(c.Request().Context(), n)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ResetGenerations empties the generation store
// (DELETE /api/v1/generations)
func (s *Server) ResetGenerations(c echo.Context) error {
	if err := s.Store.Reset(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reset generations: "+err.Error())
	}
	s.logger.Info("generation store reset", "storage", s.storage)
	return c.NoContent(http.StatusNoContent)
}

func storeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
