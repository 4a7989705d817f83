package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban-api/engine"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeEngineError maps an engine error onto an HTTP response. Validation
// kinds map to 400, not-found kinds to 404, WIP admission to 409. Storage
// failures are collapsed to a generic 500 so backend error text never reaches
// callers.
func writeEngineError(c echo.Context, err error) error {
	if errors.Is(err, engine.ErrInvalidIdentifier) || errors.Is(err, engine.ErrInvalidPosition) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	var notFound engine.NotFoundError
	if errors.As(err, &notFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Error()})
	}
	var wip engine.WipLimitError
	if errors.As(err, &wip) {
		return c.JSON(http.StatusConflict, errorResponse{Error: wip.Error()})
	}

	var validation engine.ValidationError
	var unknown engine.UnknownFieldError
	var missing engine.MissingRequiredFieldError
	var invalid engine.InvalidFieldValueError
	if errors.As(err, &validation) || errors.As(err, &unknown) || errors.As(err, &missing) || errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	if engine.IsTransport(err) {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "storage temporarily unavailable"})
	}

	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
