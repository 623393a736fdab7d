package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"contrack/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps storage sentinels onto HTTP statuses. Anything unrecognized
// is a 500 with the detail logged rather than leaked.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrValidation), errors.Is(err, storage.ErrDuplicate):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrInUse):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
