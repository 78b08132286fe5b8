package http

import (
	"errors"
	"net/http"

	"peerfund-backend/internal/domain/errs"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps domain failure classes to status codes. Integrity
// violations and anything unclassified become opaque 500s; the detail goes
// to the log, not the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrStorageUnavailable):
		log.Error("storage unavailable", zap.Error(err), zap.String("path", c.Path()))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})
	default:
		log.Error("internal error", zap.Error(err), zap.String("path", c.Path()))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
