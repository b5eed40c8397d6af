package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pointstake/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// ServiceError maps the ledger service's sentinel errors onto HTTP statuses.
// Unknown errors become a 500 with a generic message.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSide),
		errors.Is(err, service.ErrStakeOutOfBounds),
		errors.Is(err, service.ErrInvalidEntryPrice):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrMarketNotFound),
		errors.Is(err, service.ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrMarketResolved),
		errors.Is(err, service.ErrMarketClosed),
		errors.Is(err, service.ErrNoDecisionYet),
		errors.Is(err, service.ErrAlreadyCheckedIn):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrInsufficientBalance):
		Error(c, http.StatusPaymentRequired, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, "internal error", nil)
	}
}
