package handlers

import (
	"errors"
	"net/http"

	"opinion-market/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError maps a service error to an HTTP status. Validation failures
// are 400, role failures 403, missing records 404, state and duplicate
// conflicts 409, and everything unexpected 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, models.ErrConfigNotFound),
		errors.Is(err, models.ErrRandomnessNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrMarketNotActive),
		errors.Is(err, models.ErrMarketNotExpired),
		errors.Is(err, models.ErrAlreadySettled),
		errors.Is(err, models.ErrAlreadyAttested),
		errors.Is(err, models.ErrAlreadyFulfilled),
		errors.Is(err, models.ErrRandomnessRequested),
		errors.Is(err, models.ErrNotReadyForSettlement),
		errors.Is(err, models.ErrDuplicateMarket),
		errors.Is(err, models.ErrDuplicateOpinion),
		errors.Is(err, models.ErrDuplicateReaction),
		errors.Is(err, models.ErrSettlementInProgress),
		errors.Is(err, models.ErrConfigExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrStatementEmpty),
		errors.Is(err, models.ErrStatementTooLong),
		errors.Is(err, models.ErrInvalidDuration),
		errors.Is(err, models.ErrStakeTooSmall),
		errors.Is(err, models.ErrStakeTooLarge),
		errors.Is(err, models.ErrLocatorTooLong),
		errors.Is(err, models.ErrInvalidTextHash),
		errors.Is(err, models.ErrInvalidScore),
		errors.Is(err, models.ErrInvalidConfidence),
		errors.Is(err, models.ErrInvalidPrediction),
		errors.Is(err, models.ErrInvalidRandomValue),
		errors.Is(err, models.ErrSelfReaction),
		errors.Is(err, models.ErrInvalidReactionAmount),
		errors.Is(err, models.ErrInvalidReactionType),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrCurrencyMismatch):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
