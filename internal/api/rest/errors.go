package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaintrace/provenance-api/internal/domain"
	"github.com/chaintrace/provenance-api/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeValidationFailed ErrorCode = "validation_failed"
	errCodeUnauthorized     ErrorCode = "unauthorized"
	errCodeForbidden        ErrorCode = "forbidden"
	errCodeConflict         ErrorCode = "conflict"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondUnauthorized sends a 401 Unauthorized response
func respondUnauthorized(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusUnauthorized, errCodeUnauthorized, message, details...)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// respondDomainError translates ledger errors into HTTP responses
func respondDomainError(c *gin.Context, err error) {
	var mismatch *domain.OwnershipMismatchError

	switch {
	case errors.Is(err, domain.ErrDuplicateProduct):
		respondWithError(c, http.StatusConflict, errCodeConflict, "Product already exists")
	case errors.Is(err, domain.ErrProductRetired):
		respondWithError(c, http.StatusConflict, errCodeConflict, "Product is end-of-life")
	case errors.Is(err, domain.ErrUnknownProduct):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Product not found")
	case errors.As(err, &mismatch):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Ownership verification failed", mismatch.Error())
	case errors.Is(err, domain.ErrOwnershipMismatch):
		respondWithError(c, http.StatusForbidden, errCodeForbidden, "Ownership verification failed")
	case errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrMissingRepairDetail),
		errors.Is(err, domain.ErrInvalidIdentity),
		errors.Is(err, domain.ErrInvalidProductID):
		respondBadRequest(c, "Invalid request", err.Error())
	default:
		respondInternalError(c, err, "Internal server error")
	}
}
