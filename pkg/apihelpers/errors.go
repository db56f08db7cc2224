package apihelpers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is an error with a known HTTP status. Everything else reaching the error
// responder is treated as internal.
type APIError struct {
	Status  int
	Message string
	Details []FieldError
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: message}
}

func Forbidden() *APIError {
	return &APIError{Status: http.StatusForbidden, Message: "Access denied"}
}

func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message}
}

func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Message: message}
}

func ValidationError(details ...FieldError) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: "validation failed", Details: details}
}

// AbortWithError hands err to the error responder and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorResponder writes the response body for the last error attached to the context.
func ErrorResponder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, body := classifyError(err)
		if status == http.StatusInternalServerError {
			errorID := uuid.NewString()
			body["errorId"] = errorID
			slog.Error("internal error",
				slog.String("errorId", errorID),
				slog.String("method", c.Request.Method),
				slog.String("path", c.FullPath()),
				slog.String("error", err.Error()),
			)
		}
		c.JSON(status, body)
	}
}

func classifyError(err error) (int, gin.H) {
	var apiErr *APIError
	var invalidTransition *workflow.InvalidTransitionError

	switch {
	case errors.As(err, &invalidTransition):
		return http.StatusBadRequest, gin.H{
			"error":              invalidTransition.Error(),
			"currentStatus":      invalidTransition.Current,
			"allowedTransitions": invalidTransition.Allowed,
		}
	case errors.As(err, &apiErr):
		body := gin.H{"error": apiErr.Message}
		if len(apiErr.Details) > 0 {
			body["details"] = apiErr.Details
		}
		if apiErr.Status >= http.StatusInternalServerError {
			return http.StatusInternalServerError, gin.H{"error": "internal server error"}
		}
		return apiErr.Status, body
	case errors.Is(err, workflow.ErrParticipantNotFound):
		return http.StatusNotFound, gin.H{"error": "participant not found"}
	case errors.Is(err, mongo.ErrNoDocuments):
		return http.StatusNotFound, gin.H{"error": "not found"}
	case errors.Is(err, workflow.ErrConcurrentTransition):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, types.ErrInvalidEntityRef):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case mongo.IsDuplicateKeyError(err):
		return http.StatusConflict, gin.H{"error": "duplicate entry"}
	}
	return http.StatusInternalServerError, gin.H{"error": "internal server error"}
}
