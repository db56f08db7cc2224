package apihelpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respondWith(err error) (*httptest.ResponseRecorder, map[string]any) {
	r := gin.New()
	r.Use(ErrorResponder())
	r.GET("/", func(c *gin.Context) {
		AbortWithError(c, err)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestErrorResponderStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", Unauthorized("no token"), http.StatusUnauthorized},
		{"forbidden", Forbidden(), http.StatusForbidden},
		{"not found", NotFound("study not found"), http.StatusNotFound},
		{"conflict", Conflict("exists"), http.StatusConflict},
		{"no documents", fmt.Errorf("loading study: %w", mongo.ErrNoDocuments), http.StatusNotFound},
		{"participant not found", workflow.ErrParticipantNotFound, http.StatusNotFound},
		{"concurrent transition", workflow.ErrConcurrentTransition, http.StatusConflict},
		{"invalid ref", types.ErrInvalidEntityRef, http.StatusBadRequest},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := respondWith(tt.err)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestErrorResponderInternalHidesDetails(t *testing.T) {
	w, body := respondWith(errors.New("connection refused to 10.0.0.3"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotEmpty(t, body["errorId"])

	_, other := respondWith(errors.New("again"))
	assert.NotEqual(t, body["errorId"], other["errorId"])
}

func TestErrorResponderInvalidTransition(t *testing.T) {
	err := workflow.DefaultTransitions().Validate(types.PARTICIPANT_STATUS_COMPLETED, types.PARTICIPANT_STATUS_ENROLLED)
	w, body := respondWith(err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Completed", body["currentStatus"])
	assert.Equal(t, []any{}, body["allowedTransitions"])
	assert.Nil(t, body["errorId"])
}

func TestErrorResponderValidationDetails(t *testing.T) {
	w, body := respondWith(ValidationError(FieldError{Field: "email", Message: "invalid email"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	details, ok := body["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].(map[string]any)["field"])
}
