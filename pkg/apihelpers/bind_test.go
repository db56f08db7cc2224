package apihelpers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindTestReq struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,oneof=sponsor site"`
}

func bindBody(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req bindTestReq
	return BindJSON(c, &req)
}

func TestBindJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		assert.NoError(t, bindBody(t, `{"name":"Jane","email":"jane@example.com"}`))
	})

	t.Run("rule violations", func(t *testing.T) {
		err := bindBody(t, `{"email":"nope","role":"admin"}`)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)

		fields := map[string]string{}
		for _, d := range apiErr.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "is required", fields["name"])
		assert.Equal(t, "must be a valid email address", fields["email"])
		assert.Equal(t, "must be one of: sponsor site", fields["role"])
	})

	t.Run("malformed json", func(t *testing.T) {
		err := bindBody(t, `{"name":`)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Empty(t, apiErr.Details)
	})
}
