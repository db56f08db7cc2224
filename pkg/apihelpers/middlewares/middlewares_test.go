package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	jwthandling "github.com/case-framework/recruitment-backend/pkg/jwt-handling"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const signKey = "middleware-test-key"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver map[types.EntityRef]permissionchecker.Ownership

func (f fakeResolver) OwnershipOf(_ context.Context, ref types.EntityRef) (permissionchecker.Ownership, error) {
	o, ok := f[ref]
	if !ok {
		return permissionchecker.Ownership{}, errors.New("not found")
	}
	return o, nil
}

func tokenFor(t *testing.T, role types.Role, sponsorID, siteID primitive.ObjectID) (string, primitive.ObjectID) {
	t.Helper()
	userID := primitive.NewObjectID()
	var sponsor, site string
	if !sponsorID.IsZero() {
		sponsor = sponsorID.Hex()
	}
	if !siteID.IsZero() {
		site = siteID.Hex()
	}
	token, err := jwthandling.GenerateNewUserToken(time.Hour, userID.Hex(), string(role), sponsor, site, "u@example.com", "User", signKey)
	require.NoError(t, err)
	return token, userID
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(apihelpers.ErrorResponder())
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/items/:id", handlers...)
	r.GET("/items/:id", handlers...)
	return r
}

func doRequest(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetAndValidateUserJWT(t *testing.T) {
	r := newRouter(GetAndValidateUserJWT(signKey))
	token, _ := tokenFor(t, types.ROLE_ADMIN, primitive.NilObjectID, primitive.NilObjectID)
	id := primitive.NewObjectID().Hex()

	w := doRequest(r, http.MethodGet, "/items/"+id, token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/items/"+id, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, errorBody(t, w)["error"])

	w = doRequest(r, http.MethodGet, "/items/"+id, "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	sponsorWithoutID, err := jwthandling.GenerateNewUserToken(time.Hour, primitive.NewObjectID().Hex(), "sponsor", "", "", "", "", signKey)
	require.NoError(t, err)
	w = doRequest(r, http.MethodGet, "/items/"+id, sponsorWithoutID, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(GetAndValidateUserJWT(signKey), RequireRoles(types.ROLE_ADMIN, types.ROLE_SPONSOR))
	id := primitive.NewObjectID().Hex()

	sponsorToken, _ := tokenFor(t, types.ROLE_SPONSOR, primitive.NewObjectID(), primitive.NilObjectID)
	siteToken, _ := tokenFor(t, types.ROLE_SITE, primitive.NilObjectID, primitive.NewObjectID())

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/items/"+id, sponsorToken, "").Code)

	w := doRequest(r, http.MethodGet, "/items/"+id, siteToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", errorBody(t, w)["error"])

	// without the JWT middleware there is no principal
	bare := newRouter(RequireRoles(types.ROLE_ADMIN))
	assert.Equal(t, http.StatusUnauthorized, doRequest(bare, http.MethodGet, "/items/"+id, "", "").Code)
}

func TestRequireScope(t *testing.T) {
	sponsorA := primitive.NewObjectID()
	sponsorB := primitive.NewObjectID()
	siteA := primitive.NewObjectID()
	studyA := primitive.NewObjectID()
	studyB := primitive.NewObjectID()

	resolver := fakeResolver{
		types.StudyRef(studyA): {SponsorID: sponsorA, SiteIDs: []primitive.ObjectID{siteA}},
		types.StudyRef(studyB): {SponsorID: sponsorB},
	}
	r := newRouter(GetAndValidateUserJWT(signKey), RequireScope(types.ENTITY_TYPE_STUDY, "id", resolver))

	adminToken, _ := tokenFor(t, types.ROLE_ADMIN, primitive.NilObjectID, primitive.NilObjectID)
	sponsorToken, _ := tokenFor(t, types.ROLE_SPONSOR, sponsorA, primitive.NilObjectID)
	siteToken, _ := tokenFor(t, types.ROLE_SITE, primitive.NilObjectID, siteA)

	tests := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"sponsor own study", sponsorToken, "/items/" + studyA.Hex(), http.StatusOK},
		{"sponsor foreign study", sponsorToken, "/items/" + studyB.Hex(), http.StatusForbidden},
		{"site linked study", siteToken, "/items/" + studyA.Hex(), http.StatusOK},
		{"site unlinked study", siteToken, "/items/" + studyB.Hex(), http.StatusForbidden},
		{"unknown study denied", sponsorToken, "/items/" + primitive.NewObjectID().Hex(), http.StatusForbidden},
		{"admin skips lookup", adminToken, "/items/" + primitive.NewObjectID().Hex(), http.StatusOK},
		{"malformed id", sponsorToken, "/items/xyz", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, tt.path, tt.token, "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireScopeUserRecord(t *testing.T) {
	r := newRouter(GetAndValidateUserJWT(signKey), RequireScope(types.ENTITY_TYPE_USER, "id", fakeResolver{}))
	token, userID := tokenFor(t, types.ROLE_SITE, primitive.NilObjectID, primitive.NewObjectID())

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/items/"+userID.Hex(), token, "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/items/"+primitive.NewObjectID().Hex(), token, "").Code)
}

func TestRequirePayload(t *testing.T) {
	r := newRouter(RequirePayload())
	id := primitive.NewObjectID().Hex()

	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodPost, "/items/"+id, "", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/items/"+id, "", `{"a":1}`).Code)
}
