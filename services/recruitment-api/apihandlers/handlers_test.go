package apihandlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	mw "github.com/case-framework/recruitment-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/case-framework/recruitment-backend/pkg/jwt-handling"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	"github.com/case-framework/recruitment-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSignKey = "apihandlers-test-key"

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestHandler has no database. Only requests rejected before the first database access can
// be exercised with it, unless a test injects a lookup or state machine.
func newTestHandler() *HttpEndpoints {
	return NewHTTPHandler(
		testSignKey,
		time.Hour,
		nil,
		workflow.DefaultTransitions(),
		nil,
		UploadConfig{MaxFileSize: 1 << 20, MaxFiles: 2, AllowedMimeTypes: utils.DefaultAllowedUploadTypes},
		nil,
		nil,
		nil,
		true,
	)
}

func routerFor(h *HttpEndpoints) *gin.Engine {
	r := gin.New()
	r.Use(apihelpers.ErrorResponder())
	api := r.Group("/api")
	h.AddAuthAPI(api)
	h.AddUserManagementAPI(api)
	h.AddSponsorsAPI(api)
	h.AddSitesAPI(api)
	h.AddStudiesAPI(api)
	h.AddParticipantsAPI(api)
	h.AddFilesAPI(api)
	h.AddEventLogsAPI(api)
	h.AddProposalsAPI(api)
	return r
}

func newTestRouter() *gin.Engine {
	return routerFor(newTestHandler())
}

type testUser struct {
	token     string
	userID    primitive.ObjectID
	sponsorID primitive.ObjectID
	siteID    primitive.ObjectID
}

func newTestUser(t *testing.T, role types.Role) testUser {
	t.Helper()
	u := testUser{userID: primitive.NewObjectID()}
	var sponsor, site string
	switch role {
	case types.ROLE_SPONSOR:
		u.sponsorID = primitive.NewObjectID()
		sponsor = u.sponsorID.Hex()
	case types.ROLE_SITE:
		u.siteID = primitive.NewObjectID()
		site = u.siteID.Hex()
	}
	token, err := jwthandling.GenerateNewUserToken(time.Hour, u.userID.Hex(), string(role), sponsor, site, "user@example.com", "Test User", testSignKey)
	require.NoError(t, err)
	u.token = token
	return u
}

func send(r http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(mw.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sendJSON(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return send(r, method, path, token, reader, "application/json")
}

type errorResponse struct {
	Error   string                  `json:"error"`
	Details []apihelpers.FieldError `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func detailFields(resp errorResponse) []string {
	fields := make([]string, 0, len(resp.Details))
	for _, d := range resp.Details {
		fields = append(fields, d.Field)
	}
	return fields
}

func TestRoutesRequireToken(t *testing.T) {
	r := newTestRouter()
	id := primitive.NewObjectID().Hex()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/sponsors"},
		{http.MethodGet, "/api/sites"},
		{http.MethodGet, "/api/studies"},
		{http.MethodGet, "/api/studies/" + id + "/funnel"},
		{http.MethodGet, "/api/participants"},
		{http.MethodPost, "/api/participants/" + id + "/transition"},
		{http.MethodGet, "/api/files/participants/" + id},
		{http.MethodGet, "/api/files/download/" + id},
		{http.MethodGet, "/api/event-logs"},
		{http.MethodGet, "/api/proposals"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := sendJSON(r, p.method, p.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRoleGate(t *testing.T) {
	r := newTestRouter()
	sponsor := newTestUser(t, types.ROLE_SPONSOR)
	site := newTestUser(t, types.ROLE_SITE)
	id := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		user   testUser
		method string
		path   string
		body   string
	}{
		{"site lists sponsors", site, http.MethodGet, "/api/sponsors", ""},
		{"sponsor creates sponsor", sponsor, http.MethodPost, "/api/sponsors", `{"name":"x"}`},
		{"sponsor lists users", sponsor, http.MethodGet, "/api/users", ""},
		{"site creates study", site, http.MethodPost, "/api/studies", `{"title":"x"}`},
		{"site creates site", site, http.MethodPost, "/api/sites", `{"name":"x"}`},
		{"sponsor deletes site", sponsor, http.MethodDelete, "/api/sites/" + id, ""},
		{"sponsor reads event logs", sponsor, http.MethodGet, "/api/event-logs", ""},
		{"site lists proposals", site, http.MethodGet, "/api/proposals", ""},
		{"sponsor deactivates user", sponsor, http.MethodDelete, "/api/users/" + id, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sendJSON(r, tt.method, tt.path, tt.user.token, tt.body)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "Access denied", decodeError(t, w).Error)
		})
	}
}

func TestInvalidIDs(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	id := primitive.NewObjectID().Hex()

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/participants/not-an-id", ""},
		{http.MethodGet, "/api/studies/123/funnel", ""},
		{http.MethodGet, "/api/files/download/abc", ""},
		{http.MethodPut, "/api/participants/" + id + "/notes/abc/complete", ""},
		{http.MethodPost, "/api/studies/" + id + "/sites/abc", ""},
		{http.MethodGet, "/api/proposals/abc", ""},
		{http.MethodGet, "/api/participants?studyId=abc", ""},
		{http.MethodGet, "/api/event-logs?entityId=abc", ""},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := sendJSON(r, p.method, p.path, admin.token, p.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListQueryValidation(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)

	for _, path := range []string{
		"/api/participants?status=Bogus",
		"/api/participants?page=abc",
		"/api/studies?status=Open",
		"/api/event-logs?entityType=Planet",
		"/api/proposals?status=Pending",
	} {
		t.Run(path, func(t *testing.T) {
			w := sendJSON(r, http.MethodGet, path, admin.token, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter()

	t.Run("missing payload", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/auth/register", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("schema violations are listed per field", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/auth/register", "", `{"email":"not-an-email","role":"superuser"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := detailFields(decodeError(t, w))
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
		assert.Contains(t, fields, "role")
	})

	t.Run("weak password", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/auth/register", "",
			`{"name":"A","email":"a@example.com","password":"short","role":"admin"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"password"}, detailFields(decodeError(t, w)))
	})

	t.Run("sponsor without sponsorId", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/auth/register", "",
			`{"name":"A","email":"a@example.com","password":"Secure-Pass1","role":"sponsor"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"sponsorId"}, detailFields(decodeError(t, w)))
	})
}

func TestLoginValidation(t *testing.T) {
	r := newTestRouter()

	w := sendJSON(r, http.MethodPost, "/api/auth/login", "", `{"email":"a@example.com"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"password"}, detailFields(decodeError(t, w)))

	w = sendJSON(r, http.MethodPost, "/api/auth/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateParticipantValidation(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	site := newTestUser(t, types.ROLE_SITE)
	studyID := primitive.NewObjectID().Hex()

	t.Run("required fields", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/participants", admin.token, `{"email":"nope"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := detailFields(decodeError(t, w))
		assert.ElementsMatch(t, []string{"firstName", "lastName", "email", "studyId"}, fields)
	})

	t.Run("admin must name the site", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/participants", admin.token,
			`{"firstName":"Ada","lastName":"L","studyId":"`+studyID+`"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"siteId"}, detailFields(decodeError(t, w)))
	})

	t.Run("site user cannot add to another site", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, "/api/participants", site.token,
			`{"firstName":"Ada","lastName":"L","studyId":"`+studyID+`","siteId":"`+primitive.NewObjectID().Hex()+`"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestParticipantUpdateRejectsStatusAndPlacement(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	path := "/api/participants/" + primitive.NewObjectID().Hex()

	w := sendJSON(r, http.MethodPut, path, admin.token, `{"status":"Enrolled"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"status"}, detailFields(decodeError(t, w)))

	w = sendJSON(r, http.MethodPut, path, admin.token, `{"siteId":"`+primitive.NewObjectID().Hex()+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"siteId"}, detailFields(decodeError(t, w)))
}

func TestTransitionValidation(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	path := "/api/participants/" + primitive.NewObjectID().Hex() + "/transition"

	w := sendJSON(r, http.MethodPost, path, admin.token, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"to"}, detailFields(decodeError(t, w)))

	w = sendJSON(r, http.MethodPost, path, admin.token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddNoteValidation(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	path := "/api/participants/" + primitive.NewObjectID().Hex() + "/notes"

	w := sendJSON(r, http.MethodPost, path, admin.token, `{"content":"call back","type":"task"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"dueDate"}, detailFields(decodeError(t, w)))

	w = sendJSON(r, http.MethodPost, path, admin.token, `{"content":"x","type":"reminder"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"type"}, detailFields(decodeError(t, w)))

	w = sendJSON(r, http.MethodPost, path, admin.token, `{"type":"note"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"content"}, detailFields(decodeError(t, w)))
}

type uploadPart struct {
	name    string
	content []byte
}

func multipartBody(t *testing.T, field string, parts ...uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mpw := multipart.NewWriter(body)
	for _, p := range parts {
		fw, err := mpw.CreateFormFile(field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.content)
		require.NoError(t, err)
	}
	require.NoError(t, mpw.WriteField("comment", "x"))
	require.NoError(t, mpw.Close())
	return body, mpw.FormDataContentType()
}

func TestUploadValidation(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	path := "/api/files/participants/" + primitive.NewObjectID().Hex() + "/upload"
	pdf := []byte("%PDF-1.4\n%test document\n")

	tests := []struct {
		name  string
		field string
		parts []uploadPart
	}{
		{"no file", UPLOAD_FORM_FIELD, nil},
		{"wrong form field", "document", []uploadPart{{"a.pdf", pdf}}},
		{"too many files", UPLOAD_FORM_FIELD, []uploadPart{{"a.pdf", pdf}, {"b.pdf", pdf}, {"c.pdf", pdf}}},
		{"disallowed type", UPLOAD_FORM_FIELD, []uploadPart{{"a.exe", []byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00\x00\x00\xff\xff")}}},
		{"empty file", UPLOAD_FORM_FIELD, []uploadPart{{"a.pdf", []byte{}}}},
		{"too large", UPLOAD_FORM_FIELD, []uploadPart{{"a.pdf", append(pdf, bytes.Repeat([]byte("a"), 1<<20)...)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.field, tt.parts...)
			w := send(r, http.MethodPost, path, admin.token, body, contentType)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, []string{UPLOAD_FORM_FIELD}, detailFields(decodeError(t, w)))
		})
	}

	t.Run("not a multipart request", func(t *testing.T) {
		w := sendJSON(r, http.MethodPost, path, admin.token, `{"file":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubmitProposalValidation(t *testing.T) {
	r := newTestRouter()

	w := sendJSON(r, http.MethodPost, "/api/proposals", "", `{"name":"Grace","role":"admin","email":"grace@"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "validation failed", resp.Error)
	assert.ElementsMatch(t, []string{"email", "phone", "company", "role"}, detailFields(resp))

	w = sendJSON(r, http.MethodPost, "/api/proposals", "", `{"name":"Grace","email":"grace@example.com","phone":"1","company":"ACME","role":"site","message":"`+strings.Repeat("x", 5001)+`"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"message"}, detailFields(decodeError(t, w)))
}

func TestUpdateProposalValidation(t *testing.T) {
	r := newTestRouter()
	admin := newTestUser(t, types.ROLE_ADMIN)
	path := "/api/proposals/" + primitive.NewObjectID().Hex()

	w := sendJSON(r, http.MethodPut, path, admin.token, `{"status":"Archived"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"status"}, detailFields(decodeError(t, w)))

	w = sendJSON(r, http.MethodPut, path, admin.token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
