package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/api"
	"github.com/jonesrussell/civic-triage/internal/auth"
	"github.com/jonesrussell/civic-triage/internal/classifier"
	"github.com/jonesrussell/civic-triage/internal/domain"
	"github.com/jonesrussell/civic-triage/internal/export"
	"github.com/jonesrussell/civic-triage/internal/intake"
	"github.com/jonesrussell/civic-triage/internal/lexicon"
	"github.com/jonesrussell/civic-triage/internal/routing"
	"github.com/jonesrussell/civic-triage/internal/testhelpers"
	"github.com/jonesrussell/civic-triage/internal/ticket"
)

const (
	testSecret   = "api-test-secret-with-enough-entropy"
	testPassword = "correct-horse"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type testAPI struct {
	router *gin.Engine
	store  *testhelpers.MemoryStore
	tokens *jwt.Manager
	wasac  int64
	reg    int64
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAPI(t *testing.T, limiter *api.RateLimiter) *testAPI {
	t.Helper()

	store := testhelpers.NewMemoryStore()
	store.Now = func() time.Time { return fixedNow }
	wasac := store.AddAgency("WASAC")
	reg := store.AddAgency("REG")
	store.AddCategory("Water Supply", &wasac)
	store.AddCategory("General", &reg)

	lex := lexicon.New(lexicon.Language{Name: "english", Categories: []lexicon.CategoryKeywords{
		{Category: "Water Supply", Keywords: []string{"water", "pipe"}},
	}})
	log := logger.NewNop()
	router := routing.NewRouter(classifier.New(lex),
		routing.NewResolver(store, routing.DefaultCategoryName, log), nil, log)
	gen := ticket.NewGenerator(store, log,
		ticket.WithLocation(time.UTC),
		ticket.WithClock(func() time.Time { return fixedNow }))
	issuer := ticket.NewIssuer(gen, store, log, ticket.WithRetryDelay(0))
	service := intake.NewService(store, router, issuer, log,
		intake.WithLanguages("english", "kinyarwanda"),
		intake.WithLocation(time.UTC),
		intake.WithClock(func() time.Time { return fixedNow }),
	)

	ctx := context.Background()
	for _, admin := range []struct {
		name   string
		agency *int64
	}{
		{"wasac-admin", &wasac},
		{"reg-admin", &reg},
		{"orphan-admin", nil},
	} {
		_, err := auth.CreateAdmin(ctx, store, admin.name, testPassword, admin.agency)
		require.NoError(t, err)
	}

	tokens := jwt.NewManager(testSecret, time.Hour, "civic-triage")
	engine := gin.New()
	api.RegisterRoutes(engine, api.NewHandler(service, auth.NewAuthenticator(store, tokens, log)), tokens, limiter)

	return &testAPI{router: engine, store: store, tokens: tokens, wasac: wasac, reg: reg}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != export.ContentType {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (a *testAPI) login(t *testing.T, username string) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/v1/admin/login", "",
		map[string]string{"username": username, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func (a *testAPI) submit(t *testing.T, description string) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/v1/submissions", "", map[string]any{
		"description":     description,
		"citizen_contact": "0788000000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		TicketID string `json:"ticketId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.TicketID
}

func TestCreateSubmission(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	w, env := a.do(t, http.MethodPost, "/api/v1/submissions", "", map[string]any{
		"subject":         "Burst pipe",
		"description":     "The water pipe burst near the market",
		"citizen_contact": "0788000000",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Submission received successfully.", env.Message)
	assert.JSONEq(t, `{"ticketId":"CE-20240115-00001"}`, string(env.Data))

	subs := a.store.Submissions()
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].AgencyID)
	assert.Equal(t, a.wasac, *subs[0].AgencyID)
	assert.Equal(t, domain.StatusReceived, subs[0].Status)
}

func TestCreateSubmission_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		wantErrors int
	}{
		{
			name:       "missing description and contact",
			body:       map[string]any{},
			wantErrors: 2,
		},
		{
			name: "unknown language",
			body: map[string]any{
				"description":         "The water pipe burst near the market",
				"citizen_contact":     "0788000000",
				"language_preference": "klingon",
			},
			wantErrors: 1,
		},
		{
			name:       "malformed json",
			body:       "{not json",
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestAPI(t, nil)
			w, env := a.do(t, http.MethodPost, "/api/v1/submissions", "", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, "Validation Error", env.Message)
			assert.Len(t, env.Errors, tt.wantErrors)
			assert.Empty(t, a.store.Submissions())
		})
	}
}

func TestTrackSubmission(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	ticketID := a.submit(t, "Water has been cut for three days")

	w, env := a.do(t, http.MethodGet, "/api/v1/submissions/"+ticketID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail domain.SubmissionDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, ticketID, detail.TicketID)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "Water Supply", detail.Category.Name)
	require.NotNil(t, detail.Agency)
	assert.Equal(t, "WASAC", detail.Agency.Name)

	w, env = a.do(t, http.MethodGet, "/api/v1/submissions/CE-19990101-00001", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Submission not found.", env.Message)
}

func TestPublicLists(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	a.submit(t, "Water has been cut for three days")

	w, env := a.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var categories []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	require.Len(t, categories, 2)
	assert.NotContains(t, categories[0], "agency_id")

	w, env = a.do(t, http.MethodGet, "/api/v1/agencies", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var agencies []domain.Agency
	require.NoError(t, json.Unmarshal(env.Data, &agencies))
	assert.Len(t, agencies, 2)

	w, env = a.do(t, http.MethodGet, "/api/v1/stats/summary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.TotalSubmissions)
	assert.Equal(t, 1, stats.SubmissionsByStatus[domain.StatusReceived])
}

func TestLogin(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)

	w, env := a.do(t, http.MethodPost, "/api/v1/admin/login", "",
		map[string]string{"username": "wasac-admin", "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", env.Message)

	var data struct {
		Username string `json:"username"`
		Role     string `json:"role"`
		Agency   *struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"agency"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "wasac-admin", data.Username)
	assert.Equal(t, domain.RoleAdmin, data.Role)
	require.NotNil(t, data.Agency)
	assert.Equal(t, "WASAC", data.Agency.Name)

	claims, err := a.tokens.Validate(data.Token)
	require.NoError(t, err)
	require.NotNil(t, claims.AgencyID)
	assert.Equal(t, a.wasac, *claims.AgencyID)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantMsg    string
	}{
		{"missing password", map[string]string{"username": "wasac-admin"}, http.StatusBadRequest, "Username and password are required."},
		{"empty body", map[string]string{}, http.StatusBadRequest, "Username and password are required."},
		{"blank username", map[string]string{"username": "", "password": testPassword}, http.StatusBadRequest, "Username and password are required."},
		{"wrong password", map[string]string{"username": "wasac-admin", "password": "nope-nope"}, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", map[string]string{"username": "ghost", "password": testPassword}, http.StatusUnauthorized, "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(t, http.MethodPost, "/api/v1/admin/login", "", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}
}

func TestAdminSubmissions_RequireToken(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)

	w, _ := a.do(t, http.MethodGet, "/api/v1/admin/submissions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := a.do(t, http.MethodGet, "/api/v1/admin/submissions", a.login(t, "orphan-admin"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized: Admin agency information not available.", env.Message)
}

func TestAdminSubmissions_ScopedToAgency(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	a.submit(t, "Water has been cut for three days")
	a.submit(t, "Street lights are broken at night")

	w, env := a.do(t, http.MethodGet, "/api/v1/admin/submissions", a.login(t, "wasac-admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var subs []domain.SubmissionDetail
	require.NoError(t, json.Unmarshal(env.Data, &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "Water has been cut for three days", subs[0].Description)

	path := "/api/v1/admin/submissions/" + strconv.FormatInt(subs[0].ID, 10)
	w, _ = a.do(t, http.MethodGet, path, a.login(t, "wasac-admin"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = a.do(t, http.MethodGet, path, a.login(t, "reg-admin"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden: You are not authorized to view this submission.", env.Message)
}

func TestUpdateSubmission(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	a.submit(t, "Water has been cut for three days")
	id := a.store.Submissions()[0].ID
	path := "/api/v1/admin/submissions/" + strconv.FormatInt(id, 10)
	wasacToken := a.login(t, "wasac-admin")

	w, env := a.do(t, http.MethodPut, path, wasacToken, map[string]any{
		"status":         "In Progress",
		"admin_response": "A crew is on the way",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Submission updated successfully", env.Message)

	var detail domain.SubmissionDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, domain.StatusInProgress, detail.Status)
	require.NotNil(t, detail.AdminResponse)
	assert.Equal(t, "A crew is on the way", *detail.AdminResponse)

	w, env = a.do(t, http.MethodPut, path, wasacToken, map[string]any{"status": "Resolved"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.NotNil(t, detail.AdminResponse, "omitted admin_response keeps the stored value")

	tests := []struct {
		name       string
		path       string
		token      string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{"invalid id", "/api/v1/admin/submissions/abc", wasacToken, map[string]any{"status": "Closed"}, http.StatusBadRequest, "Invalid Submission ID provided."},
		{"invalid status", path, wasacToken, map[string]any{"status": "Pending"}, http.StatusBadRequest, "Validation Error"},
		{"missing submission", "/api/v1/admin/submissions/9999", wasacToken, map[string]any{"status": "Closed"}, http.StatusNotFound, "Submission not found"},
		{"other agency", path, a.login(t, "reg-admin"), map[string]any{"status": "Closed"}, http.StatusForbidden, "Forbidden: You are not authorized to update this submission."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := a.do(t, http.MethodPut, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}
}

func TestSearchSubmissions_Disabled(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	w, env := a.do(t, http.MethodGet, "/api/v1/admin/submissions/search?q=water", a.login(t, "wasac-admin"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Search is not enabled.", env.Message)
}

func TestExportSubmissions(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, nil)
	a.submit(t, "Water has been cut for three days")

	w, _ := a.do(t, http.MethodGet, "/api/v1/admin/submissions/export", a.login(t, "wasac-admin"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")
	assert.NotZero(t, w.Body.Len())
}

func TestCreateSubmission_RateLimited(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t, api.NewRateLimiter(0.001, 1, nil))
	a.submit(t, "Water has been cut for three days")

	w, env := a.do(t, http.MethodPost, "/api/v1/submissions", "", map[string]any{
		"description":     "Water has been cut for four days",
		"citizen_contact": "0788000000",
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, env.Success)
	assert.Len(t, a.store.Submissions(), 1)
}
