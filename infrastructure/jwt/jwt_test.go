package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
)

const testSecret = "test-secret-with-enough-entropy"

func TestManager_GenerateAndValidate(t *testing.T) {
	t.Parallel()

	m := jwt.NewManager(testSecret, time.Hour, "civic-triage")
	agencyID := int64(2)

	token, expiresAt, err := m.Generate(11, "rura-admin", "admin", &agencyID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "rura-admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.AgencyID)
	assert.Equal(t, int64(2), *claims.AgencyID)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(11), userID)
}

func TestManager_RejectsForeignTokens(t *testing.T) {
	t.Parallel()

	issuer := jwt.NewManager(testSecret, time.Hour, "civic-triage")
	token, _, err := issuer.Generate(1, "a", "admin", nil)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		manager *jwt.Manager
		token   string
	}{
		{"wrong secret", jwt.NewManager("other-secret", time.Hour, "civic-triage"), token},
		{"wrong issuer", jwt.NewManager(testSecret, time.Hour, "someone-else"), token},
		{"garbage", issuer, "not.a.token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.manager.Validate(tc.token)
			assert.ErrorIs(t, err, jwt.ErrInvalidToken)
		})
	}
}

func TestManager_RejectsExpired(t *testing.T) {
	t.Parallel()

	m := jwt.NewManager(testSecret, -time.Minute, "civic-triage")
	token, _, err := m.Generate(1, "a", "admin", nil)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := jwt.NewManager(testSecret, time.Hour, "civic-triage")
	adminToken, _, err := m.Generate(1, "admin", "admin", nil)
	require.NoError(t, err)
	viewerToken, _, err := m.Generate(2, "viewer", "viewer", nil)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin", jwt.Middleware(m, "admin"), func(c *gin.Context) {
		claims, ok := jwt.GetClaims(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Username)
	})

	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewerToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}
