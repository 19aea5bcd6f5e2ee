package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/tools", am.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client": c.GetString(ClientIDKey)})
	})
	router.DELETE("/cache", am.RequireAuth(), am.RequireScope(ScopeAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serve(router *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	router := newAuthRouter(am)

	valid, err := am.GenerateToken("sourcing-agent", nil, time.Hour)
	require.NoError(t, err)
	expired, err := am.GenerateToken("sourcing-agent", nil, -time.Hour)
	require.NoError(t, err)
	foreign, err := NewAuthMiddleware("other-secret").GenerateToken("sourcing-agent", nil, time.Hour)
	require.NoError(t, err)
	anonymous, err := am.GenerateToken("", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "sourcing-agent"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "sourcing-agent"},
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization header format"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Invalid authorization header format"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token expired"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "Invalid token"},
		{"no client", "Bearer " + anonymous, http.StatusUnauthorized, "Invalid token claims"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/tools", tt.header)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestAuthMiddleware_RequireScope(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	router := newAuthRouter(am)

	reader, err := am.GenerateToken("reader", []string{"tools"}, time.Hour)
	require.NoError(t, err)
	admin, err := am.GenerateToken("ops", []string{"tools", ScopeAdmin}, time.Hour)
	require.NoError(t, err)

	w := serve(router, http.MethodDelete, "/cache", "Bearer "+reader)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(router, http.MethodDelete, "/cache", "Bearer "+admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthMiddleware_ValidateToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)

	token, err := am.GenerateToken("sourcing-agent", []string{ScopeAdmin}, time.Minute)
	require.NoError(t, err)

	claims, err := am.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sourcing-agent", claims.ClientID)
	assert.Equal(t, "sourcing-agent", claims.Subject)
	assert.Equal(t, []string{ScopeAdmin}, claims.Scopes)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{ClientID: "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = am.ValidateToken(unsigned)
	assert.Error(t, err)
}
