package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
)

func newTestServer(auth *Authenticator) (*echo.Echo, *model.Actor) {
	seen := &model.Actor{}
	e := echo.New()
	api := e.Group("/api/v1")
	api.Use(auth.Middleware())
	api.Use(RequireRole())
	handler := func(c echo.Context) error {
		actor, _ := ActorFrom(c)
		*seen = actor
		return c.NoContent(http.StatusNoContent)
	}
	api.GET("/routes", handler)
	api.POST("/routes", handler)
	api.POST("/config/validate", handler)
	return e, seen
}

func serve(e *echo.Echo, method, path string, headers map[string]string) int {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthenticatorTokens(t *testing.T) {
	auth := NewAuthenticator([]config.APIToken{
		{Token: "admin-token", Actor: "alice", Role: model.RoleAdmin},
		{Token: "read-token", Actor: "viewer", Role: model.RoleRead},
		{Token: "odd-token", Actor: "odd", Role: "owner"},
	}, false)
	e, seen := newTestServer(auth)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"admin reads", http.MethodGet, "/api/v1/routes", "admin-token", http.StatusNoContent},
		{"admin writes", http.MethodPost, "/api/v1/routes", "admin-token", http.StatusNoContent},
		{"reader reads", http.MethodGet, "/api/v1/routes", "read-token", http.StatusNoContent},
		{"reader cannot write", http.MethodPost, "/api/v1/routes", "read-token", http.StatusForbidden},
		{"reader can validate", http.MethodPost, "/api/v1/config/validate", "read-token", http.StatusNoContent},
		{"unknown role ignored", http.MethodGet, "/api/v1/routes", "odd-token", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/routes", "nope", http.StatusUnauthorized},
		{"missing token", http.MethodGet, "/api/v1/routes", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.token != "" {
				headers[echo.HeaderAuthorization] = "Bearer " + tt.token
			}
			assert.Equal(t, tt.want, serve(e, tt.method, tt.path, headers))
		})
	}

	require.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/api/v1/routes", map[string]string{
		echo.HeaderAuthorization: "Bearer admin-token",
	}))
	assert.Equal(t, "alice", seen.ID)
	assert.Equal(t, model.RoleAdmin, seen.Role)
	assert.NotEmpty(t, seen.IP)
}

func TestAuthenticatorTrustedHeaders(t *testing.T) {
	auth := NewAuthenticator(nil, true)
	e, seen := newTestServer(auth)

	code := serve(e, http.MethodPost, "/api/v1/routes", map[string]string{
		HeaderAuthActor: "bob",
		HeaderAuthRole:  "Admin",
	})
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, "bob", seen.ID)
	assert.Equal(t, model.RoleAdmin, seen.Role)

	code = serve(e, http.MethodPost, "/api/v1/routes", map[string]string{
		HeaderAuthActor: "bob",
		HeaderAuthRole:  "read",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code = serve(e, http.MethodGet, "/api/v1/routes", map[string]string{HeaderAuthRole: "admin"})
	assert.Equal(t, http.StatusUnauthorized, code)

	// A bearer token that does not match is not rescued by headers
	code = serve(e, http.MethodGet, "/api/v1/routes", map[string]string{
		echo.HeaderAuthorization: "Bearer nope",
		HeaderAuthActor:          "bob",
		HeaderAuthRole:           "admin",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHashToken(t *testing.T) {
	assert.Len(t, HashToken("secret"), 64)
	assert.Equal(t, HashToken("secret"), HashToken("secret"))
	assert.NotEqual(t, HashToken("secret"), HashToken("other"))
}

func TestAPIRateLimitWithoutCache(t *testing.T) {
	e := echo.New()
	e.Use(APIRateLimit(nil, DefaultAPIRateLimitConfig(1)))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", nil))
	}
}
