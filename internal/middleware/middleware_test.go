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

	"github.com/courtbook/slot-engine/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func whoami() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(&config.Config{JWTSecret: "secret"}))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "staff": IsStaff(c)})
	})
	r.GET("/staff", RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := whoami()

	tests := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage token":  "Bearer abc.def.ghi",
		"wrong secret":   "Bearer " + sign(t, "other", jwt.MapClaims{"sub": 1}),
		"expired":        "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     "Bearer " + sign(t, "secret", jwt.MapClaims{"role": RoleStaff}),
		"zero subject":   "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": 0}),
	}

	for name, auth := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, get(r, "/me", auth).Code)
		})
	}
}

func TestAuthMiddlewareRoles(t *testing.T) {
	r := whoami()

	regular := "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": 7, "role": "admin"})
	w := get(r, "/me", regular)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"staff":false}`, w.Body.String())
	assert.Equal(t, http.StatusForbidden, get(r, "/staff", regular).Code)

	staff := "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": 9, "role": RoleStaff})
	w = get(r, "/me", staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":9,"staff":true}`, w.Body.String())
	assert.Equal(t, http.StatusNoContent, get(r, "/staff", staff).Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set(HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}
