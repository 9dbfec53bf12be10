package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fixmycity/backend/internal/api/handler"
	"fixmycity/backend/internal/api/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const dashboard = "https://admin.fixmycity.in"

func newRouter() http.Handler {
	gin.SetMode(gin.TestMode)
	return router.New(&handler.Handler{}, router.Options{CORSOrigins: []string{dashboard}})
}

func preflight(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/complaints/abc/status", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	return req
}

func TestCORS_PreflightFromAllowedOrigin(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, preflight(dashboard))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, dashboard, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPatch, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Vary"), "Origin")
}

func TestCORS_PreflightFromUnknownOrigin(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, preflight("https://evil.example"))

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_ActualRequestCarriesOriginHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Origin", dashboard)
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dashboard, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
