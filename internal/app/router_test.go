package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tgdigest_go/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestRouterHealthAndAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := New(&config.Config{APIToken: "secret"}, zap.NewNop())
	r := a.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: ожидался 200, получен %d", w.Code)
	}

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/summary/run"},
		{http.MethodGet, "/summary/100"},
		{http.MethodPost, "/channels"},
		{http.MethodGet, "/channels/100"},
		{http.MethodPatch, "/channels/1"},
		{http.MethodDelete, "/channels/1"},
		{http.MethodGet, "/session"},
		{http.MethodPost, "/session/input"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: ожидался 401, получен %d", route.method, route.path, w.Code)
		}
	}
}
