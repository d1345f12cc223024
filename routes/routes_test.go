package routes

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/weekly-finals/handlers"
	"github.com/Dosada05/weekly-finals/middleware"
	"github.com/Dosada05/weekly-finals/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type tokens map[string]*models.Identity

func (t tokens) ParseToken(token string) (*models.Identity, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return nil, errors.New("bad token")
}

func newRouter() http.Handler {
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Auth:      handlers.NewAuthHandler(nil),
		Phases:    handlers.NewPhaseHandler(nil),
		Matches:   handlers.NewMatchHandler(nil),
		Dashboard: handlers.NewDashboardHandler(nil),
		WebSocket: handlers.NewWebSocketHandler(nil, nil, nil),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	}, Options{
		Tokens: tokens{
			"player": {UserID: 2, Role: models.RolePlayer},
			"admin":  {UserID: 1, Role: models.RoleAdmin},
		},
		LoginLimiter: middleware.NewIPRateLimiter(2),
	})
	return router
}

func TestAdminRoutesRequireRole(t *testing.T) {
	router := newRouter()
	paths := []string{
		"/tournaments/1/phases",
		"/phases/1/initialize",
		"/phases/1/start",
		"/phases/1/complete",
		"/phases/1/advance",
		"/phases/1/finals-bracket",
		"/participants/1/points",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			req := httptest.NewRequest(http.MethodPost, path, nil)
			req.Header.Set("Authorization", "Bearer player")
			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestProofUploadRequiresLogin(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches/3/proof", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	router := newRouter()
	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	// Пустое тело отклоняется до обращения к сервису.
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}

func TestMetricsAndCORS(t *testing.T) {
	router := newRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/tournaments/1/phases", nil)
	req.Header.Set("Origin", "https://finals.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
