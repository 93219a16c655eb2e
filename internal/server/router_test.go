package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func buildRouter(enableDocs bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenStub{
		"student":    {UserID: 3, Role: models.RoleStudent},
		"instructor": {UserID: 2, Role: models.RoleInstructor},
	}
	return New(Handlers{Metrics: handler.NewMetricsHandler(service.NewMetricsService(), nil)}, Options{
		APIPrefix:  "/api/v1",
		EnableDocs: enableDocs,
		Tokens:     tokens,
		Metrics:    service.NewMetricsService(),
	})
}

func do(r *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouterGuards(t *testing.T) {
	r := buildRouter(false)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", ""))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics", ""))
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/docs/index.html", ""))

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/catalog", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/catalog", "forged"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/catalog", "instructor"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/courses", "student"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/lessons/1/complete", "instructor"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/stats/global", "instructor"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/stats/students/4", "student"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/reports/users", "instructor"))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/metrics/summary", "student"))
}

func TestRouterServesDocsWhenEnabled(t *testing.T) {
	r := buildRouter(true)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/docs/index.html", ""))
}
