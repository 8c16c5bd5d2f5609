package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/controller"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/service"
	"proctorx_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()

	cfg := &config.Config{}
	cfg.JWT.Secret = "router-test-secret"

	access := service.NewAccessService()
	testSvc := service.NewTestService(repository.NewTestRepository(nil), repository.NewSubmissionRepository(nil), access)
	// 连不上的Redis地址：限流降级放行，不挡请求
	rateLimit := service.NewRateLimitService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 10, 60)

	s := &services{test: testSvc, rateLimit: rateLimit}
	c := &controllers{
		auth:       controller.NewAuthController(nil),
		user:       controller.NewUserController(nil),
		test:       controller.NewTestController(testSvc),
		submission: controller.NewSubmissionController(nil),
		analytics:  controller.NewAnalyticsController(nil),
		proctor:    controller.NewProctorController(nil),
		health:     controller.NewHealthController(nil, nil),
	}

	a := &App{Config: cfg}
	router := gin.New()
	a.registerRoutes(router, c, s, cfg)
	return router
}

// 访问码查卷对未登录考生开放：格式不对的码得到404，而不是401
func TestAccessCodeLookupIsPublic(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/access/abc", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/auth/me", "/api/tests"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}
