package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedEngine(t *testing.T, limit int, window time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewTenantRateLimiter(limit, window)
	t.Cleanup(limiter.Close)

	engine := gin.New()
	engine.Use(TenantMiddleware())
	engine.Use(RateLimit(limiter))
	engine.GET("/api/v1/sync/runs", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func doTenantRequest(engine *gin.Engine, tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs", nil)
	req.Header.Set(TenantHeaderKey, tenantID)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRateLimit_ThrottlesPerTenant(t *testing.T) {
	engine := newRateLimitedEngine(t, 2, time.Minute)
	tenantID := uuid.New().String()

	first := doTenantRequest(engine, tenantID)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := doTenantRequest(engine, tenantID)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := doTenantRequest(engine, tenantID)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRateLimit_TenantsAreIndependent(t *testing.T) {
	engine := newRateLimitedEngine(t, 1, time.Minute)

	exhausted := uuid.New().String()
	require.Equal(t, http.StatusOK, doTenantRequest(engine, exhausted).Code)
	require.Equal(t, http.StatusTooManyRequests, doTenantRequest(engine, exhausted).Code)

	assert.Equal(t, http.StatusOK, doTenantRequest(engine, uuid.New().String()).Code)
}

func TestRateLimit_WindowResets(t *testing.T) {
	limiter := NewTenantRateLimiter(1, 20*time.Millisecond)
	defer limiter.Close()

	now := time.Now()
	_, ok := limiter.take("tenant-a", now)
	require.True(t, ok)
	_, ok = limiter.take("tenant-a", now)
	require.False(t, ok)

	remaining, ok := limiter.take("tenant-a", now.Add(25*time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
}
