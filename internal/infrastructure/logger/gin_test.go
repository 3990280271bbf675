package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newGinHarness(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Next()
	})
	engine.Use(GinMiddleware(log))
	return engine, logs
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	engine, logs := newGinHarness(t)
	engine.GET("/runs", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.InfoLevel, entry.Level)
	assert.Equal(t, "HTTP request", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/runs", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected zapcore.Level
	}{
		{"server error", http.StatusInternalServerError, zapcore.ErrorLevel},
		{"client error", http.StatusConflict, zapcore.WarnLevel},
		{"success", http.StatusCreated, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, logs := newGinHarness(t)
			engine.POST("/sync/runs", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync/runs", nil))

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.expected, logs.All()[0].Level)
		})
	}
}

func TestGinMiddleware_RedactsQueryString(t *testing.T) {
	engine, logs := newGinHarness(t)
	engine.GET("/conflicts", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflicts?customer=ada@example.com", nil))

	require.Equal(t, 1, logs.Len())
	query, _ := logs.All()[0].ContextMap()["query"].(string)
	assert.NotContains(t, query, "ada@example.com")
	assert.Contains(t, query, "[REDACTED]")
}

func TestGinMiddleware_SeedsRequestContext(t *testing.T) {
	engine, _ := newGinHarness(t)
	var seen string
	engine.GET("/runs", func(c *gin.Context) {
		seen = RequestIDFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))

	assert.Equal(t, "req-1", seen)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/boom", func(*gin.Context) { panic("broken handler") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("set by middleware", func(t *testing.T) {
		engine, _ := newGinHarness(t)
		var got *zap.Logger
		engine.GET("/runs", func(c *gin.Context) {
			got = GetGinLogger(c)
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))
		assert.NotNil(t, got)
	})

	t.Run("missing yields nop", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		l := GetGinLogger(c)
		require.NotNil(t, l)
		l.Info("must not panic")
	})
}
