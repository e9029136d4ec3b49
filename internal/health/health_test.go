package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storeadmin/backend/internal/storage"
	"storeadmin/backend/internal/storage/memory"
)

// brokenStore 连接已建立但底层检查失败的存储
type brokenStore struct {
	*memory.Store
}

func (s *brokenStore) Health() error {
	return errors.New("connection lost")
}

func TestHealthChecker_LiveBeforeFirstAccess(t *testing.T) {
	var connects int32
	lazy := storage.NewLazy(func() (storage.Store, error) {
		atomic.AddInt32(&connects, 1)
		return memory.NewStore(), nil
	})
	hc := NewHealthChecker(lazy, zap.NewNop())

	// 进程刚启动、尚未访问数据时存活探针必须通过，否则编排器
	// 会在首个请求到来前就重启实例
	rec := httptest.NewRecorder()
	hc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 探针不触发连接建立
	assert.Equal(t, int32(0), atomic.LoadInt32(&connects))
}

func TestHealthChecker_LiveAfterBackendFailure(t *testing.T) {
	lazy := storage.NewLazy(func() (storage.Store, error) {
		return &brokenStore{Store: memory.NewStore()}, nil
	})
	hc := NewHealthChecker(lazy, zap.NewNop())

	// 触发连接建立
	_, err := lazy.GetRateLimit("login:owner")
	require.NoError(t, err)

	// 已连接但后端检查失败时报告不健康
	rec := httptest.NewRecorder()
	hc.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthChecker_CheckHealth(t *testing.T) {
	hc := NewHealthChecker(memory.NewStore(), zap.NewNop())

	results := hc.CheckHealth()
	assert.Equal(t, "OK", results["storage"])
	assert.NotEmpty(t, results["goroutines"])
	assert.NotEmpty(t, results["timestamp"])
}
