package storage_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeadmin/backend/internal/storage"
	"storeadmin/backend/internal/storage/memory"
)

func TestLazy_ConnectsOnceUnderConcurrency(t *testing.T) {
	var connects int32
	lazy := storage.NewLazy(func() (storage.Store, error) {
		atomic.AddInt32(&connects, 1)
		time.Sleep(10 * time.Millisecond) // 拉长连接窗口让并发请求重叠
		return memory.NewStore(), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.GetRateLimit("login:owner")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&connects))

	// 后续访问复用同一句柄
	_, err := lazy.GetRateLimit("login:owner")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&connects))
}

func TestLazy_FailedConnectNotCached(t *testing.T) {
	var connects int32
	connectErr := errors.New("dial refused")
	lazy := storage.NewLazy(func() (storage.Store, error) {
		if atomic.AddInt32(&connects, 1) == 1 {
			return nil, connectErr
		}
		return memory.NewStore(), nil
	})

	_, err := lazy.GetRateLimit("login:owner")
	require.Error(t, err)
	assert.ErrorIs(t, err, connectErr)

	// 失败不缓存，下一次访问重试成功
	_, err = lazy.GetRateLimit("login:owner")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&connects))
}

func TestLazy_HealthDoesNotConnect(t *testing.T) {
	var connects int32
	lazy := storage.NewLazy(func() (storage.Store, error) {
		atomic.AddInt32(&connects, 1)
		return memory.NewStore(), nil
	})

	// 未连接时报告健康，进程启动即可通过存活探针
	assert.NoError(t, lazy.Health())
	assert.Equal(t, int32(0), atomic.LoadInt32(&connects))

	_, err := lazy.GetRateLimit("login:owner")
	require.NoError(t, err)
	assert.NoError(t, lazy.Health())
}

func TestLazy_CloseWithoutConnect(t *testing.T) {
	lazy := storage.NewLazy(func() (storage.Store, error) {
		t.Fatal("connect should not be called")
		return nil, nil
	})
	assert.NoError(t, lazy.Close())
}
