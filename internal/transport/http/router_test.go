package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storeadmin/backend/internal/auth"
	jwtpkg "storeadmin/backend/internal/auth/jwt"
	"storeadmin/backend/internal/config"
	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/monitoring"
	"storeadmin/backend/internal/service"
	"storeadmin/backend/internal/storage/memory"
)

// promauto 注册到全局 registry，整个测试进程只能初始化一次
var (
	metricsOnce sync.Once
	testMetrics *monitoring.Metrics
)

func sharedMetrics() *monitoring.Metrics {
	metricsOnce.Do(func() {
		testMetrics = monitoring.NewMetrics()
	})
	return testMetrics
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := zap.NewNop()
	jwtManager := jwtpkg.NewManager(strings.Repeat("k", 32), "storeadmin", 15*time.Minute, 7*24*time.Hour)

	authService := auth.NewService(store, jwtManager, 10, time.Minute)
	apiKeyService := service.NewAPIKeyService(store)
	orderService := service.NewOrderService(store, log)
	productService := service.NewProductService(store)
	statsService := service.NewStatsService(store)
	resolver := auth.NewResolver(apiKeyService, jwtManager, log)

	cfg := &config.Config{
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	return NewRouter(RouterDependencies{
		Config:         cfg,
		AuthService:    authService,
		APIKeyService:  apiKeyService,
		OrderService:   orderService,
		ProductService: productService,
		StatsService:   statsService,
		Resolver:       resolver,
		Metrics:        sharedMetrics(),
		Logger:         log,
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
}

func registerOwner(t *testing.T, router *gin.Engine, username string) *auth.AuthResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/auth/register", domain.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp auth.AuthResponse
	decodeData(t, rec, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return &resp
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withAPIKey(key string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(auth.APIKeyHeader, key)
	}
}

func createKey(t *testing.T, router *gin.Engine, token, name string, permission domain.APIKeyPermission) (id, rawKey string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/api-keys", gin.H{
		"name":       name,
		"permission": permission,
	}, withBearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var key struct {
		ID  string `json:"_id"`
		Key string `json:"key"`
	}
	decodeData(t, rec, &key)
	require.NotEmpty(t, key.Key)
	return key.ID, key.Key
}

func orderBody() gin.H {
	return gin.H{
		"customer": gin.H{"name": "Alice", "email": "alice@example.com"},
		"items": []gin.H{
			{"name": "mug", "quantity": 2, "price": 10},
		},
		"shipping": gin.H{"address": "1 Main St", "method": "standard"},
		"payment":  gin.H{"method": "card", "status": "paid", "last4": "4242"},
	}
}

func TestRouter_OrdersRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/orders", nil, withAPIKey("no-such-key"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SessionOrderFlow(t *testing.T) {
	router := newTestRouter(t)
	owner := registerOwner(t, router, "alice")

	// 创建订单，金额由服务端计算
	rec := doJSON(t, router, http.MethodPost, "/v1/orders", orderBody(), withBearer(owner.AccessToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order domain.Order
	decodeData(t, rec, &order)
	assert.Equal(t, 20.0, order.Amount)
	assert.Equal(t, domain.StatusProcessing, order.Status)
	require.NotEmpty(t, order.OrderID)

	// 列表
	rec = doJSON(t, router, http.MethodGet, "/v1/orders", nil, withBearer(owner.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Orders []domain.Order `json:"orders"`
		Total  int            `json:"total"`
	}
	decodeData(t, rec, &list)
	assert.Equal(t, 1, list.Total)

	// 更新状态与物流单号
	rec = doJSON(t, router, http.MethodPut, "/v1/orders/"+order.OrderID, gin.H{
		"status":   "completed",
		"shipping": gin.H{"tracking": "SF123"},
	}, withBearer(owner.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.Order
	decodeData(t, rec, &updated)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "SF123", updated.Shipping.Tracking)

	// 非法状态回退被拒绝
	rec = doJSON(t, router, http.MethodPut, "/v1/orders/"+order.OrderID, gin.H{
		"status": "processing",
	}, withBearer(owner.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 取消是幂等的删除
	rec = doJSON(t, router, http.MethodDelete, "/v1/orders/"+order.OrderID, nil, withBearer(owner.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodDelete, "/v1/orders/"+order.OrderID, nil, withBearer(owner.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_APIKeyPermissions(t *testing.T) {
	router := newTestRouter(t)
	owner := registerOwner(t, router, "bob")

	_, readKey := createKey(t, router, owner.AccessToken, "reporting", domain.PermissionRead)
	_, writeKey := createKey(t, router, owner.AccessToken, "integration", domain.PermissionReadWrite)

	// 只读密钥可以读
	rec := doJSON(t, router, http.MethodGet, "/v1/orders", nil, withAPIKey(readKey))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 只读密钥不能写
	rec = doJSON(t, router, http.MethodPost, "/v1/orders", orderBody(), withAPIKey(readKey))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 读写密钥可以写
	rec = doJSON(t, router, http.MethodPost, "/v1/orders", orderBody(), withAPIKey(writeKey))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// 密钥身份不能管理密钥
	rec = doJSON(t, router, http.MethodGet, "/v1/api-keys", nil, withAPIKey(writeKey))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_InvalidKeyDoesNotFallBackToSession(t *testing.T) {
	router := newTestRouter(t)
	owner := registerOwner(t, router, "carol")

	// 同时携带无效密钥和有效会话时必须拒绝
	rec := doJSON(t, router, http.MethodGet, "/v1/orders", nil, func(req *http.Request) {
		req.Header.Set(auth.APIKeyHeader, "invalid-key")
		req.Header.Set("Authorization", "Bearer "+owner.AccessToken)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_OwnersAreIsolated(t *testing.T) {
	router := newTestRouter(t)
	alice := registerOwner(t, router, "dana")
	bob := registerOwner(t, router, "erin")

	rec := doJSON(t, router, http.MethodPost, "/v1/orders", orderBody(), withBearer(alice.AccessToken))
	require.Equal(t, http.StatusCreated, rec.Code)
	var order domain.Order
	decodeData(t, rec, &order)

	// 其他店主看不到这笔订单
	rec = doJSON(t, router, http.MethodGet, "/v1/orders/"+order.OrderID, nil, withBearer(bob.AccessToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/orders/%s", order.OrderID), nil, withBearer(alice.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SessionCookieAccepted(t *testing.T) {
	router := newTestRouter(t)
	owner := registerOwner(t, router, "frank")

	rec := doJSON(t, router, http.MethodGet, "/v1/auth/me", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: owner.AccessToken})
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user domain.User
	decodeData(t, rec, &user)
	assert.Equal(t, owner.User.ID, user.ID)
}

// orderAmountStats 读取金额直方图的样本数与总和
func orderAmountStats(t *testing.T) (count uint64, sum float64) {
	t.Helper()
	var m dto.Metric
	require.NoError(t, sharedMetrics().OrderAmount.Write(&m))
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestRouter_OrderMetricsRecordAmount(t *testing.T) {
	router := newTestRouter(t)
	owner := registerOwner(t, router, "grace")

	// 指标注册在全局 registry，跨测试累积，只比较增量
	countBefore, sumBefore := orderAmountStats(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/orders", orderBody(), withBearer(owner.AccessToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// 直方图记录的是服务端算出的总额，而不是占位零值
	countAfter, sumAfter := orderAmountStats(t)
	assert.Equal(t, countBefore+1, countAfter)
	assert.Equal(t, 20.0, sumAfter-sumBefore)

	// 失败的创建不计入
	rec = doJSON(t, router, http.MethodPost, "/v1/orders", gin.H{}, withBearer(owner.AccessToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	countFinal, sumFinal := orderAmountStats(t)
	assert.Equal(t, countAfter, countFinal)
	assert.Equal(t, sumAfter, sumFinal)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
