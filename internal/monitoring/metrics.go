package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 订单指标
	OrdersCreated   prometheus.Counter
	OrdersCompleted prometheus.Counter
	OrdersCancelled prometheus.Counter
	OrderAmount     prometheus.Histogram

	// API密钥指标
	APIKeysCreated  prometheus.Counter
	APIKeyAuthTotal *prometheus.CounterVec

	// 用户指标
	UsersRegistered prometheus.Counter
	LoginsTotal     *prometheus.CounterVec

	// 系统指标
	SystemUptime        prometheus.Gauge
	DatabaseConnections prometheus.Gauge
	RedisConnections    prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storeadmin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storeadmin_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storeadmin_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		// 订单指标
		OrdersCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_orders_created_total",
				Help: "Total number of orders created",
			},
		),

		OrdersCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_orders_completed_total",
				Help: "Total number of orders marked completed",
			},
		),

		OrdersCancelled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_orders_cancelled_total",
				Help: "Total number of orders cancelled",
			},
		),

		OrderAmount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "storeadmin_order_amount",
				Help:    "Distribution of order amounts",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		// API密钥指标
		APIKeysCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_api_keys_created_total",
				Help: "Total number of API keys created",
			},
		),

		APIKeyAuthTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_api_key_auth_total",
				Help: "Total number of API key authentication attempts",
			},
			[]string{"result"}, // success | failure
		),

		// 用户指标
		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_users_registered_total",
				Help: "Total number of users registered",
			},
		),

		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success | failure | rate_limited
		),

		// 系统指标
		SystemUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "storeadmin_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "storeadmin_database_connections",
				Help: "Number of open database connections",
			},
		),

		RedisConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "storeadmin_redis_connections",
				Help: "Number of open redis connections",
			},
		),

		// 错误指标
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "storeadmin_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		// 限流指标
		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storeadmin_rate_limit_blocks_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录HTTP请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordOrderCreated 记录订单创建
func (m *Metrics) RecordOrderCreated(amount float64) {
	m.OrdersCreated.Inc()
	m.OrderAmount.Observe(amount)
}

// RecordOrderCompleted 记录订单完成
func (m *Metrics) RecordOrderCompleted() {
	m.OrdersCompleted.Inc()
}

// RecordOrderCancelled 记录订单取消
func (m *Metrics) RecordOrderCancelled() {
	m.OrdersCancelled.Inc()
}

// RecordAPIKeyCreated 记录API密钥创建
func (m *Metrics) RecordAPIKeyCreated() {
	m.APIKeysCreated.Inc()
}

// RecordAPIKeyAuth 记录API密钥认证结果
func (m *Metrics) RecordAPIKeyAuth(result string) {
	m.APIKeyAuthTotal.WithLabelValues(result).Inc()
}

// RecordUserRegistered 记录用户注册
func (m *Metrics) RecordUserRegistered() {
	m.UsersRegistered.Inc()
}

// RecordLogin 记录登录尝试结果
func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// UpdateSystemUptime 更新系统运行时间
func (m *Metrics) UpdateSystemUptime(uptime time.Duration) {
	m.SystemUptime.Set(uptime.Seconds())
}

// UpdateDatabaseConnections 更新数据库连接数
func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// UpdateRedisConnections 更新Redis连接数
func (m *Metrics) UpdateRedisConnections(count int) {
	m.RedisConnections.Set(float64(count))
}

// HTTPHandler 返回Prometheus指标的HTTP处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
