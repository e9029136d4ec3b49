package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"storeadmin/backend/internal/auth"
	"storeadmin/backend/internal/config"
	"storeadmin/backend/internal/health"
	"storeadmin/backend/internal/middleware"
	"storeadmin/backend/internal/monitoring"
	"storeadmin/backend/internal/service"
	"storeadmin/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	AuthService    *auth.Service
	APIKeyService  *service.APIKeyService
	OrderService   *service.OrderService
	ProductService *service.ProductService
	StatsService   *service.StatsService
	Resolver       *auth.Resolver
	WebSocketHub   *websocket.Hub
	HealthChecker  *health.HealthChecker
	Metrics        *monitoring.Metrics
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	monitoringMW := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)

	// 使用自定义中间件替代默认中间件
	router.Use(monitoringMW.PanicRecovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	router.Use(middleware.ValidateContentType("application/json"))
	router.Use(monitoringMW.HTTPMetrics())
	router.Use(monitoringMW.BusinessMetrics())

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", auth.APIKeyHeader},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 允许所有来源时必须关闭凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)
	apiKeyHandler := NewAPIKeyHandler(deps.APIKeyService)
	orderHandler := NewOrderHandler(deps.OrderService, deps.Metrics, deps.Logger)
	productHandler := NewProductHandler(deps.ProductService, deps.Logger)
	statsHandler := NewStatsHandler(deps.StatsService, deps.Logger)

	// 创建认证中间件
	storeAuth := middleware.NewStoreAuth(deps.Resolver, deps.Logger)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查与指标
	if deps.HealthChecker != nil {
		router.GET("/health", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", storeAuth.RequireSession(), authHandler.Me)
		}

		// ========== API Key Routes（仅会话认证） ==========
		apiKeyRoutes := v1.Group("/api-keys", storeAuth.RequireSession())
		{
			apiKeyRoutes.POST("", apiKeyHandler.CreateAPIKey)
			apiKeyRoutes.GET("", apiKeyHandler.ListAPIKeys)
			apiKeyRoutes.PUT("", apiKeyHandler.UpdateAPIKey)
			apiKeyRoutes.DELETE("", apiKeyHandler.DeleteAPIKey)
		}

		// ========== Order Routes（会话或API密钥） ==========
		orderRoutes := v1.Group("/orders", storeAuth.Require())
		{
			orderRoutes.GET("", orderHandler.ListOrders)
			orderRoutes.GET("/:orderId", orderHandler.GetOrder)

			// 写操作要求会话或读写密钥
			orderRoutes.POST("", storeAuth.RequireWrite(), orderHandler.CreateOrder)
			orderRoutes.PUT("/:orderId", storeAuth.RequireWrite(), orderHandler.UpdateOrder)
			orderRoutes.DELETE("/:orderId", storeAuth.RequireWrite(), orderHandler.CancelOrder)
		}

		// ========== Product Routes ==========
		productRoutes := v1.Group("/products", storeAuth.Require())
		{
			productRoutes.GET("", productHandler.ListProducts)
			productRoutes.GET("/:id", productHandler.GetProduct)

			productRoutes.POST("", storeAuth.RequireWrite(), productHandler.CreateProduct)
			productRoutes.PUT("/:id", storeAuth.RequireWrite(), productHandler.UpdateProduct)
			productRoutes.DELETE("/:id", storeAuth.RequireWrite(), productHandler.DeleteProduct)
		}

		// ========== Stats Routes ==========
		v1.GET("/stats", storeAuth.Require(), statsHandler.GetStatistics)

		// ========== WebSocket ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}
