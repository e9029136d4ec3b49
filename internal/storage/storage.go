package storage

import (
	"errors"
	"time"

	"storeadmin/backend/internal/domain"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱已被注册
	ErrEmailExists = errors.New("email already exists")
	// ErrAPIKeyNotFound API密钥不存在
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrOrderNotFound 订单不存在（或不属于当前店主，二者不区分）
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderConflict 条件更新时订单状态已被并发修改
	ErrOrderConflict = errors.New("order was modified concurrently")
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = errors.New("product not found")
)

// OrderQuery 订单列表查询条件
type OrderQuery struct {
	UserID    string             // 必填，所有查询都按店主隔离
	Search    string             // 按订单号或客户姓名模糊匹配
	Status    domain.OrderStatus // 为空表示不过滤
	SortField string             // 默认 createdAt
	SortOrder string             // asc | desc，默认 desc
	Page      int                // 从 1 开始
	Limit     int
}

// OrderPatch 订单条件更新补丁，只承载允许变更的字段
type OrderPatch struct {
	Status   *domain.OrderStatus
	Tracking *string
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	UpdateUser(user *domain.User) error
	UpdateLastLogin(userID string) error
}

// APIKeyRepository 定义API密钥数据存取操作。
//
// GetAPIKeyByHash 按摘要精确查找且不过滤激活状态，
// 激活判断由调用方完成，避免存储层泄露"不存在/已停用"的差异。
type APIKeyRepository interface {
	SaveAPIKey(apiKey *domain.APIKey) error
	GetAPIKey(id string) (*domain.APIKey, error)
	GetAPIKeyByHash(keyHash string) (*domain.APIKey, error)
	ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error)
	UpdateAPIKey(apiKey *domain.APIKey) error
	DeleteAPIKey(id string) error
	UpdateAPIKeyLastUsed(id string) error
}

// OrderRepository 定义订单数据存取操作。
//
// 所有读写都按 {orderId, 店主} 双条件匹配；UpdateOrderConditional 额外
// 匹配当前状态，作为单条条件更新原子执行，防止并发请求间的丢失更新。
type OrderRepository interface {
	SaveOrder(order *domain.Order) error
	GetOrder(userID, orderID string) (*domain.Order, error)
	ListOrders(query OrderQuery) ([]domain.Order, int, error)
	UpdateOrderConditional(userID, orderID string, expected domain.OrderStatus, patch OrderPatch) (*domain.Order, error)
}

// ProductRepository 定义商品数据存取操作。
type ProductRepository interface {
	SaveProduct(product *domain.Product) error
	GetProduct(userID, productID string) (*domain.Product, error)
	ListProductsByUserID(userID string) ([]domain.Product, error)
	UpdateProduct(product *domain.Product) error
	DeleteProduct(userID, productID string) error
}

// StatsRepository 定义统计数据聚合操作。
type StatsRepository interface {
	GetStoreStatistics(userID string) (*domain.StoreStatistics, error)
}

// SessionRepository 定义会话缓存操作。
type SessionRepository interface {
	CacheSession(sessionID string, userID string, ttl time.Duration) error
	GetCachedSession(sessionID string) (string, error)
	DeleteCachedSession(sessionID string) error
}

// RateLimitRepository 定义限流操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// Store 聚合所有存储能力。
type Store interface {
	UserRepository
	APIKeyRepository
	OrderRepository
	ProductRepository
	StatsRepository
	SessionRepository
	RateLimitRepository

	Close() error
	Health() error
}
