package hybrid

import (
	"fmt"
	"time"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
	"storeadmin/backend/internal/storage/redis"
	sqlstore "storeadmin/backend/internal/storage/sql"
)

// 密钥查找缓存的生存时间，较短以压缩停用与缓存失效之间的窗口
const apiKeyCacheTTL = 30 * time.Second

// Store 混合存储实现，结合 SQL 数据库与 Redis
//
// 持久数据走 SQL，会话缓存与限流计数走 Redis，
// 密钥摘要查找做短时读穿缓存并在记录变更时立即失效。
type Store struct {
	sql   *sqlstore.Store
	redis *redis.Cache
}

// NewStore 创建混合存储实例
func NewStore(dbType, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	dbStore, err := sqlstore.NewStore(dbType, dsn, maxOpenConns, maxIdleConns, connMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		sql:   dbStore,
		redis: redisCache,
	}, nil
}

// ========== 用户 ==========

func (s *Store) CreateUser(user *domain.User) error          { return s.sql.CreateUser(user) }
func (s *Store) GetUserByID(id string) (*domain.User, error) { return s.sql.GetUserByID(id) }
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	return s.sql.GetUserByEmail(email)
}
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	return s.sql.GetUserByUsername(username)
}
func (s *Store) UpdateUser(user *domain.User) error  { return s.sql.UpdateUser(user) }
func (s *Store) UpdateLastLogin(userID string) error { return s.sql.UpdateLastLogin(userID) }

// ========== API密钥 ==========

// SaveAPIKey 保存API密钥
func (s *Store) SaveAPIKey(apiKey *domain.APIKey) error {
	return s.sql.SaveAPIKey(apiKey)
}

// GetAPIKey 按ID查询API密钥
func (s *Store) GetAPIKey(id string) (*domain.APIKey, error) {
	return s.sql.GetAPIKey(id)
}

// GetAPIKeyByHash 按摘要查询API密钥（读穿缓存）
func (s *Store) GetAPIKeyByHash(keyHash string) (*domain.APIKey, error) {
	if apiKey, err := s.redis.GetCachedAPIKey(keyHash); err == nil {
		return apiKey, nil
	}

	apiKey, err := s.sql.GetAPIKeyByHash(keyHash)
	if err != nil {
		return nil, err
	}

	// 缓存失败不影响主流程
	_ = s.redis.CacheAPIKey(apiKey, apiKeyCacheTTL)
	return apiKey, nil
}

// ListAPIKeysByUserID 列出店主的全部API密钥
func (s *Store) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	return s.sql.ListAPIKeysByUserID(userID)
}

// UpdateAPIKey 更新API密钥并失效缓存
func (s *Store) UpdateAPIKey(apiKey *domain.APIKey) error {
	if err := s.sql.UpdateAPIKey(apiKey); err != nil {
		return err
	}
	return s.redis.InvalidateAPIKey(apiKey.KeyHash)
}

// DeleteAPIKey 删除API密钥并失效缓存
func (s *Store) DeleteAPIKey(id string) error {
	apiKey, err := s.sql.GetAPIKey(id)
	if err != nil {
		return err
	}
	if err := s.sql.DeleteAPIKey(id); err != nil {
		return err
	}
	return s.redis.InvalidateAPIKey(apiKey.KeyHash)
}

// UpdateAPIKeyLastUsed 更新API密钥最后使用时间
func (s *Store) UpdateAPIKeyLastUsed(id string) error {
	return s.sql.UpdateAPIKeyLastUsed(id)
}

// ========== 订单 / 商品 / 统计 ==========

func (s *Store) SaveOrder(order *domain.Order) error { return s.sql.SaveOrder(order) }
func (s *Store) GetOrder(userID, orderID string) (*domain.Order, error) {
	return s.sql.GetOrder(userID, orderID)
}
func (s *Store) ListOrders(query storage.OrderQuery) ([]domain.Order, int, error) {
	return s.sql.ListOrders(query)
}
func (s *Store) UpdateOrderConditional(userID, orderID string, expected domain.OrderStatus, patch storage.OrderPatch) (*domain.Order, error) {
	return s.sql.UpdateOrderConditional(userID, orderID, expected, patch)
}

func (s *Store) SaveProduct(product *domain.Product) error { return s.sql.SaveProduct(product) }
func (s *Store) GetProduct(userID, productID string) (*domain.Product, error) {
	return s.sql.GetProduct(userID, productID)
}
func (s *Store) ListProductsByUserID(userID string) ([]domain.Product, error) {
	return s.sql.ListProductsByUserID(userID)
}
func (s *Store) UpdateProduct(product *domain.Product) error { return s.sql.UpdateProduct(product) }
func (s *Store) DeleteProduct(userID, productID string) error {
	return s.sql.DeleteProduct(userID, productID)
}

func (s *Store) GetStoreStatistics(userID string) (*domain.StoreStatistics, error) {
	return s.sql.GetStoreStatistics(userID)
}

// ========== 会话缓存 / 限流（Redis）==========

func (s *Store) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	return s.redis.CacheSession(sessionID, userID, ttl)
}
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	return s.redis.GetCachedSession(sessionID)
}
func (s *Store) DeleteCachedSession(sessionID string) error {
	return s.redis.DeleteCachedSession(sessionID)
}
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return s.redis.IncrementRateLimit(key, window)
}
func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.redis.GetRateLimit(key)
}

// Close 依次关闭 Redis 与数据库
func (s *Store) Close() error {
	redisErr := s.redis.Close()
	sqlErr := s.sql.Close()
	if sqlErr != nil {
		return sqlErr
	}
	return redisErr
}

// Health 检查底层存储健康状态
func (s *Store) Health() error {
	return s.sql.Health()
}
