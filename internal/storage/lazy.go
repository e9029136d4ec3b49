package storage

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storeadmin/backend/internal/domain"
)

// Lazy 延迟建立连接的存储包装。
//
// 首次使用时才真正连接底层存储；并发的首次访问通过 singleflight
// 合并为一次连接建立，全部调用方收敛到同一个共享句柄。
// 连接失败不会被缓存，下一次访问会重新尝试。
type Lazy struct {
	connect func() (Store, error)
	group   singleflight.Group

	mu    sync.RWMutex
	store Store
}

// NewLazy 创建延迟连接存储
func NewLazy(connect func() (Store, error)) *Lazy {
	return &Lazy{connect: connect}
}

// acquire 获取共享存储句柄，必要时建立连接
func (l *Lazy) acquire() (Store, error) {
	l.mu.RLock()
	store := l.store
	l.mu.RUnlock()
	if store != nil {
		return store, nil
	}

	v, err, _ := l.group.Do("connect", func() (interface{}, error) {
		// 双重检查：前一个航班可能已经完成连接
		l.mu.RLock()
		existing := l.store
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		connected, err := l.connect()
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.store = connected
		l.mu.Unlock()
		return connected, nil
	})
	if err != nil {
		return nil, fmt.Errorf("store unavailable: %w", err)
	}
	return v.(Store), nil
}

// ========== UserRepository ==========

func (l *Lazy) CreateUser(user *domain.User) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.CreateUser(user)
}

func (l *Lazy) GetUserByID(id string) (*domain.User, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(id)
}

func (l *Lazy) GetUserByEmail(email string) (*domain.User, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetUserByEmail(email)
}

func (l *Lazy) GetUserByUsername(username string) (*domain.User, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetUserByUsername(username)
}

func (l *Lazy) UpdateUser(user *domain.User) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.UpdateUser(user)
}

func (l *Lazy) UpdateLastLogin(userID string) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.UpdateLastLogin(userID)
}

// ========== APIKeyRepository ==========

func (l *Lazy) SaveAPIKey(apiKey *domain.APIKey) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.SaveAPIKey(apiKey)
}

func (l *Lazy) GetAPIKey(id string) (*domain.APIKey, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetAPIKey(id)
}

func (l *Lazy) GetAPIKeyByHash(keyHash string) (*domain.APIKey, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetAPIKeyByHash(keyHash)
}

func (l *Lazy) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.ListAPIKeysByUserID(userID)
}

func (l *Lazy) UpdateAPIKey(apiKey *domain.APIKey) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.UpdateAPIKey(apiKey)
}

func (l *Lazy) DeleteAPIKey(id string) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.DeleteAPIKey(id)
}

func (l *Lazy) UpdateAPIKeyLastUsed(id string) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.UpdateAPIKeyLastUsed(id)
}

// ========== OrderRepository ==========

func (l *Lazy) SaveOrder(order *domain.Order) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.SaveOrder(order)
}

func (l *Lazy) GetOrder(userID, orderID string) (*domain.Order, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetOrder(userID, orderID)
}

func (l *Lazy) ListOrders(query OrderQuery) ([]domain.Order, int, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, 0, err
	}
	return s.ListOrders(query)
}

func (l *Lazy) UpdateOrderConditional(userID, orderID string, expected domain.OrderStatus, patch OrderPatch) (*domain.Order, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.UpdateOrderConditional(userID, orderID, expected, patch)
}

// ========== ProductRepository ==========

func (l *Lazy) SaveProduct(product *domain.Product) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.SaveProduct(product)
}

func (l *Lazy) GetProduct(userID, productID string) (*domain.Product, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetProduct(userID, productID)
}

func (l *Lazy) ListProductsByUserID(userID string) ([]domain.Product, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.ListProductsByUserID(userID)
}

func (l *Lazy) UpdateProduct(product *domain.Product) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.UpdateProduct(product)
}

func (l *Lazy) DeleteProduct(userID, productID string) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.DeleteProduct(userID, productID)
}

// ========== StatsRepository ==========

func (l *Lazy) GetStoreStatistics(userID string) (*domain.StoreStatistics, error) {
	s, err := l.acquire()
	if err != nil {
		return nil, err
	}
	return s.GetStoreStatistics(userID)
}

// ========== SessionRepository / RateLimitRepository ==========

func (l *Lazy) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.CacheSession(sessionID, userID, ttl)
}

func (l *Lazy) GetCachedSession(sessionID string) (string, error) {
	s, err := l.acquire()
	if err != nil {
		return "", err
	}
	return s.GetCachedSession(sessionID)
}

func (l *Lazy) DeleteCachedSession(sessionID string) error {
	s, err := l.acquire()
	if err != nil {
		return err
	}
	return s.DeleteCachedSession(sessionID)
}

func (l *Lazy) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s, err := l.acquire()
	if err != nil {
		return 0, err
	}
	return s.IncrementRateLimit(key, window)
}

func (l *Lazy) GetRateLimit(key string) (int64, error) {
	s, err := l.acquire()
	if err != nil {
		return 0, err
	}
	return s.GetRateLimit(key)
}

// Close 关闭已建立的连接，未连接时为空操作
func (l *Lazy) Close() error {
	l.mu.Lock()
	store := l.store
	l.store = nil
	l.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Close()
}

// Health 健康检查。
//
// 未连接时报告健康且不触发连接：进程启动即可通过存活探针，
// 真正的连接问题在首次数据访问时暴露。已连接则透传底层检查。
func (l *Lazy) Health() error {
	l.mu.RLock()
	store := l.store
	l.mu.RUnlock()

	if store == nil {
		return nil
	}
	return store.Health()
}
