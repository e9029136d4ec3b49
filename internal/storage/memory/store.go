package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
)

// Store 使用内存保存全部数据，主要用于开发验证和测试。
type Store struct {
	mu         sync.RWMutex
	users      map[string]*domain.User   // userID -> user
	byEmail    map[string]string         // email -> userID
	byUsername map[string]string         // username -> userID
	apiKeys    map[string]*domain.APIKey // apiKeyID -> apiKey
	byKeyHash  map[string]string         // keyHash -> apiKeyID
	orders     map[string]*domain.Order  // orderId -> order
	products   map[string]*domain.Product

	sessions   map[string]sessionEntry
	rateLimits map[string]*rateLimitEntry
}

type sessionEntry struct {
	UserID    string
	ExpiresAt time.Time
}

type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		users:      make(map[string]*domain.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		apiKeys:    make(map[string]*domain.APIKey),
		byKeyHash:  make(map[string]string),
		orders:     make(map[string]*domain.Order),
		products:   make(map[string]*domain.Product),
		sessions:   make(map[string]sessionEntry),
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

// ========== 用户 ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[strings.ToLower(user.Email)]; exists {
		return storage.ErrEmailExists
	}

	u := *user
	s.users[u.ID] = &u
	s.byEmail[strings.ToLower(u.Email)] = u.ID
	if u.Username != "" {
		s.byUsername[strings.ToLower(u.Username)] = u.ID
	}
	return nil
}

// GetUserByID 按ID查询用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// GetUserByEmail 按邮箱查询用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// GetUserByUsername 按用户名查询用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}
	delete(s.byEmail, strings.ToLower(old.Email))
	if old.Username != "" {
		delete(s.byUsername, strings.ToLower(old.Username))
	}

	u := *user
	u.UpdatedAt = time.Now()
	s.users[u.ID] = &u
	s.byEmail[strings.ToLower(u.Email)] = u.ID
	if u.Username != "" {
		s.byUsername[strings.ToLower(u.Username)] = u.ID
	}
	return nil
}

// UpdateLastLogin 更新最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

// ========== API密钥 ==========

// SaveAPIKey 保存API密钥
func (s *Store) SaveAPIKey(apiKey *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := *apiKey
	s.apiKeys[k.ID] = &k
	s.byKeyHash[k.KeyHash] = k.ID
	return nil
}

// GetAPIKey 按ID查询API密钥
func (s *Store) GetAPIKey(id string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apiKey, ok := s.apiKeys[id]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}
	k := *apiKey
	return &k, nil
}

// GetAPIKeyByHash 按摘要查询API密钥
func (s *Store) GetAPIKeyByHash(keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKeyHash[keyHash]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}
	k := *s.apiKeys[id]
	return &k, nil
}

// ListAPIKeysByUserID 列出店主的全部API密钥
func (s *Store) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*domain.APIKey, 0)
	for _, apiKey := range s.apiKeys {
		if apiKey.UserID == userID {
			k := *apiKey
			keys = append(keys, &k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

// UpdateAPIKey 更新API密钥
func (s *Store) UpdateAPIKey(apiKey *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.apiKeys[apiKey.ID]
	if !ok {
		return storage.ErrAPIKeyNotFound
	}
	delete(s.byKeyHash, old.KeyHash)

	k := *apiKey
	k.UpdatedAt = time.Now()
	s.apiKeys[k.ID] = &k
	s.byKeyHash[k.KeyHash] = k.ID
	return nil
}

// DeleteAPIKey 删除API密钥
func (s *Store) DeleteAPIKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	apiKey, ok := s.apiKeys[id]
	if !ok {
		return storage.ErrAPIKeyNotFound
	}
	delete(s.byKeyHash, apiKey.KeyHash)
	delete(s.apiKeys, id)
	return nil
}

// UpdateAPIKeyLastUsed 更新API密钥最后使用时间
func (s *Store) UpdateAPIKeyLastUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	apiKey, ok := s.apiKeys[id]
	if !ok {
		return storage.ErrAPIKeyNotFound
	}
	now := time.Now()
	apiKey.LastUsedAt = &now
	return nil
}

// ========== 订单 ==========

// SaveOrder 保存订单
func (s *Store) SaveOrder(order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := *order
	s.orders[o.OrderID] = &o
	return nil
}

// GetOrder 按 {orderId, 店主} 查询订单
func (s *Store) GetOrder(userID, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok || order.Customer.UserID != userID {
		return nil, storage.ErrOrderNotFound
	}
	o := *order
	return &o, nil
}

// ListOrders 按条件分页查询订单
func (s *Store) ListOrders(query storage.OrderQuery) ([]domain.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Order, 0)
	search := strings.ToLower(query.Search)
	for _, order := range s.orders {
		if order.Customer.UserID != query.UserID {
			continue
		}
		if query.Status != "" && order.Status != query.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(order.OrderID), search) &&
			!strings.Contains(strings.ToLower(order.Customer.Name), search) {
			continue
		}
		matched = append(matched, *order)
	}

	asc := query.SortOrder == "asc"
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch query.SortField {
		case "amount":
			less = matched[i].Amount < matched[j].Amount
		case "orderId":
			less = matched[i].OrderID < matched[j].OrderID
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	total := len(matched)
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= total {
		return []domain.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// UpdateOrderConditional 条件更新订单
//
// 匹配 {orderId, 店主, 期望状态} 后原子应用补丁；
// 状态不匹配返回 ErrOrderConflict，订单不存在或不属于该店主返回 ErrOrderNotFound。
func (s *Store) UpdateOrderConditional(userID, orderID string, expected domain.OrderStatus, patch storage.OrderPatch) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || order.Customer.UserID != userID {
		return nil, storage.ErrOrderNotFound
	}
	if order.Status != expected {
		return nil, storage.ErrOrderConflict
	}

	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.Tracking != nil {
		order.Shipping.Tracking = *patch.Tracking
	}
	order.UpdatedAt = time.Now()

	o := *order
	return &o, nil
}

// ========== 商品 ==========

// SaveProduct 保存商品
func (s *Store) SaveProduct(product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *product
	s.products[p.ID] = &p
	return nil
}

// GetProduct 按 {id, 店主} 查询商品
func (s *Store) GetProduct(userID, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[productID]
	if !ok || product.UserID != userID {
		return nil, storage.ErrProductNotFound
	}
	p := *product
	return &p, nil
}

// ListProductsByUserID 列出店主的全部商品
func (s *Store) ListProductsByUserID(userID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0)
	for _, product := range s.products {
		if product.UserID == userID {
			products = append(products, *product)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

// UpdateProduct 更新商品
func (s *Store) UpdateProduct(product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.products[product.ID]
	if !ok || old.UserID != product.UserID {
		return storage.ErrProductNotFound
	}
	p := *product
	p.UpdatedAt = time.Now()
	s.products[p.ID] = &p
	return nil
}

// DeleteProduct 删除商品
func (s *Store) DeleteProduct(userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok || product.UserID != userID {
		return storage.ErrProductNotFound
	}
	delete(s.products, productID)
	return nil
}

// ========== 统计 ==========

// GetStoreStatistics 聚合店主的仪表盘统计
func (s *Store) GetStoreStatistics(userID string) (*domain.StoreStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.StoreStatistics{}
	for _, order := range s.orders {
		if order.Customer.UserID != userID {
			continue
		}
		stats.TotalOrders++
		switch order.Status {
		case domain.StatusProcessing:
			stats.ProcessingOrders++
		case domain.StatusCompleted:
			stats.CompletedOrders++
		case domain.StatusCancelled:
			stats.CancelledOrders++
		}
		if order.Status != domain.StatusCancelled {
			stats.TotalRevenue += order.Amount
		}
	}
	for _, product := range s.products {
		if product.UserID == userID {
			stats.TotalProducts++
		}
	}
	for _, apiKey := range s.apiKeys {
		if apiKey.UserID == userID && apiKey.IsActive {
			stats.ActiveAPIKeys++
		}
	}
	return stats, nil
}

// ========== 会话缓存 ==========

// CacheSession 缓存会话
func (s *Store) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = sessionEntry{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetCachedSession 查询缓存的会话
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return "", nil
	}
	return entry.UserID, nil
}

// DeleteCachedSession 删除缓存的会话
func (s *Store) DeleteCachedSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// ========== 限流 ==========

// IncrementRateLimit 自增限流计数
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 查询限流计数
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rateLimits[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	return nil
}

// Health 健康检查
func (s *Store) Health() error {
	return nil
}
