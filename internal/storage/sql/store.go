package sql

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
//
// 会话缓存与限流计数不落库：无 Redis 的部署在进程内保存，
// 重启后会话缓存丢失意味着已签发的刷新令牌失效，属可接受的代价。
type Store struct {
	db         *gorm.DB
	driverName string // "mysql" or "postgres"

	mu         sync.Mutex
	sessions   map[string]sessionEntry
	rateLimits map[string]*rateLimitEntry
}

type sessionEntry struct {
	userID    string
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int64
	expiresAt time.Time
}

// NewStore 创建SQL数据库存储
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	// 验证驱动类型
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error
	if driverName == "mysql" {
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:         db,
		driverName: driverName,
		sessions:   make(map[string]sessionEntry),
		rateLimits: make(map[string]*rateLimitEntry),
	}

	// 自动执行数据库迁移
	if err := store.Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Migrate 执行数据库迁移（使用GORM AutoMigrate）
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.APIKey{},
		&domain.Order{},
		&domain.Product{},
	)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ========== 用户 ==========

// CreateUser 创建用户
func (s *Store) CreateUser(user *domain.User) error {
	var count int64
	s.db.Model(&domain.User{}).Where("email = ?", user.Email).Count(&count)
	if count > 0 {
		return storage.ErrEmailExists
	}
	return s.db.Create(user).Error
}

// GetUserByID 按ID查询用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 按邮箱查询用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 按用户名查询用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(user *domain.User) error {
	result := s.db.Model(&domain.User{}).Where("id = ?", user.ID).Updates(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin 更新最后登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	return s.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now()).Error
}

// ========== API密钥 ==========

// SaveAPIKey 保存API密钥
func (s *Store) SaveAPIKey(apiKey *domain.APIKey) error {
	return s.db.Create(apiKey).Error
}

// GetAPIKey 按ID查询API密钥
func (s *Store) GetAPIKey(id string) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	if err := s.db.First(&apiKey, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

// GetAPIKeyByHash 按摘要查询API密钥
func (s *Store) GetAPIKeyByHash(keyHash string) (*domain.APIKey, error) {
	var apiKey domain.APIKey
	if err := s.db.First(&apiKey, "key_hash = ?", keyHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

// ListAPIKeysByUserID 列出店主的全部API密钥
func (s *Store) ListAPIKeysByUserID(userID string) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// UpdateAPIKey 更新API密钥
func (s *Store) UpdateAPIKey(apiKey *domain.APIKey) error {
	result := s.db.Model(&domain.APIKey{}).
		Where("id = ?", apiKey.ID).
		Select("name", "permission", "is_active", "updated_at").
		Updates(map[string]interface{}{
			"name":       apiKey.Name,
			"permission": apiKey.Permission,
			"is_active":  apiKey.IsActive,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAPIKeyNotFound
	}
	return nil
}

// DeleteAPIKey 删除API密钥
func (s *Store) DeleteAPIKey(id string) error {
	result := s.db.Delete(&domain.APIKey{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAPIKeyNotFound
	}
	return nil
}

// UpdateAPIKeyLastUsed 更新API密钥最后使用时间
func (s *Store) UpdateAPIKeyLastUsed(id string) error {
	return s.db.Model(&domain.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

// ========== 订单 ==========

// SaveOrder 保存订单
func (s *Store) SaveOrder(order *domain.Order) error {
	return s.db.Create(order).Error
}

// GetOrder 按 {orderId, 店主} 查询订单
func (s *Store) GetOrder(userID, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.First(&order, "order_id = ? AND customer_user_id = ?", orderID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// orderSortColumn 将查询排序字段映射为列名，未知字段回退到 created_at
func orderSortColumn(field string) string {
	switch field {
	case "amount":
		return "amount"
	case "orderId":
		return "order_id"
	case "status":
		return "status"
	default:
		return "created_at"
	}
}

// ListOrders 按条件分页查询订单
func (s *Store) ListOrders(query storage.OrderQuery) ([]domain.Order, int, error) {
	tx := s.db.Model(&domain.Order{}).Where("customer_user_id = ?", query.UserID)

	if query.Status != "" {
		tx = tx.Where("status = ?", query.Status)
	}
	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		if s.driverName == "postgres" {
			tx = tx.Where("order_id ILIKE ? OR customer_name ILIKE ?", pattern, pattern)
		} else {
			tx = tx.Where("order_id LIKE ? OR customer_name LIKE ?", pattern, pattern)
		}
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if query.SortOrder == "asc" {
		direction = "ASC"
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 10
	}

	var orders []domain.Order
	err := tx.Order(fmt.Sprintf("%s %s", orderSortColumn(query.SortField), direction)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, int(total), nil
}

// UpdateOrderConditional 条件更新订单
//
// 单条 UPDATE 同时匹配订单号、店主与期望状态，保证状态迁移原子应用；
// 零行受影响时回查区分 "不存在/不属于该店主" 与 "状态已被并发修改"。
func (s *Store) UpdateOrderConditional(userID, orderID string, expected domain.OrderStatus, patch storage.OrderPatch) (*domain.Order, error) {
	values := map[string]interface{}{"updated_at": time.Now()}
	if patch.Status != nil {
		values["status"] = *patch.Status
	}
	if patch.Tracking != nil {
		values["shipping_tracking"] = *patch.Tracking
	}

	result := s.db.Model(&domain.Order{}).
		Where("order_id = ? AND customer_user_id = ? AND status = ?", orderID, userID, expected).
		Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetOrder(userID, orderID); err != nil {
			return nil, err
		}
		return nil, storage.ErrOrderConflict
	}

	return s.GetOrder(userID, orderID)
}

// ========== 商品 ==========

// SaveProduct 保存商品
func (s *Store) SaveProduct(product *domain.Product) error {
	return s.db.Create(product).Error
}

// GetProduct 按 {id, 店主} 查询商品
func (s *Store) GetProduct(userID, productID string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.First(&product, "id = ? AND user_id = ?", productID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// ListProductsByUserID 列出店主的全部商品
func (s *Store) ListProductsByUserID(userID string) ([]domain.Product, error) {
	var products []domain.Product
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

// UpdateProduct 更新商品
func (s *Store) UpdateProduct(product *domain.Product) error {
	result := s.db.Model(&domain.Product{}).
		Where("id = ? AND user_id = ?", product.ID, product.UserID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
			"stock":       product.Stock,
			"category":    product.Category,
			"is_active":   product.IsActive,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

// DeleteProduct 删除商品
func (s *Store) DeleteProduct(userID, productID string) error {
	result := s.db.Delete(&domain.Product{}, "id = ? AND user_id = ?", productID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrProductNotFound
	}
	return nil
}

// ========== 统计 ==========

// GetStoreStatistics 聚合店主的仪表盘统计
func (s *Store) GetStoreStatistics(userID string) (*domain.StoreStatistics, error) {
	stats := &domain.StoreStatistics{}

	type statusCount struct {
		Status domain.OrderStatus
		Count  int
	}
	var counts []statusCount
	err := s.db.Model(&domain.Order{}).
		Select("status, COUNT(*) AS count").
		Where("customer_user_id = ?", userID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.TotalOrders += c.Count
		switch c.Status {
		case domain.StatusProcessing:
			stats.ProcessingOrders = c.Count
		case domain.StatusCompleted:
			stats.CompletedOrders = c.Count
		case domain.StatusCancelled:
			stats.CancelledOrders = c.Count
		}
	}

	err = s.db.Model(&domain.Order{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("customer_user_id = ? AND status <> ?", userID, domain.StatusCancelled).
		Scan(&stats.TotalRevenue).Error
	if err != nil {
		return nil, err
	}

	var productCount int64
	if err := s.db.Model(&domain.Product{}).Where("user_id = ?", userID).Count(&productCount).Error; err != nil {
		return nil, err
	}
	stats.TotalProducts = int(productCount)

	var keyCount int64
	err = s.db.Model(&domain.APIKey{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&keyCount).Error
	if err != nil {
		return nil, err
	}
	stats.ActiveAPIKeys = int(keyCount)

	return stats, nil
}

// ========== 会话缓存 / 限流（进程内） ==========
//
// 有 Redis 时 hybrid 存储会覆盖这两组职责，这里的实现只服务
// 无 Redis 的单机部署。

// CacheSession 缓存会话
func (s *Store) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = sessionEntry{
		userID:    userID,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetCachedSession 查询缓存的会话
func (s *Store) GetCachedSession(sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.sessions, sessionID)
		return "", nil
	}
	return entry.userID, nil
}

// DeleteCachedSession 删除缓存的会话
func (s *Store) DeleteCachedSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// IncrementRateLimit 自增限流计数
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// GetRateLimit 查询限流计数
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rateLimits[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}
