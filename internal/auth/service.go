package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	jwtpkg "storeadmin/backend/internal/auth/jwt"
	"storeadmin/backend/internal/domain"
)

var (
	// ErrInvalidEmail 无效的邮箱格式
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrEmailExists 邮箱已存在
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists 用户名已存在
	ErrUsernameExists = errors.New("username already exists")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive 用户已被禁用
	ErrUserInactive = errors.New("user is inactive")
	// ErrTooManyAttempts 登录尝试过于频繁
	ErrTooManyAttempts = errors.New("too many login attempts")
)

// UserStore 认证服务需要的存储能力
type UserStore interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	UpdateLastLogin(userID string) error
	CacheSession(sessionID string, userID string, ttl time.Duration) error
	GetCachedSession(sessionID string) (string, error)
	DeleteCachedSession(sessionID string) error
	IncrementRateLimit(key string, window time.Duration) (int64, error)
}

// Service 认证服务
type Service struct {
	store       UserStore
	jwtManager  *jwtpkg.Manager
	maxAttempts int
	window      time.Duration

	// 存储后端不提供限流计数时的进程内兜底
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewService 创建认证服务
func NewService(store UserStore, jwtManager *jwtpkg.Manager, maxAttempts int, window time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Service{
		store:       store,
		jwtManager:  jwtManager,
		maxAttempts: maxAttempts,
		window:      window,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

// Register 注册店主账户
func (s *Service) Register(req *domain.RegisterRequest) (*AuthResponse, error) {
	if !domain.ValidateEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	if err := domain.ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 检查邮箱是否已存在
	if user, err := s.store.GetUserByEmail(email); err == nil && user != nil {
		return nil, ErrEmailExists
	}

	// 检查用户名是否已存在
	if user, err := s.store.GetUserByUsername(strings.ToLower(req.Username)); err == nil && user != nil {
		return nil, ErrUsernameExists
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueTokens(user)
}

// Login 登录
//
// 同一标识符的失败尝试在窗口内计数限流，计数优先走存储后端
// （Redis/内存），后端不支持时退化为进程内限流器。
func (s *Service) Login(req *domain.LoginRequest) (*AuthResponse, error) {
	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))

	if err := s.checkLoginRate(identifier); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(identifier)
	if err != nil {
		user, err = s.store.GetUserByUsername(identifier)
	}
	if err != nil || user == nil {
		// 与密码错误同响应，不暴露账户是否存在
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	_ = s.store.UpdateLastLogin(user.ID)

	return s.issueTokens(user)
}

// Refresh 用刷新令牌换取新的访问令牌
//
// 刷新令牌除签名验证外还要求会话缓存仍然存在，登出后立即失效。
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return "", err
	}

	userID, err := s.store.GetCachedSession(sessionID(refreshToken))
	if err != nil {
		return "", fmt.Errorf("session lookup failed: %w", err)
	}
	if userID == "" || userID != claims.UserID {
		return "", jwtpkg.ErrInvalidToken
	}

	return s.jwtManager.RefreshAccessToken(refreshToken)
}

// Logout 登出，删除会话缓存使刷新令牌立即失效
func (s *Service) Logout(refreshToken string) error {
	return s.store.DeleteCachedSession(sessionID(refreshToken))
}

// GetUser 查询用户信息
func (s *Service) GetUser(userID string) (*domain.User, error) {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// issueTokens 签发令牌对并缓存会话
func (s *Service) issueTokens(user *domain.User) (*AuthResponse, error) {
	pair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	// 会话缓存失败不阻断登录，只影响刷新令牌的提前吊销能力
	_ = s.store.CacheSession(sessionID(pair.RefreshToken), user.ID, s.refreshTTL())

	return &AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func (s *Service) refreshTTL() time.Duration {
	// 缓存与刷新令牌同生命周期，略放宽避免边界竞争
	ttl := s.jwtManager.RefreshExpiry()
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return ttl + time.Hour
}

// checkLoginRate 登录限流检查
func (s *Service) checkLoginRate(identifier string) error {
	key := "login:" + identifier

	count, err := s.store.IncrementRateLimit(key, s.window)
	if err == nil && count > 0 {
		if count > int64(s.maxAttempts) {
			return ErrTooManyAttempts
		}
		return nil
	}

	// 后端不支持计数（count == 0）或出错时走进程内限流
	s.mu.Lock()
	limiter, ok := s.limiters[identifier]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.window/time.Duration(s.maxAttempts)), s.maxAttempts)
		s.limiters[identifier] = limiter
	}
	s.mu.Unlock()

	if !limiter.Allow() {
		return ErrTooManyAttempts
	}
	return nil
}

// sessionID 刷新令牌的会话缓存键，存摘要避免缓存明文令牌
func sessionID(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验密码
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
