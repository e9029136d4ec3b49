package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtpkg "storeadmin/backend/internal/auth/jwt"
	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage/memory"
)

func newTestAuthService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	jwtManager := jwtpkg.NewManager(strings.Repeat("a", 32), "test", 15*time.Minute, 7*24*time.Hour)
	return NewService(store, jwtManager, 10, time.Minute), store
}

func TestAuthService_Register(t *testing.T) {
	svc, _ := newTestAuthService(t)

	resp, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "shopkeeper", resp.User.Username)
	assert.Equal(t, "owner@example.com", resp.User.Email)
	assert.Equal(t, domain.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "first",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	_, err = svc.Register(&domain.RegisterRequest{
		Username: "second",
		Email:    "OWNER@example.com", // 邮箱不区分大小写
		Password: "Password123!",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "one@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	_, err = svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "two@example.com",
		Password: "Password123!",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "not-an-email",
		Password: "Password123!",
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	// 用邮箱登录
	resp, err := svc.Login(&domain.LoginRequest{
		Identifier: "owner@example.com",
		Password:   "Password123!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	// 用用户名登录
	resp, err = svc.Login(&domain.LoginRequest{
		Identifier: "shopkeeper",
		Password:   "Password123!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	// 密码错误与账户不存在返回同一错误
	_, err = svc.Login(&domain.LoginRequest{
		Identifier: "owner@example.com",
		Password:   "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(&domain.LoginRequest{
		Identifier: "nobody@example.com",
		Password:   "Password123!",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_RateLimited(t *testing.T) {
	store := memory.NewStore()
	jwtManager := jwtpkg.NewManager(strings.Repeat("a", 32), "test", 15*time.Minute, 7*24*time.Hour)
	svc := NewService(store, jwtManager, 3, time.Minute)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(&domain.LoginRequest{
			Identifier: "owner@example.com",
			Password:   "wrong-password",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// 窗口耗尽后正确密码也被拒绝
	_, err = svc.Login(&domain.LoginRequest{
		Identifier: "owner@example.com",
		Password:   "Password123!",
	})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	svc, _ := newTestAuthService(t)

	resp, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	accessToken, err := svc.Refresh(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)

	// 登出后刷新令牌的会话已被删除
	require.NoError(t, svc.Logout(resp.RefreshToken))

	_, err = svc.Refresh(resp.RefreshToken)
	assert.Error(t, err)
}

// ttlCapturingStore 记录会话缓存写入时使用的 TTL
type ttlCapturingStore struct {
	*memory.Store
	lastTTL time.Duration
}

func (s *ttlCapturingStore) CacheSession(sessionID string, userID string, ttl time.Duration) error {
	s.lastTTL = ttl
	return s.Store.CacheSession(sessionID, userID, ttl)
}

func TestAuthService_SessionTTLTracksRefreshExpiry(t *testing.T) {
	// 会话缓存寿命必须跟随配置的刷新令牌有效期，否则配置了更长
	// 有效期的部署会在缓存先到期后拒绝仍然有效的刷新令牌
	store := &ttlCapturingStore{Store: memory.NewStore()}
	refreshExpiry := 30 * 24 * time.Hour
	jwtManager := jwtpkg.NewManager(strings.Repeat("a", 32), "test", 15*time.Minute, refreshExpiry)
	svc := NewService(store, jwtManager, 10, time.Minute)

	_, err := svc.Register(&domain.RegisterRequest{
		Username: "shopkeeper",
		Email:    "owner@example.com",
		Password: "Password123!",
	})
	require.NoError(t, err)

	assert.Equal(t, refreshExpiry+time.Hour, store.lastTTL)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Password123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password123!", hash)

	assert.NoError(t, CheckPassword(hash, "Password123!"))
	assert.Error(t, CheckPassword(hash, "other"))
}
