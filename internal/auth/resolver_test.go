package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtpkg "storeadmin/backend/internal/auth/jwt"
	"storeadmin/backend/internal/domain"
)

// fakeKeyValidator 解析固定密钥集合的校验器
type fakeKeyValidator struct {
	keys map[string]*domain.APIKey
}

func (f *fakeKeyValidator) ValidateKey(rawKey string) (*domain.APIKey, error) {
	if key, ok := f.keys[rawKey]; ok {
		return key, nil
	}
	return nil, ErrUnauthenticated
}

func newTestResolver(t *testing.T) (*Resolver, *jwtpkg.Manager) {
	t.Helper()
	jwtManager := jwtpkg.NewManager(strings.Repeat("a", 32), "test", 15*time.Minute, 7*24*time.Hour)
	keys := &fakeKeyValidator{keys: map[string]*domain.APIKey{
		"good-key": {
			ID:         "key-1",
			UserID:     "key-owner",
			Permission: domain.PermissionReadWrite,
			IsActive:   true,
		},
		"read-key": {
			ID:         "key-2",
			UserID:     "key-owner",
			Permission: domain.PermissionRead,
			IsActive:   true,
		},
	}}
	return NewResolver(keys, jwtManager, nil), jwtManager
}

func sessionRequest(t *testing.T, jwtManager *jwtpkg.Manager, userID string) *http.Request {
	t.Helper()
	pair, err := jwtManager.GenerateTokenPair(userID, "owner@example.com", "user")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	return req
}

func TestResolver_APIKeyBranch(t *testing.T) {
	resolver, _ := newTestResolver(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set(APIKeyHeader, "good-key")

	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "key-owner", identity.UserID)
	assert.Equal(t, SourceAPIKey, identity.Source)
	assert.True(t, identity.CanWrite())
}

func TestResolver_ReadOnlyKeyPermission(t *testing.T) {
	resolver, _ := newTestResolver(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set(APIKeyHeader, "read-key")

	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.False(t, identity.CanWrite())
}

func TestResolver_InvalidKeyNeverFallsBackToSession(t *testing.T) {
	resolver, jwtManager := newTestResolver(t)

	// 请求同时携带有效会话和无效密钥头：
	// 密钥分支必须优先并失败，有效会话不能掩盖坏凭证
	req := sessionRequest(t, jwtManager, "session-owner")
	req.Header.Set(APIKeyHeader, "wrong-key")

	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolver_ValidKeyWinsOverSession(t *testing.T) {
	resolver, jwtManager := newTestResolver(t)

	// 密钥和会话分属不同店主时，生效身份是密钥的店主
	req := sessionRequest(t, jwtManager, "session-owner")
	req.Header.Set(APIKeyHeader, "good-key")

	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "key-owner", identity.UserID)
	assert.Equal(t, SourceAPIKey, identity.Source)
}

func TestResolver_SessionBearerToken(t *testing.T) {
	resolver, jwtManager := newTestResolver(t)

	identity, err := resolver.Resolve(sessionRequest(t, jwtManager, "session-owner"))
	require.NoError(t, err)
	assert.Equal(t, "session-owner", identity.UserID)
	assert.Equal(t, SourceSession, identity.Source)
	assert.True(t, identity.CanWrite()) // 会话始终持有完整权限
}

func TestResolver_SessionCookie(t *testing.T) {
	resolver, jwtManager := newTestResolver(t)

	pair, err := jwtManager.GenerateTokenPair("cookie-owner", "owner@example.com", "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: pair.AccessToken})

	identity, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "cookie-owner", identity.UserID)
	assert.Equal(t, SourceSession, identity.Source)
}

func TestResolver_NoCredentials(t *testing.T) {
	resolver, _ := newTestResolver(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolver_MalformedSessionToken(t *testing.T) {
	resolver, _ := newTestResolver(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	_, err := resolver.Resolve(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
