package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	jwtpkg "storeadmin/backend/internal/auth/jwt"
	"storeadmin/backend/internal/domain"
)

const (
	// APIKeyHeader 携带原始API密钥的请求头
	APIKeyHeader = "x-store-api-key"
	// SessionCookie 携带会话令牌的 Cookie 名
	SessionCookie = "session_token"
)

// ErrUnauthenticated 无法解析出请求身份
//
// 密钥无效、密钥停用、会话过期、凭证缺失与存储故障统一收敛到
// 这一个错误，响应侧不区分失败原因，防止凭证枚举。
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentitySource 身份凭证类型
type IdentitySource string

const (
	SourceSession IdentitySource = "session"
	SourceAPIKey  IdentitySource = "api_key"
)

// Identity 当前请求的行为身份
type Identity struct {
	UserID     string
	Source     IdentitySource
	Permission domain.APIKeyPermission
}

// CanWrite 判断该身份是否允许写操作
//
// 会话身份拥有完整权限；API密钥身份取决于密钥的权限级别。
func (i *Identity) CanWrite() bool {
	return i.Source == SourceSession || i.Permission.CanWrite()
}

// KeyValidator API密钥验证器
type KeyValidator interface {
	ValidateKey(rawKey string) (*domain.APIKey, error)
}

// Resolver 请求身份解析器
//
// 两分支决策过程：x-store-api-key 存在时只走密钥分支——无效密钥
// 绝不回落到会话认证，避免凭证错误被会话身份掩盖；头不存在时
// 走会话分支（Bearer 令牌或会话 Cookie）。
type Resolver struct {
	keys       KeyValidator
	jwtManager *jwtpkg.Manager
	log        *zap.Logger
}

// NewResolver 创建请求身份解析器
func NewResolver(keys KeyValidator, jwtManager *jwtpkg.Manager, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		keys:       keys,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Resolve 解析请求的行为身份
//
// 无副作用的只读查询（密钥最后使用时间的更新是尽力而为的例外）。
// 任何内部故障都按"无身份"处理，默认拒绝。
func (r *Resolver) Resolve(req *http.Request) (*Identity, error) {
	if rawKey := req.Header.Get(APIKeyHeader); rawKey != "" {
		return r.resolveAPIKey(rawKey)
	}
	return r.resolveSession(req)
}

// resolveAPIKey 密钥分支
func (r *Resolver) resolveAPIKey(rawKey string) (*Identity, error) {
	apiKey, err := r.keys.ValidateKey(rawKey)
	if err != nil {
		// 不记录密钥内容，也不区分"不存在"与"已停用"
		r.log.Debug("api key authentication failed")
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID:     apiKey.UserID,
		Source:     SourceAPIKey,
		Permission: apiKey.Permission,
	}, nil
}

// resolveSession 会话分支
func (r *Resolver) resolveSession(req *http.Request) (*Identity, error) {
	token := sessionToken(req)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := r.jwtManager.ValidateToken(token)
	if err != nil {
		r.log.Debug("session token validation failed")
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID:     claims.UserID,
		Source:     SourceSession,
		Permission: domain.PermissionReadWrite,
	}, nil
}

// sessionToken 从 Authorization 头或会话 Cookie 提取令牌
func sessionToken(req *http.Request) string {
	if header := req.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := req.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
