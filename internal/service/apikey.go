package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
)

var (
	// ErrAPIKeyNotFound API密钥不存在（或不属于当前店主）
	ErrAPIKeyNotFound = errors.New("API key not found")
	// ErrAPIKeyInvalid API密钥无效
	ErrAPIKeyInvalid = errors.New("invalid API key")
	// ErrInvalidPermission 权限级别非法
	ErrInvalidPermission = errors.New("invalid permission level")
)

// APIKeyService API密钥业务逻辑服务
type APIKeyService struct {
	store storage.APIKeyRepository
}

// NewAPIKeyService 创建API密钥服务
func NewAPIKeyService(store storage.APIKeyRepository) *APIKeyService {
	return &APIKeyService{
		store: store,
	}
}

// GenerateAPIKey 生成一个安全的随机API密钥
//
// 32 字节来自 crypto/rand（256 位熵），十六进制编码为 64 字符。
// 原始密钥只在创建时返回一次，系统不持久化、不记录日志。
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashAPIKey 计算API密钥的存储摘要
//
// SHA-256 十六进制，确定且无副作用：相同输入总是得到相同摘要，
// 这是按摘要精确查找的前提。
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// CreateAPIKeyInput 创建API密钥的输入参数
type CreateAPIKeyInput struct {
	UserID     string
	Name       string
	Permission domain.APIKeyPermission
	IsActive   *bool // 缺省为 true
}

// CreateAPIKey 创建新的API密钥
//
// 返回记录和原始密钥。原始密钥此后不可再取回。
func (s *APIKeyService) CreateAPIKey(input CreateAPIKeyInput) (*domain.APIKey, string, error) {
	if input.Name == "" {
		return nil, "", domain.MissingField("name")
	}
	if input.Permission == "" {
		input.Permission = domain.PermissionRead
	}
	if !input.Permission.Valid() {
		return nil, "", ErrInvalidPermission
	}

	rawKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := time.Now()
	apiKey := &domain.APIKey{
		ID:         uuid.New().String(),
		UserID:     input.UserID,
		KeyHash:    HashAPIKey(rawKey),
		Name:       input.Name,
		Permission: input.Permission,
		IsActive:   isActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.SaveAPIKey(apiKey); err != nil {
		return nil, "", fmt.Errorf("failed to save api key: %w", err)
	}

	return apiKey, rawKey, nil
}

// ListAPIKeys 列出店主的全部API密钥
func (s *APIKeyService) ListAPIKeys(userID string) ([]*domain.APIKey, error) {
	return s.store.ListAPIKeysByUserID(userID)
}

// UpdateAPIKeyInput 更新API密钥的输入参数
type UpdateAPIKeyInput struct {
	Name       string
	Permission domain.APIKeyPermission
	IsActive   *bool
}

// UpdateAPIKey 更新API密钥的名称与权限
//
// 密钥摘要不可变更；停用在存储写入后立即生效。
func (s *APIKeyService) UpdateAPIKey(userID, id string, input UpdateAPIKeyInput) (*domain.APIKey, error) {
	apiKey, err := s.store.GetAPIKey(id)
	if err != nil {
		return nil, ErrAPIKeyNotFound
	}
	// 所有权校验：他人密钥与不存在同样返回未找到
	if apiKey.UserID != userID {
		return nil, ErrAPIKeyNotFound
	}

	if input.Name != "" {
		apiKey.Name = input.Name
	}
	if input.Permission != "" {
		if !input.Permission.Valid() {
			return nil, ErrInvalidPermission
		}
		apiKey.Permission = input.Permission
	}
	if input.IsActive != nil {
		apiKey.IsActive = *input.IsActive
	}
	apiKey.UpdatedAt = time.Now()

	if err := s.store.UpdateAPIKey(apiKey); err != nil {
		return nil, fmt.Errorf("failed to update api key: %w", err)
	}
	return apiKey, nil
}

// DeleteAPIKey 删除API密钥，删除后立即失效
func (s *APIKeyService) DeleteAPIKey(userID, id string) (*domain.APIKey, error) {
	apiKey, err := s.store.GetAPIKey(id)
	if err != nil {
		return nil, ErrAPIKeyNotFound
	}
	if apiKey.UserID != userID {
		return nil, ErrAPIKeyNotFound
	}

	if err := s.store.DeleteAPIKey(id); err != nil {
		return nil, fmt.Errorf("failed to delete api key: %w", err)
	}
	return apiKey, nil
}

// ValidateKey 验证原始API密钥并返回关联记录
//
// 查找失败、密钥停用与存储故障统一返回 ErrAPIKeyInvalid，
// 调用方无从区分，防止密钥枚举；故障时默认拒绝。
func (s *APIKeyService) ValidateKey(rawKey string) (*domain.APIKey, error) {
	apiKey, err := s.store.GetAPIKeyByHash(HashAPIKey(rawKey))
	if err != nil {
		return nil, ErrAPIKeyInvalid
	}
	if !apiKey.IsActive {
		return nil, ErrAPIKeyInvalid
	}

	// 尽力而为，失败不影响认证结果
	_ = s.store.UpdateAPIKeyLastUsed(apiKey.ID)

	return apiKey, nil
}
