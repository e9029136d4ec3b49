package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage/memory"
)

func TestGenerateAPIKey(t *testing.T) {
	key1, err := GenerateAPIKey()
	require.NoError(t, err)
	key2, err := GenerateAPIKey()
	require.NoError(t, err)

	// 32 字节随机数的十六进制编码
	assert.Len(t, key1, 64)
	assert.Len(t, key2, 64)
	assert.NotEqual(t, key1, key2)
}

func TestHashAPIKey_Deterministic(t *testing.T) {
	// 同一输入必须得到同一摘要，精确查找依赖这一点
	assert.Equal(t, HashAPIKey("some-key"), HashAPIKey("some-key"))
	assert.NotEqual(t, HashAPIKey("some-key"), HashAPIKey("other-key"))
	assert.Len(t, HashAPIKey("some-key"), 64)

	// SHA-256 已知向量
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		HashAPIKey("hello"))
}

func TestHashAPIKey_DistinctSecretsDistinctDigests(t *testing.T) {
	// 大样本内任意两个不同密钥的摘要都不相同，哈希查找才不会串号
	const sample = 1000

	seen := make(map[string]string, sample)
	for i := 0; i < sample; i++ {
		key, err := GenerateAPIKey()
		require.NoError(t, err)

		digest := HashAPIKey(key)
		if prev, ok := seen[digest]; ok {
			t.Fatalf("digest collision: %q and %q both hash to %s", prev, key, digest)
		}
		seen[digest] = key
	}
	assert.Len(t, seen, sample)
}

func TestAPIKeyService_CreateAPIKey(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	apiKey, rawKey, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner-1",
		Name:   "warehouse sync",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, apiKey.ID)
	assert.Len(t, rawKey, 64)
	assert.Equal(t, "owner-1", apiKey.UserID)
	assert.Equal(t, "warehouse sync", apiKey.Name)
	assert.Equal(t, domain.PermissionRead, apiKey.Permission) // 默认权限
	assert.True(t, apiKey.IsActive)

	// 存储记录只持有原始密钥的摘要
	assert.Equal(t, HashAPIKey(rawKey), apiKey.KeyHash)
	assert.NotEqual(t, rawKey, apiKey.KeyHash)
}

func TestAPIKeyService_CreateAPIKey_Validation(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	_, _, err := svc.CreateAPIKey(CreateAPIKeyInput{UserID: "owner-1"})
	assert.Error(t, err) // name 必填

	_, _, err = svc.CreateAPIKey(CreateAPIKeyInput{
		UserID:     "owner-1",
		Name:       "bad",
		Permission: "admin",
	})
	assert.ErrorIs(t, err, ErrInvalidPermission)
}

func TestAPIKeyService_ValidateKey(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	apiKey, rawKey, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID:     "owner-1",
		Name:       "integration",
		Permission: domain.PermissionReadWrite,
	})
	require.NoError(t, err)

	// 有效密钥解析到对应记录
	got, err := svc.ValidateKey(rawKey)
	require.NoError(t, err)
	assert.Equal(t, apiKey.ID, got.ID)
	assert.Equal(t, "owner-1", got.UserID)

	// 未知密钥与其他失败返回同一错误
	_, err = svc.ValidateKey("not-a-real-key")
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)
}

func TestAPIKeyService_ValidateKey_Deactivated(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	apiKey, rawKey, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner-1",
		Name:   "to deactivate",
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateAPIKey("owner-1", apiKey.ID, UpdateAPIKeyInput{IsActive: &inactive})
	require.NoError(t, err)

	// 停用密钥的失败与未知密钥无法区分
	_, err = svc.ValidateKey(rawKey)
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)

	// 重新启用后恢复可用
	active := true
	_, err = svc.UpdateAPIKey("owner-1", apiKey.ID, UpdateAPIKeyInput{IsActive: &active})
	require.NoError(t, err)

	_, err = svc.ValidateKey(rawKey)
	assert.NoError(t, err)
}

func TestAPIKeyService_ValidateKey_UpdatesLastUsed(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	apiKey, rawKey, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner-1",
		Name:   "tracked",
	})
	require.NoError(t, err)
	assert.Nil(t, apiKey.LastUsedAt)

	_, err = svc.ValidateKey(rawKey)
	require.NoError(t, err)

	stored, err := store.GetAPIKey(apiKey.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestAPIKeyService_OwnershipScoping(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	apiKey, _, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner-1",
		Name:   "mine",
	})
	require.NoError(t, err)

	// 其他店主无法更新或删除密钥
	_, err = svc.UpdateAPIKey("owner-2", apiKey.ID, UpdateAPIKeyInput{Name: "stolen"})
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)

	_, err = svc.DeleteAPIKey("owner-2", apiKey.ID)
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)

	// 列表按店主隔离
	keys, err := svc.ListAPIKeys("owner-2")
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = svc.ListAPIKeys("owner-1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAPIKeyService_DeleteAPIKey(t *testing.T) {
	store := memory.NewStore()
	svc := NewAPIKeyService(store)

	apiKey, rawKey, err := svc.CreateAPIKey(CreateAPIKeyInput{
		UserID: "owner-1",
		Name:   "short lived",
	})
	require.NoError(t, err)

	deleted, err := svc.DeleteAPIKey("owner-1", apiKey.ID)
	require.NoError(t, err)
	assert.Equal(t, apiKey.ID, deleted.ID)

	// 删除后的密钥无法再认证
	_, err = svc.ValidateKey(rawKey)
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)

	// 重复删除返回未找到
	_, err = svc.DeleteAPIKey("owner-1", apiKey.ID)
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)
}
