package domain

import "time"

// APIKeyPermission API密钥权限级别
type APIKeyPermission string

const (
	PermissionRead      APIKeyPermission = "read"       // 只读
	PermissionReadWrite APIKeyPermission = "read/write" // 读写
)

// Valid 判断权限级别是否合法
func (p APIKeyPermission) Valid() bool {
	return p == PermissionRead || p == PermissionReadWrite
}

// CanWrite 判断权限级别是否允许写操作
func (p APIKeyPermission) CanWrite() bool {
	return p == PermissionReadWrite
}

// APIKey API密钥实体
//
// 只保存密钥的 SHA-256 摘要，原始密钥在创建时返回一次后不可再取回。
type APIKey struct {
	ID         string           `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string           `json:"userId" gorm:"type:varchar(36);index;not null"`
	KeyHash    string           `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"` // 密钥摘要，永不下发
	Name       string           `json:"name" gorm:"type:varchar(100);not null"`         // 密钥名称/描述
	Permission APIKeyPermission `json:"permission" gorm:"type:varchar(20);default:'read';not null"`
	IsActive   bool             `json:"isActive" gorm:"default:true"` // 停用后立即失效
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	LastUsedAt *time.Time       `json:"lastUsedAt,omitempty"` // 最后使用时间
}
