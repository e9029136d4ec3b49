package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password too short (min 8 chars)")
	ErrPasswordTooLong  = errors.New("password too long (max 128 chars)")
	ErrUsernameTooShort = errors.New("username too short (min 3 chars)")
	ErrUsernameTooLong  = errors.New("username too long (max 32 chars)")
	ErrInvalidUsername  = errors.New("invalid username format")
)

// 验证常量
const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MinUsernameLength = 3
	MaxUsernameLength = 32
)

// 用户名必须以字母开头
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*[a-zA-Z0-9]$|^[a-zA-Z]$`)

// ValidationError 请求字段级验证错误，Field 指出首个不合法的字段
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// NewValidationError 创建字段验证错误
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// MissingField 创建必填字段缺失错误
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// ValidateEmail 验证邮箱地址格式
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return true
}

// ValidateUsername 验证用户名
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return ErrUsernameTooShort
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidatePassword 验证密码长度
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// CreateOrderRequest 创建订单请求
//
// Amount 字段被刻意排除：总额只能由服务端计算。
type CreateOrderRequest struct {
	Customer *CustomerInput `json:"customer"`
	Items    []OrderItem    `json:"items"`
	Shipping *Shipping      `json:"shipping"`
	Payment  *Payment       `json:"payment"`
}

// CustomerInput 创建订单时的客户信息，归属店主由认证身份填入
type CustomerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate 按字段顺序验证创建订单请求，返回首个错误
func (r *CreateOrderRequest) Validate() error {
	if r.Customer == nil {
		return MissingField("customer")
	}
	if r.Customer.Name == "" {
		return MissingField("customer.name")
	}
	if !ValidateEmail(r.Customer.Email) {
		return NewValidationError("customer.email", "invalid email")
	}
	if len(r.Items) == 0 {
		return MissingField("items")
	}
	for i, item := range r.Items {
		if item.Name == "" {
			return MissingField(fmt.Sprintf("items[%d].name", i))
		}
		if item.Quantity < 1 {
			return NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if item.Price < 0 {
			return NewValidationError(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	if r.Shipping == nil {
		return MissingField("shipping")
	}
	if r.Shipping.Address == "" {
		return MissingField("shipping.address")
	}
	if r.Shipping.Method == "" {
		return MissingField("shipping.method")
	}
	if r.Payment == nil {
		return MissingField("payment")
	}
	if r.Payment.Method == "" {
		return MissingField("payment.method")
	}
	if r.Payment.Status == "" {
		return MissingField("payment.status")
	}
	if len(r.Payment.Last4) > 4 {
		return NewValidationError("payment.last4", "must be the last 4 digits only")
	}
	return nil
}

// UpdateOrderRequest 更新订单请求
//
// 只有 status 和 shipping.tracking 会被应用，其余字段静默忽略。
type UpdateOrderRequest struct {
	Status   *OrderStatus   `json:"status,omitempty"`
	Shipping *ShippingPatch `json:"shipping,omitempty"`
}

// ShippingPatch 配送信息补丁，仅物流单号可变
type ShippingPatch struct {
	Tracking *string `json:"tracking,omitempty"`
}

// Validate 验证更新订单请求
func (r *UpdateOrderRequest) Validate() error {
	if r.Status != nil && !r.Status.Valid() {
		return NewValidationError("status", "must be one of processing, completed, cancelled")
	}
	return nil
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
}

// Validate 验证创建商品请求
func (r *CreateProductRequest) Validate() error {
	if r.Name == "" {
		return MissingField("name")
	}
	if r.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	if r.Stock < 0 {
		return NewValidationError("stock", "must not be negative")
	}
	return nil
}

// RefreshTokenRequest 刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
