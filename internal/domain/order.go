package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing" // 初始状态
	StatusCompleted  OrderStatus = "completed"  // 已完成
	StatusCancelled  OrderStatus = "cancelled"  // 终态，不可再变更
)

// Valid 判断订单状态是否合法
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 判断订单状态能否迁移到目标状态
//
// 允许的迁移:
//   - processing -> completed
//   - processing -> cancelled
//   - completed  -> cancelled （完成后退款取消）
//
// cancelled 是终态，不允许任何出边。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusProcessing:
		return next == StatusCompleted || next == StatusCancelled
	case StatusCompleted:
		return next == StatusCancelled
	}
	return false
}

// Customer 订单客户信息，UserID 为订单归属的店主身份
type Customer struct {
	Name   string `json:"name" gorm:"type:varchar(100);not null"`
	Email  string `json:"email" gorm:"type:varchar(255);not null"`
	UserID string `json:"userId" gorm:"type:varchar(36);index;not null"`
}

// OrderItem 订单商品行
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"` // 必须 >= 1
	Price    float64 `json:"price"`    // 单价
}

// Shipping 配送信息
type Shipping struct {
	Address  string `json:"address" gorm:"type:varchar(255)"`
	Method   string `json:"method" gorm:"type:varchar(50)"`
	Tracking string `json:"tracking,omitempty" gorm:"type:varchar(100)"` // 物流单号，可后补
}

// Payment 支付信息，只保存卡号后四位
type Payment struct {
	Method string `json:"method" gorm:"type:varchar(50)"`
	Status string `json:"status" gorm:"type:varchar(50)"`
	Last4  string `json:"last4,omitempty" gorm:"type:varchar(4)"`
	Email  string `json:"email,omitempty" gorm:"type:varchar(255)"`
}

// Order 订单实体
//
// Amount 由服务端根据 Items 重新计算，永不信任客户端提交值。
// 删除操作建模为迁移到 cancelled，不做物理删除。
type Order struct {
	ID        string                          `json:"-" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string                          `json:"orderId" gorm:"uniqueIndex;type:varchar(32);not null"` // 形如 ORD-XXXXXXXX
	Customer  Customer                        `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Items     datatypes.JSONSlice[OrderItem]  `json:"items"`
	Amount    float64                         `json:"amount" gorm:"not null"`
	Status    OrderStatus                     `json:"status" gorm:"type:varchar(20);default:'processing';index"`
	Shipping  Shipping                        `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	Payment   Payment                         `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	CreatedAt time.Time                       `json:"createdAt"`
	UpdatedAt time.Time                       `json:"updatedAt"`
}

// ComputeAmount 根据商品行计算订单总额
func ComputeAmount(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// NewOrderID 生成人类可读的订单号
//
// 格式: ORD- + 秒级时间戳(base36) + 5位随机(base36)，全大写。
func NewOrderID() string {
	ts := strconv.FormatInt(time.Now().Unix(), 36)
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	random := make([]byte, 5)
	for i := range random {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand 不可用时退化为时间播种，订单号不承担安全职责
			n = big.NewInt(time.Now().UnixNano() % int64(len(alphabet)))
		}
		random[i] = alphabet[n.Int64()]
	}
	return strings.ToUpper(fmt.Sprintf("ORD-%s%s", ts, random))
}
