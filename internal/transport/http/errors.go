package httptransport

import (
	"errors"

	"storeadmin/backend/internal/service"
	"storeadmin/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// Order 错误
	service.ErrOrderNotFound:     "订单不存在",
	service.ErrInvalidTransition: "订单状态不允许该变更",
	storage.ErrOrderConflict:     "订单已被其他请求修改，请重试",

	// API Key 错误
	service.ErrAPIKeyNotFound:    "API密钥不存在",
	service.ErrAPIKeyInvalid:     "API密钥无效",
	service.ErrInvalidPermission: "权限级别无效",

	// Product 错误
	service.ErrProductNotFound: "商品不存在",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for target, msg := range errorMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest   = "请求参数格式错误"
	MsgRequestBodyEmpty = "请求体不能为空"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "用户名或密码错误"
	MsgTooManyAttempts    = "登录尝试过于频繁，请稍后重试"
	MsgTokenInvalid       = "无效的访问令牌"
	MsgPermissionDenied   = "权限不足"

	// 订单相关
	MsgOrderCreateFailed = "创建订单失败"
	MsgOrderListFailed   = "获取订单列表失败"
	MsgOrderGetFailed    = "获取订单详情失败"
	MsgOrderUpdateFailed = "更新订单失败"
	MsgOrderCancelled    = "订单已取消"
	MsgOrderNotFound     = "订单不存在"

	// API Key相关
	MsgAPIKeyCreateFailed = "创建API密钥失败"
	MsgAPIKeyListFailed   = "获取API密钥列表失败"
	MsgAPIKeyUpdateFailed = "更新API密钥失败"
	MsgAPIKeyDeleteFailed = "删除API密钥失败"
	MsgAPIKeyNotFound     = "API密钥不存在"

	// 商品相关
	MsgProductCreateFailed = "创建商品失败"
	MsgProductListFailed   = "获取商品列表失败"
	MsgProductUpdateFailed = "更新商品失败"
	MsgProductDeleteFailed = "删除商品失败"
	MsgProductNotFound     = "商品不存在"

	// 统计相关
	MsgStatisticsGetFailed = "获取统计数据失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
