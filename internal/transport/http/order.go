package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/middleware"
	"storeadmin/backend/internal/monitoring"
	"storeadmin/backend/internal/service"
	"storeadmin/backend/internal/storage"
)

// OrderHandler 订单管理处理器
type OrderHandler struct {
	orderService *service.OrderService
	metrics      *monitoring.Metrics
	log          *zap.Logger
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orderService *service.OrderService, metrics *monitoring.Metrics, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{
		orderService: orderService,
		metrics:      metrics,
		log:          log,
	}
}

// CreateOrder godoc
// @Summary 创建订单
// @Description 创建新订单，总额由服务端根据商品行计算，状态固定为 processing
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.CreateOrderRequest true "订单内容"
// @Success 201 {object} Response{data=domain.Order}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Router /v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	order, err := h.orderService.CreateOrder(userID, &req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			BadRequest(c, verr.Error())
			return
		}
		h.log.Error("failed to create order", zap.Error(err))
		InternalError(c, MsgOrderCreateFailed)
		return
	}

	// 金额直方图记录服务端计算出的总额
	if h.metrics != nil {
		h.metrics.RecordOrderCreated(order.Amount)
	}

	Created(c, order)
}

// ListOrders godoc
// @Summary 获取订单列表
// @Description 分页查询当前店主的订单，支持搜索、状态过滤和排序
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param search query string false "按订单号或客户姓名搜索"
// @Param status query string false "状态过滤" Enums(processing, completed, cancelled)
// @Param sortField query string false "排序字段" Enums(createdAt, amount, orderId)
// @Param sortOrder query string false "排序方向" Enums(asc, desc)
// @Param page query int false "页码，从1开始"
// @Param limit query int false "每页数量，默认20"
// @Success 200 {object} Response{data=service.OrderList}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, err := h.orderService.ListOrders(storage.OrderQuery{
		UserID:    userID,
		Search:    c.Query("search"),
		Status:    domain.OrderStatus(c.Query("status")),
		SortField: c.Query("sortField"),
		SortOrder: c.Query("sortOrder"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			BadRequest(c, verr.Error())
			return
		}
		h.log.Error("failed to list orders", zap.Error(err))
		InternalError(c, MsgOrderListFailed)
		return
	}

	Success(c, list)
}

// GetOrder godoc
// @Summary 获取订单详情
// @Description 按订单号获取订单，只能访问自己店铺的订单
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "订单号"
// @Success 200 {object} Response{data=domain.Order}
// @Failure 401 {object} Response
// @Failure 404 {object} Response
// @Router /v1/orders/{orderId} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	order, err := h.orderService.GetOrder(userID, c.Param("orderId"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			NotFound(c, MsgOrderNotFound)
			return
		}
		h.log.Error("failed to get order", zap.Error(err))
		InternalError(c, MsgOrderGetFailed)
		return
	}

	Success(c, order)
}

// UpdateOrder godoc
// @Summary 更新订单
// @Description 只有 status 和 shipping.tracking 会被应用，其余字段静默忽略
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "订单号"
// @Param request body domain.UpdateOrderRequest true "更新内容"
// @Success 200 {object} Response{data=domain.Order}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /v1/orders/{orderId} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req domain.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	order, err := h.orderService.UpdateOrder(userID, c.Param("orderId"), &req)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			BadRequest(c, verr.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			NotFound(c, MsgOrderNotFound)
		case errors.Is(err, service.ErrInvalidTransition):
			BadRequest(c, GetErrorMessage(service.ErrInvalidTransition))
		case errors.Is(err, storage.ErrOrderConflict):
			Conflict(c, GetErrorMessage(storage.ErrOrderConflict))
		default:
			h.log.Error("failed to update order", zap.Error(err))
			InternalError(c, MsgOrderUpdateFailed)
		}
		return
	}

	if h.metrics != nil && req.Status != nil && order.Status == domain.StatusCompleted {
		h.metrics.RecordOrderCompleted()
	}

	Success(c, order)
}

// CancelOrder godoc
// @Summary 取消订单
// @Description 删除语义建模为取消：订单迁移到 cancelled，重复取消返回成功
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "订单号"
// @Success 200 {object} Response{data=domain.Order}
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/orders/{orderId} [delete]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	order, err := h.orderService.CancelOrder(userID, c.Param("orderId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			NotFound(c, MsgOrderNotFound)
		case errors.Is(err, storage.ErrOrderConflict):
			Conflict(c, GetErrorMessage(storage.ErrOrderConflict))
		default:
			h.log.Error("failed to cancel order", zap.Error(err))
			InternalError(c, MsgOrderUpdateFailed)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordOrderCancelled()
	}

	SuccessWithMsg(c, MsgOrderCancelled, order)
}
