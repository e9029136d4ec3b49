package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
)

var (
	// ErrOrderNotFound 订单不存在（或不属于当前店主）
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition 订单状态迁移不被状态机允许
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// EventPublisher 订单事件发布接口，由 websocket hub 实现
//
// 发布是尽力而为的：订阅端不在线或投递失败不影响订单操作结果。
type EventPublisher interface {
	PublishOrderEvent(userID string, event string, order *domain.Order)
}

// OrderService 订单业务逻辑服务
type OrderService struct {
	store     storage.OrderRepository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService 创建订单服务
func NewOrderService(store storage.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:  store,
		logger: logger,
	}
}

// SetEventPublisher 设置订单事件发布器（可选）
func (s *OrderService) SetEventPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// CreateOrder 创建订单
//
// 总额由服务端根据商品行重新计算；订单归属取自认证身份而非请求体。
// 新订单总是从 processing 状态开始。
func (s *OrderService) CreateOrder(userID string, req *domain.CreateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:      uuid.New().String(),
		OrderID: domain.NewOrderID(),
		Customer: domain.Customer{
			Name:   req.Customer.Name,
			Email:  req.Customer.Email,
			UserID: userID,
		},
		Items:     req.Items,
		Amount:    domain.ComputeAmount(req.Items),
		Status:    domain.StatusProcessing,
		Shipping:  *req.Shipping,
		Payment:   *req.Payment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveOrder(order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", userID),
		zap.Float64("amount", order.Amount))

	s.publish(userID, "order_created", order)
	return order, nil
}

// GetOrder 获取订单详情，只能看到自己的订单
func (s *OrderService) GetOrder(userID, orderID string) (*domain.Order, error) {
	order, err := s.store.GetOrder(userID, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// OrderList 订单列表查询结果
type OrderList struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// ListOrders 分页查询店主订单
func (s *OrderService) ListOrders(query storage.OrderQuery) (*OrderList, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Status != "" && !query.Status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of processing, completed, cancelled")
	}

	orders, total, err := s.store.ListOrders(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &OrderList{
		Orders: orders,
		Total:  total,
		Page:   query.Page,
		Limit:  query.Limit,
	}, nil
}

// UpdateOrder 更新订单
//
// 只应用 status 和 shipping.tracking，其余字段静默忽略。状态变更
// 必须经过状态机检查，写入为匹配当前状态的条件更新；并发修改导致
// 条件落空时返回 ErrOrderConflict，由调用方决定重读或重试。
func (s *OrderService) UpdateOrder(userID, orderID string, req *domain.UpdateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.store.GetOrder(userID, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	patch := storage.OrderPatch{}
	if req.Status != nil && *req.Status != current.Status {
		if !current.Status.CanTransitionTo(*req.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, *req.Status)
		}
		patch.Status = req.Status
	}
	if req.Shipping != nil && req.Shipping.Tracking != nil {
		patch.Tracking = req.Shipping.Tracking
	}
	if patch.Status == nil && patch.Tracking == nil {
		// 没有可应用的变更，返回当前订单
		return current, nil
	}

	updated, err := s.store.UpdateOrderConditional(userID, orderID, current.Status, patch)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, storage.ErrOrderConflict):
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if patch.Status != nil {
		s.logger.Info("order status changed",
			zap.String("order_id", orderID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(*patch.Status)))
		s.publish(userID, "order_status", updated)
	}
	return updated, nil
}

// CancelOrder 取消订单
//
// 删除语义建模为取消：已取消的订单再次取消是成功的空操作。
// 条件更新因并发落空时重读一次，若此时已是 cancelled 同样视为成功。
func (s *OrderService) CancelOrder(userID, orderID string) (*domain.Order, error) {
	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.store.GetOrder(userID, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		if current.Status == domain.StatusCancelled {
			return current, nil
		}

		status := domain.StatusCancelled
		updated, err := s.store.UpdateOrderConditional(userID, orderID, current.Status,
			storage.OrderPatch{Status: &status})
		if err == nil {
			s.logger.Info("order cancelled",
				zap.String("order_id", orderID),
				zap.String("user_id", userID))
			s.publish(userID, "order_cancelled", updated)
			return updated, nil
		}
		if errors.Is(err, storage.ErrOrderConflict) {
			// 状态刚被并发修改，重读后再试
			continue
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil, storage.ErrOrderConflict
}

func (s *OrderService) publish(userID, event string, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishOrderEvent(userID, event, order)
}
