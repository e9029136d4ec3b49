package domain

// StoreStatistics 仪表盘统计数据，按店主聚合
type StoreStatistics struct {
	TotalOrders      int     `json:"totalOrders"`
	ProcessingOrders int     `json:"processingOrders"`
	CompletedOrders  int     `json:"completedOrders"`
	CancelledOrders  int     `json:"cancelledOrders"`
	TotalRevenue     float64 `json:"totalRevenue"` // 非取消订单的总额
	TotalProducts    int     `json:"totalProducts"`
	ActiveAPIKeys    int     `json:"activeApiKeys"`
}
