package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storeadmin/backend/internal/middleware"
	"storeadmin/backend/internal/service"
)

// StatsHandler 仪表盘统计处理器
type StatsHandler struct {
	statsService *service.StatsService
	log          *zap.Logger
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(statsService *service.StatsService, log *zap.Logger) *StatsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsHandler{
		statsService: statsService,
		log:          log,
	}
}

// GetStatistics godoc
// @Summary 获取仪表盘统计
// @Description 按店主聚合订单、商品与API密钥统计
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=domain.StoreStatistics}
// @Failure 401 {object} Response
// @Failure 500 {object} Response
// @Router /v1/stats [get]
func (h *StatsHandler) GetStatistics(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	stats, err := h.statsService.GetStatistics(userID)
	if err != nil {
		h.log.Error("failed to get statistics", zap.Error(err))
		InternalError(c, MsgStatisticsGetFailed)
		return
	}

	Success(c, stats)
}
