package service

import (
	"fmt"

	"storeadmin/backend/internal/domain"
	"storeadmin/backend/internal/storage"
)

// StatsService 仪表盘统计服务
type StatsService struct {
	store storage.StatsRepository
}

// NewStatsService 创建统计服务
func NewStatsService(store storage.StatsRepository) *StatsService {
	return &StatsService{
		store: store,
	}
}

// GetStatistics 获取店主的仪表盘统计
func (s *StatsService) GetStatistics(userID string) (*domain.StoreStatistics, error) {
	stats, err := s.store.GetStoreStatistics(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return stats, nil
}
