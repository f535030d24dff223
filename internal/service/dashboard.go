package service

import (
	"context"

	"github.com/xiaot623/loancourt/internal/domain"
)

// DashboardStats returns the aggregate case counts.
func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.store.CaseStats(ctx)
}
