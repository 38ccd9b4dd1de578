package app

import (
	"context"
	"time"

	"quizrevenue/internal/domain"
)

const (
	adminListLimit     = 100
	recentActivityRows = 10
	statsWindow        = 30 * 24 * time.Hour
)

// DashboardService serves user dashboards and superadmin analytics.
type DashboardService struct {
	repo DashboardRepository
	risk RiskLog
	now  func() time.Time
}

func NewDashboardService(repo DashboardRepository, risk RiskLog) *DashboardService {
	return &DashboardService{repo: repo, risk: risk, now: time.Now}
}

func (s *DashboardService) Stats(ctx context.Context, user domain.User) (domain.DashboardStats, error) {
	recent, err := s.repo.CountAttemptsSince(ctx, user.ID, s.now().Add(-statsWindow))
	if err != nil {
		return domain.DashboardStats{}, domain.Dependency("Failed to fetch stats", err)
	}
	return domain.DashboardStats{
		TotalEarnings:    user.TotalEarnings,
		QuizzesCompleted: user.QuizzesCompleted,
		CurrentStreak:    user.CurrentStreak,
		Points:           user.Points,
		RecentQuizzes:    recent,
	}, nil
}

func (s *DashboardService) RecentActivity(ctx context.Context, user domain.User) ([]domain.AttemptActivity, error) {
	rows, err := s.repo.RecentAttempts(ctx, user.ID, recentActivityRows)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch activity", err)
	}
	return rows, nil
}

func (s *DashboardService) Earnings(ctx context.Context, user domain.User) (domain.EarningsSummary, error) {
	summary, err := s.repo.EarningsSummary(ctx, user.ID)
	if err != nil {
		return domain.EarningsSummary{}, domain.Dependency("Failed to fetch earnings", err)
	}
	return summary, nil
}

func (s *DashboardService) Analytics(ctx context.Context, viewer domain.User) (domain.PlatformAnalytics, error) {
	if !domain.Can(viewer.Role, domain.CapViewGlobalAnalytics) {
		return domain.PlatformAnalytics{}, domain.ErrInsufficientRole
	}
	a, err := s.repo.PlatformAnalytics(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return domain.PlatformAnalytics{}, domain.Dependency("Failed to fetch analytics", err)
	}
	return a, nil
}

func (s *DashboardService) RevenueAnalytics(ctx context.Context, viewer domain.User) ([]domain.RevenueDay, error) {
	if !domain.Can(viewer.Role, domain.CapViewGlobalAnalytics) {
		return nil, domain.ErrInsufficientRole
	}
	days, err := s.repo.RevenueByDay(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return nil, domain.Dependency("Failed to fetch revenue analytics", err)
	}
	return days, nil
}

// FraudLogs returns the latest risk assessments.
func (s *DashboardService) FraudLogs(ctx context.Context, viewer domain.User) ([]domain.RiskAssessment, error) {
	if !domain.Can(viewer.Role, domain.CapViewFraudLogs) {
		return nil, domain.ErrInsufficientRole
	}
	logs, err := s.risk.ListAssessments(ctx, adminListLimit)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch fraud logs", err)
	}
	return logs, nil
}
