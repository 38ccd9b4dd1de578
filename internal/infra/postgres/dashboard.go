package postgres

import (
	"context"
	"fmt"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Store) CountAttemptsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	n, err := s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		Where("user_id = ?", userID).
		Where("completed_at >= ?", since).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count recent attempts: %w", err)
	}
	return n, nil
}

func (s *Store) RecentAttempts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AttemptActivity, error) {
	var out []domain.AttemptActivity
	err := s.db.NewSelect().
		TableExpr("quiz_attempts AS qa").
		ColumnExpr("qa.id, qa.score, qa.earnings, qa.completed_at").
		ColumnExpr("q.title AS quiz_title").
		Join("JOIN quizzes AS q ON q.id = qa.quiz_id").
		Where("qa.user_id = ?", userID).
		OrderExpr("qa.completed_at DESC").
		Limit(limit).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	return out, nil
}

func (s *Store) EarningsSummary(ctx context.Context, userID uuid.UUID) (domain.EarningsSummary, error) {
	var agg struct {
		Total decimal.Decimal `bun:"total"`
		Count int             `bun:"count"`
		Avg   decimal.Decimal `bun:"avg"`
	}
	err := s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		ColumnExpr("COALESCE(SUM(earnings), 0) AS total").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(ROUND(AVG(earnings), 2), 0) AS avg").
		Where("user_id = ?", userID).
		Scan(ctx, &agg)
	if err != nil {
		return domain.EarningsSummary{}, fmt.Errorf("earnings totals: %w", err)
	}

	var monthly []domain.PeriodAmount
	err = s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		ColumnExpr("date_trunc('month', completed_at) AS period").
		ColumnExpr("SUM(earnings) AS amount").
		Where("user_id = ?", userID).
		GroupExpr("period").
		OrderExpr("period DESC").
		Limit(12).
		Scan(ctx, &monthly)
	if err != nil {
		return domain.EarningsSummary{}, fmt.Errorf("monthly earnings: %w", err)
	}

	return domain.EarningsSummary{
		Total:        agg.Total,
		TotalQuizzes: agg.Count,
		Average:      agg.Avg,
		Monthly:      monthly,
	}, nil
}

func (s *Store) PlatformAnalytics(ctx context.Context, activeSince time.Time) (domain.PlatformAnalytics, error) {
	var a domain.PlatformAnalytics

	users, err := s.db.NewSelect().Model((*domain.User)(nil)).Count(ctx)
	if err != nil {
		return a, fmt.Errorf("count users: %w", err)
	}
	quizzes, err := s.db.NewSelect().Model((*domain.Quiz)(nil)).
		Where("status = ?", domain.QuizStatusApproved).
		Count(ctx)
	if err != nil {
		return a, fmt.Errorf("count quizzes: %w", err)
	}

	var agg struct {
		Revenue decimal.Decimal `bun:"revenue"`
		Active  int             `bun:"active"`
	}
	err = s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		ColumnExpr("COALESCE(SUM(ad_revenue), 0) AS revenue").
		ColumnExpr("COUNT(DISTINCT user_id) FILTER (WHERE completed_at >= ?) AS active", activeSince).
		Scan(ctx, &agg)
	if err != nil {
		return a, fmt.Errorf("attempt totals: %w", err)
	}

	a.TotalUsers = users
	a.TotalQuizzes = quizzes
	a.TotalRevenue = agg.Revenue
	a.ActiveUsers = agg.Active
	return a, nil
}

func (s *Store) RevenueByDay(ctx context.Context, since time.Time) ([]domain.RevenueDay, error) {
	var out []domain.RevenueDay
	err := s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		ColumnExpr("date_trunc('day', completed_at) AS date").
		ColumnExpr("SUM(ad_revenue) AS revenue").
		ColumnExpr("SUM(earnings) AS user_earnings").
		Where("completed_at >= ?", since).
		GroupExpr("date").
		OrderExpr("date ASC").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}
	return out, nil
}
