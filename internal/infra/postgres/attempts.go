package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func (s *Store) CountAttemptsByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	n, err := s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		Where("ip_address = ?", ip).
		Where("completed_at >= ?", since).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count attempts by ip: %w", err)
	}
	return n, nil
}

func (s *Store) AverageTimeSpent(ctx context.Context, userID uuid.UUID) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.db.NewSelect().Model((*domain.QuizAttempt)(nil)).
		ColumnExpr("AVG(time_spent)").
		Where("user_id = ?", userID).
		Scan(ctx, &avg)
	if err != nil {
		return 0, false, fmt.Errorf("average time spent: %w", err)
	}
	return avg.Float64, avg.Valid, nil
}

// CommitAttempt writes the attempt, its split and the counter increments in one transaction.
// Counters are bumped with SET col = col + ? so concurrent submissions never lose an update.
func (s *Store) CommitAttempt(ctx context.Context, entry domain.LedgerEntry) (domain.User, error) {
	var user domain.User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&entry.Attempt).Exec(ctx); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		if entry.Split != nil {
			if _, err := tx.NewInsert().Model(entry.Split).Exec(ctx); err != nil {
				return fmt.Errorf("insert revenue split: %w", err)
			}
		}

		a := entry.Attempt
		if !entry.Credit {
			err := tx.NewSelect().Model(&user).Where("u.id = ?", a.UserID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			return err
		}

		res, err := tx.NewUpdate().Model(&user).
			Set("quizzes_completed = quizzes_completed + 1").
			Set("total_earnings = total_earnings + ?", a.Earnings).
			Set("points = points + ?", a.Score).
			Set("current_streak = current_streak + 1").
			Set("longest_streak = GREATEST(longest_streak, current_streak + 1)").
			Set("updated_at = ?", a.CompletedAt).
			Where("id = ?", a.UserID).
			Returning("*").
			Exec(ctx)
		if notFound(res, err) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("update user counters: %w", err)
		}

		if _, err := tx.NewUpdate().Model((*domain.Quiz)(nil)).
			Set("participant_count = participant_count + 1").
			Set("total_revenue = total_revenue + ?", a.AdRevenue).
			Where("id = ?", a.QuizID).
			Exec(ctx); err != nil {
			return fmt.Errorf("update quiz counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) RecordAssessment(ctx context.Context, a domain.RiskAssessment) error {
	if _, err := s.db.NewInsert().Model(&a).Exec(ctx); err != nil {
		return fmt.Errorf("insert risk assessment: %w", err)
	}
	return nil
}

func (s *Store) ListAssessments(ctx context.Context, limit int) ([]domain.RiskAssessment, error) {
	var out []domain.RiskAssessment
	err := s.db.NewSelect().Model(&out).
		OrderExpr("fdl.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	return out, nil
}
