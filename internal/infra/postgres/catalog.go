package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func (s *Store) ListQuizzes(ctx context.Context, f domain.QuizFilter) ([]domain.Quiz, error) {
	var out []domain.Quiz
	q := s.db.NewSelect().Model(&out)
	if f.Status != "" {
		q = q.Where("q.status = ?", f.Status)
	}
	if f.ActiveOnly {
		q = q.Where("q.is_active = TRUE")
	}
	if f.CategoryID != nil {
		q = q.Where("q.category_id = ?", *f.CategoryID)
	}
	if f.CreatorID != nil {
		q = q.Where("q.creator_id = ?", *f.CreatorID)
	}
	if f.Difficulty != "" {
		q = q.Where("q.difficulty = ?", f.Difficulty)
	}
	if f.TargetState != "" {
		q = q.Where("q.target_state = ?", f.TargetState)
	}
	if f.TargetCountry != "" {
		q = q.Where("q.target_country = ?", f.TargetCountry)
	}
	if f.Region != "" {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("q.publish_scope = ?", domain.ScopeGlobal).
				WhereOr("q.target_region = ?", f.Region).
				WhereOr("q.target_country = ?", f.Region).
				WhereOr("q.target_state = ?", f.Region)
		})
	}
	if err := q.OrderExpr("q.created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}

func (s *Store) FindQuiz(ctx context.Context, id uuid.UUID) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.db.NewSelect().Model(&quiz).Where("q.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]domain.Question, error) {
	var out []domain.Question
	err := s.db.NewSelect().Model(&out).
		Where("qn.quiz_id = ?", quizID).
		OrderExpr("qn.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := s.db.NewSelect().Model(&out).
		Where("c.is_active = TRUE").
		OrderExpr("c.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(quiz).Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		if len(quiz.Questions) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&quiz.Questions).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

// ModerateQuiz updates the status and appends the audit row in the same transaction.
func (s *Store) ModerateQuiz(ctx context.Context, m domain.Moderation, audit domain.AuditLog) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().Model(&quiz).
			Set("status = ?", m.Status).
			Set("updated_at = ?", m.At).
			Where("id = ?", m.QuizID).
			Returning("*")
		switch m.Status {
		case domain.QuizStatusApproved:
			q = q.Set("approved_by = ?", m.ActorID).
				Set("approved_at = ?", m.At).
				Set("rejection_reason = NULL")
		case domain.QuizStatusRejected:
			q = q.Set("rejection_reason = ?", m.RejectionReason)
		}
		res, err := q.Exec(ctx)
		if notFound(res, err) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("update quiz status: %w", err)
		}
		if _, err := tx.NewInsert().Model(&audit).Exec(ctx); err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := s.db.NewSelect().Model(&out).
		OrderExpr("al.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return out, nil
}
