package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads a quiz and its ordered questions for the read cache.
// Correct answers are not selected; the attempt path never needs them.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	id, err := uuid.Parse(quizID)
	if err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	quiz := domain.Quiz{ID: id}
	err = l.pool.QueryRow(ctx, `
		SELECT title, difficulty, status, is_active, publish_scope, total_questions,
		       COALESCE(target_country, ''), COALESCE(target_state, '')
		FROM quizzes WHERE id = $1::uuid`, quizID).
		Scan(&quiz.Title, &quiz.Difficulty, &quiz.Status, &quiz.IsActive, &quiz.PublishScope,
			&quiz.TotalQuestions, &quiz.TargetCountry, &quiz.TargetState)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id::text, question_text, question_type, options, points, time_limit, position
		FROM questions WHERE quiz_id = $1::uuid ORDER BY position`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawID   string
			options []byte
			q       = domain.Question{QuizID: id}
		)
		if err := rows.Scan(&rawID, &q.Text, &q.Type, &options, &q.Points, &q.TimeLimit, &q.Position); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		if q.ID, err = uuid.Parse(rawID); err != nil {
			return domain.Quiz{}, fmt.Errorf("parse question id: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.Quiz{}, fmt.Errorf("unmarshal options: %w", err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}
