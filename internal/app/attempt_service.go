package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizrevenue/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubmitAttemptRequest is the attempt payload sent by the client.
type SubmitAttemptRequest struct {
	QuizID         string        `json:"quizId" validate:"required,uuid"`
	Score          int           `json:"score" validate:"min=0,max=100"`
	TotalQuestions int           `json:"totalQuestions" validate:"min=1"`
	CorrectAnswers int           `json:"correctAnswers" validate:"min=0,ltefield=TotalQuestions"`
	TimeSpent      int           `json:"timeSpent" validate:"min=1"`
	Answers        []AnswerInput `json:"answers" validate:"dive"`
}

// AnswerInput is one answered question inside a submission.
type AnswerInput struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	Answer     string `json:"answer"`
	TimeSpent  int    `json:"timeSpent" validate:"min=0"`
}

// ClientInfo is the request metadata the risk evaluator and login audit use.
type ClientInfo struct {
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
}

// Fingerprint falls back to the user agent when the client sent no explicit fingerprint.
func (c ClientInfo) Fingerprint() string {
	if c.DeviceFingerprint != "" {
		return c.DeviceFingerprint
	}
	return c.UserAgent
}

// SubmitResult is returned to the client after a submission is committed.
type SubmitResult struct {
	Attempt     domain.QuizAttempt `json:"attempt"`
	Earnings    decimal.Decimal    `json:"earnings"`
	PlatformFee decimal.Decimal    `json:"platformFee"`
	RiskScore   int                `json:"riskScore"`
	Action      domain.RiskAction  `json:"action"`
}

// AttemptOptions carries policy knobs for the pipeline.
type AttemptOptions struct {
	// PayBlocked allocates revenue to attempts the risk evaluator blocked.
	PayBlocked bool
}

// AttemptService runs ingestion, risk, revenue and ledger for each submission.
type AttemptService struct {
	quizzes  QuizRepository
	risk     *RiskEvaluator
	revenue  *RevenueAllocator
	ledger   Ledger
	boards   *LeaderboardService
	metrics  *Metrics
	logger   *zap.Logger
	opts     AttemptOptions
	validate *validator.Validate
	now      func() time.Time
}

func NewAttemptService(quizzes QuizRepository, risk *RiskEvaluator, revenue *RevenueAllocator, ledger Ledger, boards *LeaderboardService, metrics *Metrics, logger *zap.Logger, opts AttemptOptions) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		risk:     risk,
		revenue:  revenue,
		ledger:   ledger,
		boards:   boards,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Submit scores and commits one attempt for user. Any stage failure aborts the rest.
func (s *AttemptService) Submit(ctx context.Context, user domain.User, req SubmitAttemptRequest, client ClientInfo) (SubmitResult, error) {
	started := time.Now()

	if err := validateRequest(s.validate, "Invalid attempt", req); err != nil {
		return SubmitResult{}, err
	}
	quiz, err := s.loadQuiz(ctx, req.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	answers, err := answersFor(quiz, req.Answers)
	if err != nil {
		return SubmitResult{}, err
	}

	attemptID := uuid.New()
	assessment, err := s.risk.Assess(ctx, RiskInput{
		UserID:            user.ID,
		AttemptID:         attemptID,
		IPAddress:         client.IPAddress,
		DeviceFingerprint: client.Fingerprint(),
		UserAgent:         client.UserAgent,
		TimeSpent:         req.TimeSpent,
		Score:             req.Score,
	})
	if err != nil {
		s.logger.Error("risk assessment failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return SubmitResult{}, err
	}

	valid := !assessment.IsBlocked
	now := s.now()
	attempt := domain.QuizAttempt{
		ID:                attemptID,
		UserID:            user.ID,
		QuizID:            quiz.ID,
		Score:             req.Score,
		TotalQuestions:    req.TotalQuestions,
		CorrectAnswers:    req.CorrectAnswers,
		TimeSpent:         req.TimeSpent,
		Answers:           answers,
		CompletedAt:       now,
		Earnings:          decimal.Zero,
		AdRevenue:         decimal.Zero,
		DeviceFingerprint: client.Fingerprint(),
		IPAddress:         client.IPAddress,
		IsValid:           valid,
	}
	entry := domain.LedgerEntry{Attempt: attempt}

	var revenue domain.Revenue
	if valid || s.opts.PayBlocked {
		revenue = s.revenue.Allocate()
		entry.Attempt.AdRevenue = revenue.AdRevenue
		entry.Attempt.Earnings = revenue.UserEarnings
		entry.Attempt.AdViews = 1
		entry.Split = &domain.RevenueSplit{
			ID:              uuid.New(),
			UserID:          user.ID,
			QuizAttemptID:   attemptID,
			TotalRevenue:    revenue.AdRevenue,
			UserShare:       revenue.UserEarnings,
			PlatformShare:   revenue.PlatformFee,
			SharePercentage: revenue.UserShare.Mul(decimal.NewFromInt(100)),
			CalculatedAt:    now,
			ProcessedAt:     &now,
			Status:          domain.RevenueSplitProcessed,
		}
		entry.Credit = true
	}

	updated, err := s.ledger.CommitAttempt(ctx, entry)
	if err != nil {
		s.logger.Error("ledger commit failed", zap.String("attempt_id", attemptID.String()), zap.Error(err))
		return SubmitResult{}, domain.Dependency("Failed to submit quiz", err)
	}
	if entry.Credit && s.boards != nil {
		s.boards.Record(updated)
	}

	s.metrics.observeAttempt(string(assessment.Action), started)
	if assessment.Action != domain.RiskActionNone {
		s.logger.Warn("risky attempt",
			zap.String("attempt_id", attemptID.String()),
			zap.String("user_id", user.ID.String()),
			zap.Int("risk_score", assessment.RiskScore),
			zap.String("action", string(assessment.Action)),
		)
	}

	return SubmitResult{
		Attempt:     entry.Attempt,
		Earnings:    revenue.UserEarnings,
		PlatformFee: revenue.PlatformFee,
		RiskScore:   assessment.RiskScore,
		Action:      assessment.Action,
	}, nil
}

func (s *AttemptService) loadQuiz(ctx context.Context, rawID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, rawID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.Dependency("Failed to load quiz", err)
	}
	if quiz.Status != domain.QuizStatusApproved || !quiz.IsActive {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

// answersFor rejects answers to questions outside the quiz.
func answersFor(quiz domain.Quiz, in []AnswerInput) ([]domain.AnswerSubmission, error) {
	out := make([]domain.AnswerSubmission, 0, len(in))
	var fields map[string]string
	for i, a := range in {
		id := uuid.MustParse(a.QuestionID)
		if !quiz.HasQuestion(id) {
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[fmt.Sprintf("answers[%d].questionId", i)] = "is not part of this quiz"
			continue
		}
		out = append(out, domain.AnswerSubmission{QuestionID: id, Answer: a.Answer, TimeSpent: a.TimeSpent})
	}
	if fields != nil {
		return nil, domain.Validation("Invalid attempt", fields)
	}
	return out, nil
}
