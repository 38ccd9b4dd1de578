package app

import (
	"context"
	"errors"
	"time"

	"quizrevenue/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuizListQuery are the public catalog filters.
type QuizListQuery struct {
	CategoryID string `query:"category" json:"category" validate:"omitempty,uuid"`
	Difficulty string `query:"difficulty" json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Region     string `query:"region" json:"region"`
}

// AdminQuizQuery are the moderation listing filters.
type AdminQuizQuery struct {
	Status     string `query:"status" json:"status" validate:"omitempty,oneof=draft pending approved rejected archived"`
	CategoryID string `query:"category" json:"category" validate:"omitempty,uuid"`
	CreatorID  string `query:"creator" json:"creator" validate:"omitempty,uuid"`
}

// CreateQuizRequest submits a quiz for moderation.
type CreateQuizRequest struct {
	Title         string                  `json:"title" validate:"required,max=255"`
	Description   string                  `json:"description"`
	CategoryID    string                  `json:"categoryId" validate:"omitempty,uuid"`
	Difficulty    string                  `json:"difficulty" validate:"required,oneof=easy medium hard"`
	EstimatedTime int                     `json:"estimatedTime" validate:"min=1"`
	PublishScope  string                  `json:"publishScope" validate:"omitempty,oneof=global country state"`
	TargetRegion  string                  `json:"targetRegion"`
	TargetCountry string                  `json:"targetCountry"`
	TargetState   string                  `json:"targetState"`
	Questions     []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	Text          string          `json:"questionText" validate:"required"`
	Type          string          `json:"questionType" validate:"omitempty,oneof=multiple_choice true_false"`
	Options       []domain.Option `json:"options" validate:"required,min=2"`
	CorrectAnswer string          `json:"correctAnswer" validate:"required"`
	Explanation   string          `json:"explanation"`
	Points        int             `json:"points" validate:"min=0"`
	TimeLimit     int             `json:"timeLimit" validate:"min=0"`
}

// RejectQuizRequest carries the moderator's reason.
type RejectQuizRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Actor is the admin performing a mutation, with request metadata for the audit trail.
type Actor struct {
	User   domain.User
	Client ClientInfo
}

// CatalogService serves quiz browsing and moderation.
type CatalogService struct {
	repo     CatalogRepository
	cache    QuizRepository
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewCatalogService(repo CatalogRepository, cache QuizRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, cache: cache, logger: logger, validate: newValidator(), now: time.Now}
}

// ListQuizzes returns approved, active quizzes.
func (s *CatalogService) ListQuizzes(ctx context.Context, q QuizListQuery) ([]domain.Quiz, error) {
	if err := validateRequest(s.validate, "Invalid filter", q); err != nil {
		return nil, err
	}
	filter := domain.QuizFilter{
		Status:     domain.QuizStatusApproved,
		Difficulty: q.Difficulty,
		Region:     q.Region,
		ActiveOnly: true,
		CategoryID: optionalUUID(q.CategoryID),
	}
	quizzes, err := s.repo.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch quizzes", err)
	}
	return quizzes, nil
}

// GetQuiz returns a published quiz without its questions.
func (s *CatalogService) GetQuiz(ctx context.Context, rawID string) (domain.Quiz, error) {
	quiz, err := s.find(ctx, rawID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status != domain.QuizStatusApproved || !quiz.IsActive {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

// GetQuestions returns a published quiz's questions in order. Correct answers are never serialized.
func (s *CatalogService) GetQuestions(ctx context.Context, rawID string) ([]domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, rawID)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch questions", err)
	}
	return questions, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch categories", err)
	}
	return categories, nil
}

// ListAdminQuizzes applies the admin's regional scope on top of the filters.
func (s *CatalogService) ListAdminQuizzes(ctx context.Context, admin domain.User, q AdminQuizQuery) ([]domain.Quiz, error) {
	if !domain.Can(admin.Role, domain.CapViewAdminQuizzes) {
		return nil, domain.ErrInsufficientRole
	}
	if err := validateRequest(s.validate, "Invalid filter", q); err != nil {
		return nil, err
	}
	scope := domain.ScopeFor(admin)
	filter := domain.QuizFilter{
		Status:        domain.QuizStatus(q.Status),
		CategoryID:    optionalUUID(q.CategoryID),
		CreatorID:     optionalUUID(q.CreatorID),
		TargetState:   scope.TargetState,
		TargetCountry: scope.TargetCountry,
	}
	quizzes, err := s.repo.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch quizzes", err)
	}
	return quizzes, nil
}

// CreateQuiz stores a quiz in pending state with its questions.
func (s *CatalogService) CreateQuiz(ctx context.Context, creator domain.User, req CreateQuizRequest) (domain.Quiz, error) {
	if !domain.Can(creator.Role, domain.CapCreateQuizzes) {
		return domain.Quiz{}, domain.ErrInsufficientRole
	}
	if err := validateRequest(s.validate, "Invalid quiz", req); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	scope := req.PublishScope
	if scope == "" {
		scope = string(domain.ScopeGlobal)
	}
	quiz := domain.Quiz{
		ID:             uuid.New(),
		Title:          req.Title,
		Description:    req.Description,
		CategoryID:     optionalUUID(req.CategoryID),
		CreatorID:      &creator.ID,
		Difficulty:     req.Difficulty,
		EstimatedTime:  req.EstimatedTime,
		TotalQuestions: len(req.Questions),
		Status:         domain.QuizStatusPending,
		PublishScope:   scope,
		TargetRegion:   req.TargetRegion,
		TargetCountry:  req.TargetCountry,
		TargetState:    req.TargetState,
		IsActive:       true,
		TotalRevenue:   decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i, qr := range req.Questions {
		qType := qr.Type
		if qType == "" {
			qType = "multiple_choice"
		}
		points := qr.Points
		if points == 0 {
			points = 10
		}
		limit := qr.TimeLimit
		if limit == 0 {
			limit = 30
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:            uuid.New(),
			QuizID:        quiz.ID,
			Text:          qr.Text,
			Type:          qType,
			Options:       qr.Options,
			CorrectAnswer: qr.CorrectAnswer,
			Explanation:   qr.Explanation,
			Points:        points,
			TimeLimit:     limit,
			Position:      i + 1,
			CreatedAt:     now,
		})
	}
	if err := s.repo.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, domain.Dependency("Failed to create quiz", err)
	}
	s.logger.Info("quiz created", zap.String("quiz_id", quiz.ID.String()), zap.String("creator_id", creator.ID.String()))
	return quiz, nil
}

// ApproveQuiz publishes a quiz and records the audit entry.
func (s *CatalogService) ApproveQuiz(ctx context.Context, actor Actor, rawID string) (domain.Quiz, error) {
	return s.moderate(ctx, actor, rawID, domain.QuizStatusApproved, "")
}

// RejectQuiz rejects a quiz with a reason and records the audit entry.
func (s *CatalogService) RejectQuiz(ctx context.Context, actor Actor, rawID string, req RejectQuizRequest) (domain.Quiz, error) {
	if err := validateRequest(s.validate, "Invalid rejection", req); err != nil {
		return domain.Quiz{}, err
	}
	return s.moderate(ctx, actor, rawID, domain.QuizStatusRejected, req.Reason)
}

func (s *CatalogService) moderate(ctx context.Context, actor Actor, rawID string, status domain.QuizStatus, reason string) (domain.Quiz, error) {
	if !domain.Can(actor.User.Role, domain.CapModerateQuizzes) {
		return domain.Quiz{}, domain.ErrInsufficientRole
	}
	current, err := s.find(ctx, rawID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !domain.ScopeFor(actor.User).Allows(current) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	now := s.now()
	action := "APPROVE_QUIZ"
	newValues := map[string]any{"status": string(status)}
	if status == domain.QuizStatusRejected {
		action = "REJECT_QUIZ"
		newValues["rejectionReason"] = reason
	}
	audit := domain.AuditLog{
		ID:         uuid.New(),
		UserID:     actor.User.ID,
		Action:     action,
		EntityType: "quiz",
		EntityID:   current.ID.String(),
		OldValues:  map[string]any{"status": string(current.Status)},
		NewValues:  newValues,
		IPAddress:  actor.Client.IPAddress,
		UserAgent:  actor.Client.UserAgent,
		CreatedAt:  now,
	}
	updated, err := s.repo.ModerateQuiz(ctx, domain.Moderation{
		QuizID:          current.ID,
		Status:          status,
		ActorID:         actor.User.ID,
		RejectionReason: reason,
		At:              now,
	}, audit)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.Dependency("Failed to update quiz", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, current.ID.String()); err != nil {
			s.logger.Warn("quiz cache invalidation failed", zap.String("quiz_id", current.ID.String()), zap.Error(err))
		}
	}
	s.logger.Info("quiz moderated",
		zap.String("quiz_id", current.ID.String()),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.User.ID.String()),
	)
	return updated, nil
}

// ListAuditLogs returns the latest administrative mutations.
func (s *CatalogService) ListAuditLogs(ctx context.Context, viewer domain.User) ([]domain.AuditLog, error) {
	if !domain.Can(viewer.Role, domain.CapViewAuditLogs) {
		return nil, domain.ErrInsufficientRole
	}
	logs, err := s.repo.ListAuditLogs(ctx, adminListLimit)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch audit logs", err)
	}
	return logs, nil
}

func (s *CatalogService) find(ctx context.Context, rawID string) (domain.Quiz, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz, err := s.repo.FindQuiz(ctx, id)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.Dependency("Failed to fetch quiz", err)
	}
	return quiz, nil
}

func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
