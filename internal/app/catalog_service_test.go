package app_test

import (
	"context"
	"testing"
	"time"

	"quizrevenue/internal/app"
	"quizrevenue/internal/domain"
	"quizrevenue/internal/infra/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCatalog() (*app.CatalogService, *memory.QuizRepository) {
	store := memory.NewStore()
	cache := memory.NewQuizRepository(store, time.Minute)
	return app.NewCatalogService(store, cache, zap.NewNop()), cache
}

func adminUser(role domain.Role, region string) domain.User {
	return domain.User{ID: uuid.New(), Email: string(role) + "@b.com", FirstName: "Admin", Role: role, Region: region, IsActive: true}
}

func quizRequest(targetState string) app.CreateQuizRequest {
	return app.CreateQuizRequest{
		Title:         "Capitals",
		Difficulty:    "easy",
		EstimatedTime: 5,
		PublishScope:  "state",
		TargetState:   targetState,
		Questions: []app.CreateQuestionRequest{
			{Text: "Capital of France?", Options: []domain.Option{{ID: "a", Text: "Paris"}, {ID: "b", Text: "Rome"}}, CorrectAnswer: "a"},
			{Text: "Capital of Japan?", Options: []domain.Option{{ID: "a", Text: "Tokyo"}, {ID: "b", Text: "Kyoto"}}, CorrectAnswer: "a"},
		},
	}
}

func TestCreateQuizStartsPendingAndHidden(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newCatalog()

	_, err := catalog.CreateQuiz(ctx, adminUser(domain.RoleUser, ""), quizRequest("KA"))
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)

	quiz, err := catalog.CreateQuiz(ctx, adminUser(domain.RoleContentCreator, ""), quizRequest("KA"))
	require.NoError(t, err)
	assert.Equal(t, domain.QuizStatusPending, quiz.Status)
	assert.Equal(t, 2, quiz.TotalQuestions)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, 1, quiz.Questions[0].Position)
	assert.Equal(t, "multiple_choice", quiz.Questions[0].Type)
	assert.Equal(t, 10, quiz.Questions[0].Points)

	_, err = catalog.GetQuiz(ctx, quiz.ID.String())
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)

	published, err := catalog.ListQuizzes(ctx, app.QuizListQuery{})
	require.NoError(t, err)
	assert.Empty(t, published)
}

func TestModerationRespectsRegionalScope(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newCatalog()
	quiz, err := catalog.CreateQuiz(ctx, adminUser(domain.RoleContentCreator, ""), quizRequest("KA"))
	require.NoError(t, err)

	_, err = catalog.ApproveQuiz(ctx, app.Actor{User: adminUser(domain.RoleContentCreator, "")}, quiz.ID.String())
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)

	_, err = catalog.ApproveQuiz(ctx, app.Actor{User: adminUser(domain.RoleStateAdmin, "TN")}, quiz.ID.String())
	assert.ErrorIs(t, err, domain.ErrQuizNotFound, "out-of-scope quizzes look absent")

	scoped, err := catalog.ListAdminQuizzes(ctx, adminUser(domain.RoleStateAdmin, "TN"), app.AdminQuizQuery{})
	require.NoError(t, err)
	assert.Empty(t, scoped)

	approver := adminUser(domain.RoleStateAdmin, "KA")
	approved, err := catalog.ApproveQuiz(ctx, app.Actor{User: approver, Client: app.ClientInfo{IPAddress: "203.0.113.5"}}, quiz.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.QuizStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, approver.ID, *approved.ApprovedBy)

	questions, err := catalog.GetQuestions(ctx, quiz.ID.String())
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Capital of France?", questions[0].Text)
}

func TestRejectRequiresReasonAndIsAudited(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newCatalog()
	super := adminUser(domain.RoleSuperadmin, "")
	quiz, err := catalog.CreateQuiz(ctx, super, quizRequest(""))
	require.NoError(t, err)

	_, err = catalog.RejectQuiz(ctx, app.Actor{User: super}, quiz.ID.String(), app.RejectQuizRequest{})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = catalog.ApproveQuiz(ctx, app.Actor{User: super}, quiz.ID.String())
	require.NoError(t, err)
	rejected, err := catalog.RejectQuiz(ctx, app.Actor{User: super}, quiz.ID.String(), app.RejectQuizRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, domain.QuizStatusRejected, rejected.Status)
	assert.Equal(t, "duplicate", rejected.RejectionReason)

	_, err = catalog.ListAuditLogs(ctx, adminUser(domain.RoleCountryAdmin, "IN"))
	assert.ErrorIs(t, err, domain.ErrInsufficientRole)

	logs, err := catalog.ListAuditLogs(ctx, super)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "REJECT_QUIZ", logs[0].Action)
	assert.Equal(t, "approved", logs[0].OldValues["status"])
	assert.Equal(t, "duplicate", logs[0].NewValues["rejectionReason"])
	assert.Equal(t, "APPROVE_QUIZ", logs[1].Action)
	assert.Equal(t, quiz.ID.String(), logs[1].EntityID)
}

func TestModerationInvalidatesCachedQuiz(t *testing.T) {
	ctx := context.Background()
	catalog, cache := newCatalog()
	super := adminUser(domain.RoleSuperadmin, "")
	quiz, err := catalog.CreateQuiz(ctx, super, quizRequest(""))
	require.NoError(t, err)
	_, err = catalog.ApproveQuiz(ctx, app.Actor{User: super}, quiz.ID.String())
	require.NoError(t, err)

	cached, err := cache.GetQuiz(ctx, quiz.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.QuizStatusApproved, cached.Status)

	_, err = catalog.RejectQuiz(ctx, app.Actor{User: super}, quiz.ID.String(), app.RejectQuizRequest{Reason: "outdated"})
	require.NoError(t, err)

	reloaded, err := cache.GetQuiz(ctx, quiz.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.QuizStatusRejected, reloaded.Status)
}
