package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quizrevenue/internal/app"
	"quizrevenue/internal/domain"
	"quizrevenue/internal/infra/memory"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string, purpose domain.OtpPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email+"/"+string(purpose)] = code
	return nil
}

func (m *captureMailer) code(email string, purpose domain.OtpPurpose) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email+"/"+string(purpose)]
}

type harness struct {
	e           *echo.Echo
	store       *memory.Store
	sessions    *memory.SessionStore
	mailer      *captureMailer
	leaderboard *app.LeaderboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	sessions := memory.NewSessionStore(time.Hour)
	mailer := &captureMailer{codes: make(map[string]string)}

	quizzes := memory.NewQuizRepository(store, time.Minute)
	otp := app.NewOtpService(store, mailer, 10*time.Minute, nil, logger)
	revenue, err := app.NewRevenueAllocator(app.DefaultRevenueConfig())
	if err != nil {
		t.Fatalf("revenue allocator: %v", err)
	}
	leaderboard := app.NewLeaderboardService(memory.NewBoardStore(), store, logger)

	svc := Services{
		Auth:        app.NewAuthService(store, otp, sessions, nil, logger),
		Attempts:    app.NewAttemptService(quizzes, app.NewRiskEvaluator(store, store, true), revenue, store, leaderboard, nil, logger, app.AttemptOptions{}),
		Catalog:     app.NewCatalogService(store, quizzes, logger),
		Dashboard:   app.NewDashboardService(store, store),
		Leaderboard: leaderboard,
	}
	return &harness{
		e:           NewRouter(svc, Options{}, logger),
		store:       store,
		sessions:    sessions,
		mailer:      mailer,
		leaderboard: leaderboard,
	}
}

// seedUser stores a verified account and opens a session for it.
func (h *harness) seedUser(t *testing.T, email string, role domain.Role, region string) (domain.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now()
	user := domain.User{
		ID:              uuid.New(),
		Email:           email,
		PasswordHash:    string(hash),
		FirstName:       "Test",
		LastName:        string(role),
		Role:            role,
		Region:          region,
		Country:         "IN",
		IsEmailVerified: true,
		IsActive:        true,
		TotalEarnings:   decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.store.CreateUser(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := uuid.NewString()
	if err := h.sessions.Save(context.Background(), token, user.ID); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return user, token
}

func (h *harness) seedQuiz(t *testing.T, status domain.QuizStatus, state string) domain.Quiz {
	t.Helper()
	now := time.Now()
	quiz := domain.Quiz{
		ID:             uuid.New(),
		Title:          "Capitals",
		Difficulty:     "easy",
		EstimatedTime:  5,
		TotalQuestions: 2,
		Status:         status,
		PublishScope:   string(domain.ScopeGlobal),
		TargetState:    state,
		IsActive:       true,
		TotalRevenue:   decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i, text := range []string{"Capital of France?", "Capital of Japan?"} {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:            uuid.New(),
			QuizID:        quiz.ID,
			Text:          text,
			Type:          "multiple_choice",
			Options:       []domain.Option{{ID: "a", Text: "Paris"}, {ID: "b", Text: "Tokyo"}},
			CorrectAnswer: "a",
			Points:        10,
			TimeLimit:     30,
			Position:      i + 1,
			CreatedAt:     now,
		})
	}
	if err := h.store.CreateQuiz(context.Background(), &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "handler-test")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "quizrevenue_session", Value: token})
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "quizrevenue_session" {
			return c.Value
		}
	}
	return ""
}
