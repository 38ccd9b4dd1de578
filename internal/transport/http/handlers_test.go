package http

import (
	"context"
	"net/http"
	"testing"

	"quizrevenue/internal/domain"
)

func TestRegisterVerifyAndCurrentUser(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": "Alice@Example.com", "password": "password123", "firstName": "Alice", "lastName": "Smith",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	code := h.mailer.code("alice@example.com", domain.OtpPurposeRegistration)
	if len(code) != 6 {
		t.Fatalf("expected a mailed 6-digit code, got %q", code)
	}

	rec = h.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]any{"email": "alice@example.com", "otp": code}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	token := sessionCookie(rec)
	if token == "" {
		t.Fatalf("expected session cookie after verification")
	}

	rec = h.do(t, http.MethodGet, "/api/user", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("current user: expected 200, got %d", rec.Code)
	}
	user := decode[map[string]any](t, rec)
	if user["email"] != "alice@example.com" || user["isEmailVerified"] != true {
		t.Fatalf("unexpected user payload: %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}

	rec = h.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]any{"email": "alice@example.com", "otp": code}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reused code: expected 400, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "Invalid or expired OTP" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{"email": "a@b.com", "password": "password123", "firstName": "A", "lastName": "B"}

	if rec := h.do(t, http.MethodPost, "/api/auth/register", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("first register: %d %s", rec.Code, rec.Body)
	}
	rec := h.do(t, http.MethodPost, "/api/auth/register", body, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "Email already registered" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRegisterValidationFields(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": "nope", "password": "short"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[errorResponse](t, rec)
	for _, field := range []string{"email", "password", "firstName", "lastName"} {
		if _, ok := body.Fields[field]; !ok {
			t.Fatalf("expected field error for %s, got %v", field, body.Fields)
		}
	}
}

func TestLoginDistinctMessages(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "bob@example.com", domain.RoleUser, "")

	rec := h.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "bob@example.com", "password": "wrong-password"}, "")
	if rec.Code != http.StatusUnauthorized || decode[errorResponse](t, rec).Message != "Invalid credentials" {
		t.Fatalf("wrong password: %d %s", rec.Code, rec.Body)
	}

	rec = h.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "bob@example.com", "password": "password123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	if sessionCookie(rec) == "" {
		t.Fatalf("expected session cookie")
	}

	unverified := newUnverified(t, h, "dave@example.com")
	rec = h.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": unverified, "password": "password123"}, "")
	if rec.Code != http.StatusForbidden || decode[errorResponse](t, rec).Message != "Please verify your email first" {
		t.Fatalf("unverified: %d %s", rec.Code, rec.Body)
	}
}

func newUnverified(t *testing.T, h *harness, email string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email": email, "password": "password123", "firstName": "D", "lastName": "E",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	return email
}

func TestLogoutEndsSession(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "erin@example.com", domain.RoleUser, "")

	if rec := h.do(t, http.MethodPost, "/api/auth/logout", nil, token); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/user", nil, token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/dashboard/stats", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; msg != "Not authenticated" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestSubmitAttemptUpdatesDashboard(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "frank@example.com", domain.RoleUser, "")
	quiz := h.seedQuiz(t, domain.QuizStatusApproved, "")

	rec := h.do(t, http.MethodPost, "/api/quiz-attempts", map[string]any{
		"quizId":         quiz.ID.String(),
		"score":          80,
		"totalQuestions": 2,
		"correctAnswers": 1,
		"timeSpent":      20,
		"answers": []map[string]any{
			{"questionId": quiz.Questions[0].ID.String(), "answer": "a", "timeSpent": 10},
		},
	}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body)
	}
	res := decode[map[string]any](t, rec)
	if res["action"] != string(domain.RiskActionNone) {
		t.Fatalf("expected clean attempt, got %v", res)
	}
	if res["riskScore"] != float64(0) {
		t.Fatalf("expected risk score 0, got %v", res["riskScore"])
	}
	for _, field := range []string{"earnings", "platformFee"} {
		if _, ok := res[field].(float64); !ok {
			t.Fatalf("expected numeric %s, got %#v", field, res[field])
		}
	}
	if res["earnings"].(float64) <= 0 {
		t.Fatalf("expected positive earnings, got %v", res["earnings"])
	}

	rec = h.do(t, http.MethodGet, "/api/dashboard/stats", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	stats := decode[map[string]any](t, rec)
	if stats["quizzesCompleted"] != float64(1) || stats["points"] != float64(80) || stats["recentQuizzes"] != float64(1) {
		t.Fatalf("unexpected stats: %v", stats)
	}

	rec = h.do(t, http.MethodGet, "/api/dashboard/recent-activity", nil, token)
	activity := decode[[]map[string]any](t, rec)
	if len(activity) != 1 || activity[0]["quizTitle"] != "Capitals" {
		t.Fatalf("unexpected activity: %v", activity)
	}
}

func TestSubmitAttemptValidation(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "gina@example.com", domain.RoleUser, "")

	rec := h.do(t, http.MethodPost, "/api/quiz-attempts", map[string]any{
		"quizId": "not-a-uuid", "score": 150, "totalQuestions": 0, "timeSpent": 0,
	}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	fields := decode[errorResponse](t, rec).Fields
	for _, f := range []string{"quizId", "score", "totalQuestions", "timeSpent"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected field error for %s, got %v", f, fields)
		}
	}
}

func TestSubmitAttemptUnknownQuiz(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "hank@example.com", domain.RoleUser, "")
	pending := h.seedQuiz(t, domain.QuizStatusPending, "")

	rec := h.do(t, http.MethodPost, "/api/quiz-attempts", map[string]any{
		"quizId": pending.ID.String(), "score": 50, "totalQuestions": 2, "correctAnswers": 1, "timeSpent": 30,
	}, token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unpublished quiz, got %d", rec.Code)
	}
}

func TestCatalogHidesCorrectAnswers(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "ivy@example.com", domain.RoleUser, "")
	quiz := h.seedQuiz(t, domain.QuizStatusApproved, "")
	h.seedQuiz(t, domain.QuizStatusPending, "")

	rec := h.do(t, http.MethodGet, "/api/quizzes", nil, token)
	if got := decode[[]map[string]any](t, rec); len(got) != 1 {
		t.Fatalf("expected only the approved quiz, got %d", len(got))
	}

	rec = h.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID.String()+"/questions", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("questions: %d", rec.Code)
	}
	questions := decode[[]map[string]any](t, rec)
	if len(questions) != 2 || questions[0]["order"] != float64(1) {
		t.Fatalf("unexpected questions: %v", questions)
	}
	if _, leaked := questions[0]["correctAnswer"]; leaked {
		t.Fatalf("correct answer must not be serialized")
	}
}

func TestModerationRequiresCapabilityAndScope(t *testing.T) {
	h := newHarness(t)
	_, userToken := h.seedUser(t, "user@example.com", domain.RoleUser, "")
	_, stateToken := h.seedUser(t, "state@example.com", domain.RoleStateAdmin, "Kerala")
	super, superToken := h.seedUser(t, "super@example.com", domain.RoleSuperadmin, "")

	inScope := h.seedQuiz(t, domain.QuizStatusPending, "Kerala")
	outOfScope := h.seedQuiz(t, domain.QuizStatusPending, "Goa")

	if rec := h.do(t, http.MethodPost, "/api/admin/quizzes/"+inScope.ID.String()+"/approve", nil, userToken); rec.Code != http.StatusForbidden {
		t.Fatalf("plain user approve: expected 403, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/api/admin/quizzes/"+outOfScope.ID.String()+"/approve", nil, stateToken); rec.Code != http.StatusNotFound {
		t.Fatalf("out of scope approve: expected 404, got %d", rec.Code)
	}

	rec := h.do(t, http.MethodPost, "/api/admin/quizzes/"+inScope.ID.String()+"/approve", nil, stateToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]any](t, rec); got["status"] != string(domain.QuizStatusApproved) {
		t.Fatalf("expected approved quiz, got %v", got)
	}

	rec = h.do(t, http.MethodPost, "/api/admin/quizzes/"+outOfScope.ID.String()+"/reject", map[string]any{}, superToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reject without reason: expected 400, got %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/api/admin/quizzes/"+outOfScope.ID.String()+"/reject", map[string]any{"reason": "duplicate"}, superToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", rec.Code, rec.Body)
	}

	rec = h.do(t, http.MethodGet, "/api/superadmin/audit-logs", nil, superToken)
	logs := decode[[]map[string]any](t, rec)
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(logs))
	}
	if logs[0]["userId"] != super.ID.String() || logs[0]["action"] != "REJECT_QUIZ" {
		t.Fatalf("unexpected latest audit entry: %v", logs[0])
	}
}

func TestSuperadminRoutesForbiddenForAdmins(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "country@example.com", domain.RoleCountryAdmin, "IN")
	for _, path := range []string{"/api/superadmin/analytics", "/api/superadmin/revenue", "/api/superadmin/fraud-logs", "/api/superadmin/audit-logs"} {
		if rec := h.do(t, http.MethodGet, path, nil, token); rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, rec.Code)
		}
	}
}

func TestLeaderboardSnapshotAfterRefresh(t *testing.T) {
	h := newHarness(t)
	_, token := h.seedUser(t, "jo@example.com", domain.RoleUser, "")
	if _, err := h.leaderboard.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rec := h.do(t, http.MethodGet, "/api/leaderboard?scope=country&region=IN", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: %d %s", rec.Code, rec.Body)
	}
	if entries := decode[[]map[string]any](t, rec); len(entries) != 1 || entries[0]["rank"] != float64(1) {
		t.Fatalf("unexpected entries: %v", entries)
	}

	if rec := h.do(t, http.MethodGet, "/api/leaderboard?scope=state", nil, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("state without region: expected 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(t, http.MethodGet, "/healthz", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
