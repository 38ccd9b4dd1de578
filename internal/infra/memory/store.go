package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-process implementation of every persistence port. It backs the
// server when no Postgres URL is configured and doubles as the test fixture store.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*domain.User
	byEmail     map[string]uuid.UUID
	challenges  []domain.OtpChallenge
	attempts    []domain.QuizAttempt
	splits      []domain.RevenueSplit
	assessments []domain.RiskAssessment
	audits      []domain.AuditLog
	quizzes     map[uuid.UUID]*domain.Quiz
	categories  []domain.Category
	boards      []domain.LeaderboardEntry
}

func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
		quizzes: make(map[uuid.UUID]*domain.Quiz),
	}
}

// AddCategory seeds a category.
func (s *Store) AddCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// Users

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	u := *user
	s.users[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *Store) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	return s.updateUser(id, func(u *domain.User) {
		u.IsEmailVerified = true
	})
}

func (s *Store) RecordLogin(_ context.Context, id uuid.UUID, info domain.LoginInfo) error {
	return s.updateUser(id, func(u *domain.User) {
		at := info.At
		u.LastLoginAt = &at
		u.IPAddress = info.IPAddress
		u.DeviceFingerprint = info.DeviceFingerprint
	})
}

func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return s.updateUser(id, func(u *domain.User) {
		u.PasswordHash = hash
	})
}

func (s *Store) updateUser(id uuid.UUID, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

// OTP challenges

func (s *Store) ReplaceChallenge(_ context.Context, ch domain.OtpChallenge) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invalidated := 0
	for i := range s.challenges {
		c := &s.challenges[i]
		if c.Email == ch.Email && c.Purpose == ch.Purpose && !c.IsUsed {
			c.IsUsed = true
			invalidated++
		}
	}
	s.challenges = append(s.challenges, ch)
	return invalidated, nil
}

func (s *Store) ConsumeChallenge(_ context.Context, email string, purpose domain.OtpPurpose, code string, now time.Time) (domain.OtpChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.challenges {
		c := &s.challenges[i]
		if c.Email != email || c.Purpose != purpose || c.Code != code || c.IsUsed || c.ExpiresAt.Before(now) {
			continue
		}
		c.IsUsed = true
		return *c, nil
	}
	return domain.OtpChallenge{}, domain.ErrOtpNoMatch
}

// Challenges returns every stored challenge for (email, purpose), oldest first.
func (s *Store) Challenges(email string, purpose domain.OtpPurpose) []domain.OtpChallenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.OtpChallenge
	for _, c := range s.challenges {
		if c.Email == email && c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}

// Attempt history and ledger

func (s *Store) CountAttemptsByIP(_ context.Context, ip string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.attempts {
		if a.IPAddress == ip && !a.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) AverageTimeSpent(_ context.Context, userID uuid.UUID) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, n := 0, 0
	for _, a := range s.attempts {
		if a.UserID == userID {
			total += a.TimeSpent
			n++
		}
	}
	if n == 0 {
		return 0, false, nil
	}
	return float64(total) / float64(n), true, nil
}

func (s *Store) CommitAttempt(_ context.Context, entry domain.LedgerEntry) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[entry.Attempt.UserID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	s.attempts = append(s.attempts, entry.Attempt)
	if entry.Split != nil {
		s.splits = append(s.splits, *entry.Split)
	}
	if entry.Credit {
		u.QuizzesCompleted++
		u.TotalEarnings = u.TotalEarnings.Add(entry.Attempt.Earnings)
		u.Points += entry.Attempt.Score
		u.CurrentStreak++
		if u.CurrentStreak > u.LongestStreak {
			u.LongestStreak = u.CurrentStreak
		}
		u.UpdatedAt = entry.Attempt.CompletedAt
		if q, ok := s.quizzes[entry.Attempt.QuizID]; ok {
			q.ParticipantCount++
			q.TotalRevenue = q.TotalRevenue.Add(entry.Attempt.AdRevenue)
		}
	}
	return *u, nil
}

// Attempts returns every stored attempt for a user, oldest first.
func (s *Store) Attempts(userID uuid.UUID) []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// Splits returns every stored revenue split.
func (s *Store) Splits() []domain.RevenueSplit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RevenueSplit(nil), s.splits...)
}

// Risk log

func (s *Store) RecordAssessment(_ context.Context, a domain.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *Store) ListAssessments(_ context.Context, limit int) ([]domain.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RiskAssessment, 0, min(limit, len(s.assessments)))
	for i := len(s.assessments) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.assessments[i])
	}
	return out, nil
}

// Catalog

// LoadQuiz returns a quiz with its questions ordered by position.
func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	id, err := uuid.Parse(quizID)
	if err != nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz := *q
	quiz.Questions = append([]domain.Question(nil), q.Questions...)
	sort.Slice(quiz.Questions, func(i, j int) bool { return quiz.Questions[i].Position < quiz.Questions[j].Position })
	return quiz, nil
}

func (s *Store) ListQuizzes(_ context.Context, f domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Quiz
	for _, q := range s.quizzes {
		if !matches(*q, f) {
			continue
		}
		quiz := *q
		quiz.Questions = nil
		out = append(out, quiz)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matches(q domain.Quiz, f domain.QuizFilter) bool {
	switch {
	case f.Status != "" && q.Status != f.Status:
		return false
	case f.ActiveOnly && !q.IsActive:
		return false
	case f.CategoryID != nil && (q.CategoryID == nil || *q.CategoryID != *f.CategoryID):
		return false
	case f.CreatorID != nil && (q.CreatorID == nil || *q.CreatorID != *f.CreatorID):
		return false
	case f.Difficulty != "" && q.Difficulty != f.Difficulty:
		return false
	case f.TargetState != "" && q.TargetState != f.TargetState:
		return false
	case f.TargetCountry != "" && q.TargetCountry != f.TargetCountry:
		return false
	}
	if f.Region != "" && q.PublishScope != string(domain.ScopeGlobal) {
		return q.TargetRegion == f.Region || q.TargetCountry == f.Region || q.TargetState == f.Region
	}
	return true
}

func (s *Store) FindQuiz(_ context.Context, id uuid.UUID) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz := *q
	quiz.Questions = nil
	return quiz, nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]domain.Question, error) {
	quiz, err := s.LoadQuiz(ctx, quizID.String())
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Category
	for _, c := range s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := *quiz
	q.Questions = append([]domain.Question(nil), quiz.Questions...)
	s.quizzes[q.ID] = &q
	return nil
}

func (s *Store) ModerateQuiz(_ context.Context, m domain.Moderation, audit domain.AuditLog) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[m.QuizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	q.Status = m.Status
	q.UpdatedAt = m.At
	switch m.Status {
	case domain.QuizStatusApproved:
		actor, at := m.ActorID, m.At
		q.ApprovedBy = &actor
		q.ApprovedAt = &at
		q.RejectionReason = ""
	case domain.QuizStatusRejected:
		q.RejectionReason = m.RejectionReason
	}
	s.audits = append(s.audits, audit)
	quiz := *q
	quiz.Questions = nil
	return quiz, nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, 0, min(limit, len(s.audits)))
	for i := len(s.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audits[i])
	}
	return out, nil
}

// Dashboards

func (s *Store) CountAttemptsSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.attempts {
		if a.UserID == userID && !a.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) RecentAttempts(_ context.Context, userID uuid.UUID, limit int) ([]domain.AttemptActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AttemptActivity
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := s.attempts[i]
		if a.UserID != userID {
			continue
		}
		title := ""
		if q, ok := s.quizzes[a.QuizID]; ok {
			title = q.Title
		}
		out = append(out, domain.AttemptActivity{
			ID:          a.ID,
			Score:       a.Score,
			Earnings:    a.Earnings,
			CompletedAt: a.CompletedAt,
			QuizTitle:   title,
		})
	}
	return out, nil
}

func (s *Store) EarningsSummary(_ context.Context, userID uuid.UUID) (domain.EarningsSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := domain.EarningsSummary{Total: decimal.Zero, Average: decimal.Zero}
	monthly := make(map[time.Time]decimal.Decimal)
	for _, a := range s.attempts {
		if a.UserID != userID {
			continue
		}
		summary.Total = summary.Total.Add(a.Earnings)
		summary.TotalQuizzes++
		t := a.CompletedAt.UTC()
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthly[month] = monthly[month].Add(a.Earnings)
	}
	if summary.TotalQuizzes > 0 {
		summary.Average = summary.Total.Div(decimal.NewFromInt(int64(summary.TotalQuizzes))).Round(2)
	}
	for period, amount := range monthly {
		summary.Monthly = append(summary.Monthly, domain.PeriodAmount{Period: period, Amount: amount})
	}
	sort.Slice(summary.Monthly, func(i, j int) bool { return summary.Monthly[i].Period.After(summary.Monthly[j].Period) })
	if len(summary.Monthly) > 12 {
		summary.Monthly = summary.Monthly[:12]
	}
	return summary, nil
}

func (s *Store) PlatformAnalytics(_ context.Context, activeSince time.Time) (domain.PlatformAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := domain.PlatformAnalytics{TotalUsers: len(s.users), TotalRevenue: decimal.Zero}
	active := make(map[uuid.UUID]struct{})
	for _, at := range s.attempts {
		a.TotalRevenue = a.TotalRevenue.Add(at.AdRevenue)
		if !at.CompletedAt.Before(activeSince) {
			active[at.UserID] = struct{}{}
		}
	}
	for _, q := range s.quizzes {
		if q.Status == domain.QuizStatusApproved {
			a.TotalQuizzes++
		}
	}
	a.ActiveUsers = len(active)
	return a, nil
}

func (s *Store) RevenueByDay(_ context.Context, since time.Time) ([]domain.RevenueDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := make(map[time.Time]*domain.RevenueDay)
	for _, a := range s.attempts {
		if a.CompletedAt.Before(since) {
			continue
		}
		t := a.CompletedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		d, ok := days[day]
		if !ok {
			d = &domain.RevenueDay{Date: day, Revenue: decimal.Zero, UserEarnings: decimal.Zero}
			days[day] = d
		}
		d.Revenue = d.Revenue.Add(a.AdRevenue)
		d.UserEarnings = d.UserEarnings.Add(a.Earnings)
	}
	out := make([]domain.RevenueDay, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Leaderboards

func (s *Store) Snapshot(_ context.Context, scope domain.LeaderboardScope, region string, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LeaderboardEntry
	for _, e := range s.boards {
		if e.Scope == scope && e.Region == region {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Rebuild(_ context.Context, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Role == domain.RoleUser && u.IsActive {
			ranked = append(ranked, *u)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.TotalEarnings.Equal(b.TotalEarnings) {
			return a.TotalEarnings.GreaterThan(b.TotalEarnings)
		}
		return a.Email < b.Email
	})

	var entries []domain.LeaderboardEntry
	ranks := make(map[string]int)
	add := func(u domain.User, scope domain.LeaderboardScope, region string) {
		key := string(scope) + ":" + region
		ranks[key]++
		entries = append(entries, domain.LeaderboardEntry{
			ID:               uuid.New(),
			UserID:           u.ID,
			DisplayName:      u.DisplayName(),
			Scope:            scope,
			Region:           region,
			Rank:             ranks[key],
			Points:           u.Points,
			Earnings:         u.TotalEarnings,
			QuizzesCompleted: u.QuizzesCompleted,
			UpdatedAt:        at,
		})
	}
	for _, u := range ranked {
		add(u, domain.ScopeGlobal, "")
		if u.Country != "" {
			add(u, domain.ScopeCountry, u.Country)
		}
		if u.State != "" {
			add(u, domain.ScopeState, u.State)
		}
	}
	s.boards = entries
	return len(entries), nil
}
