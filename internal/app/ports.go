package app

import (
	"context"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
)

// UserRepository persists accounts.
type UserRepository interface {
	// CreateUser returns domain.ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	RecordLogin(ctx context.Context, id uuid.UUID, info domain.LoginInfo) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// OtpRepository stores OTP challenges.
type OtpRepository interface {
	// ReplaceChallenge marks every unused challenge for (email, purpose) used and inserts ch,
	// serialized per pair. It returns how many challenges were invalidated.
	ReplaceChallenge(ctx context.Context, ch domain.OtpChallenge) (int, error)
	// ConsumeChallenge atomically marks the matching unused, unexpired challenge used.
	// It returns domain.ErrOtpNoMatch when nothing matches.
	ConsumeChallenge(ctx context.Context, email string, purpose domain.OtpPurpose, code string, now time.Time) (domain.OtpChallenge, error)
}

// AttemptHistory answers the read-only aggregates the risk evaluator needs.
type AttemptHistory interface {
	CountAttemptsByIP(ctx context.Context, ip string, since time.Time) (int, error)
	// AverageTimeSpent reports ok=false when the user has no prior attempts.
	AverageTimeSpent(ctx context.Context, userID uuid.UUID) (avg float64, ok bool, err error)
}

// RiskLog is the append-only store of risk assessments.
type RiskLog interface {
	RecordAssessment(ctx context.Context, a domain.RiskAssessment) error
	ListAssessments(ctx context.Context, limit int) ([]domain.RiskAssessment, error)
}

// Ledger writes an attempt, its revenue split and the user's counters in one transaction.
type Ledger interface {
	CommitAttempt(ctx context.Context, entry domain.LedgerEntry) (domain.User, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// Invalidate drops a cached quiz so the next read reloads it.
	Invalidate(ctx context.Context, quizID string) error
}

// CatalogRepository backs quiz browsing and moderation.
type CatalogRepository interface {
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	FindQuiz(ctx context.Context, id uuid.UUID) (domain.Quiz, error)
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]domain.Question, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	// ModerateQuiz applies the status change and writes the audit record together.
	ModerateQuiz(ctx context.Context, m domain.Moderation, audit domain.AuditLog) (domain.Quiz, error)
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// DashboardRepository serves read-only aggregates.
type DashboardRepository interface {
	CountAttemptsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	RecentAttempts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AttemptActivity, error)
	EarningsSummary(ctx context.Context, userID uuid.UUID) (domain.EarningsSummary, error)
	PlatformAnalytics(ctx context.Context, activeSince time.Time) (domain.PlatformAnalytics, error)
	RevenueByDay(ctx context.Context, since time.Time) ([]domain.RevenueDay, error)
}

// LeaderboardRepository stores ranking snapshots.
type LeaderboardRepository interface {
	Snapshot(ctx context.Context, scope domain.LeaderboardScope, region string, limit int) ([]domain.LeaderboardEntry, error)
	// Rebuild recomputes every snapshot from user counters and returns the number of rows written.
	Rebuild(ctx context.Context, at time.Time) (int, error)
}

// SessionStore maps opaque auth tokens to user ids.
type SessionStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID) error
	// Lookup returns domain.ErrSessionNotFound for unknown or expired tokens.
	Lookup(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

// Mailer delivers OTP codes.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, purpose domain.OtpPurpose) error
}

// BoardRepository abstracts how live leaderboards are held (in-memory, Redis-marked, etc).
type BoardRepository interface {
	// GetOrCreate reports created=true when the board did not exist yet.
	GetOrCreate(key string) (board *Board, created bool)
	Get(key string) (*Board, bool)
	DeleteIfEmpty(key string)
}
