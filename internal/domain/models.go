package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Money fields go over the wire as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// User is an account plus the cumulative counters the attempt ledger maintains.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Email             string          `bun:"email,notnull" json:"email"`
	PasswordHash      string          `bun:"password,notnull" json:"-"`
	FirstName         string          `bun:"first_name,notnull" json:"firstName"`
	LastName          string          `bun:"last_name,notnull" json:"lastName"`
	Phone             string          `bun:"phone,nullzero" json:"phone,omitempty"`
	Role              Role            `bun:"role,notnull" json:"role"`
	IsEmailVerified   bool            `bun:"is_email_verified,notnull" json:"isEmailVerified"`
	IsActive          bool            `bun:"is_active,notnull" json:"isActive"`
	Region            string          `bun:"region,nullzero" json:"region,omitempty"`
	Country           string          `bun:"country,nullzero" json:"country,omitempty"`
	State             string          `bun:"state,nullzero" json:"state,omitempty"`
	TotalEarnings     decimal.Decimal `bun:"total_earnings,type:numeric(10,2),notnull" json:"totalEarnings"`
	CurrentStreak     int             `bun:"current_streak,notnull" json:"currentStreak"`
	LongestStreak     int             `bun:"longest_streak,notnull" json:"longestStreak"`
	QuizzesCompleted  int             `bun:"quizzes_completed,notnull" json:"quizzesCompleted"`
	Points            int             `bun:"points,notnull" json:"points"`
	LastLoginAt       *time.Time      `bun:"last_login_at" json:"lastLoginAt,omitempty"`
	DeviceFingerprint string          `bun:"device_fingerprint,nullzero" json:"-"`
	IPAddress         string          `bun:"ip_address,nullzero" json:"-"`
	CreatedAt         time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt         time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}

// DisplayName is the name shown on leaderboards.
func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// LoginInfo is stamped on the user row after a successful login.
type LoginInfo struct {
	At                time.Time
	IPAddress         string
	DeviceFingerprint string
}

// OtpPurpose scopes a challenge to the flow that issued it.
type OtpPurpose string

const (
	OtpPurposeRegistration  OtpPurpose = "registration"
	OtpPurposePasswordReset OtpPurpose = "password_reset"
)

// OtpChallenge is a short-lived, single-use numeric code tied to an email and purpose.
type OtpChallenge struct {
	bun.BaseModel `bun:"table:otp_verifications,alias:ov"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID  `bun:"user_id,type:uuid"`
	Email     string     `bun:"email,notnull"`
	Code      string     `bun:"otp,notnull"`
	Purpose   OtpPurpose `bun:"purpose,notnull"`
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	IsUsed    bool       `bun:"is_used,notnull"`
	CreatedAt time.Time  `bun:"created_at,notnull"`
}

// Category groups quizzes.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Icon        string    `bun:"icon,nullzero" json:"icon,omitempty"`
	IsActive    bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// QuizStatus tracks moderation state.
type QuizStatus string

const (
	QuizStatusDraft    QuizStatus = "draft"
	QuizStatusPending  QuizStatus = "pending"
	QuizStatusApproved QuizStatus = "approved"
	QuizStatusRejected QuizStatus = "rejected"
	QuizStatusArchived QuizStatus = "archived"
)

// Quiz is a collection of questions plus publishing metadata.
type Quiz struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID               uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Title            string          `bun:"title,notnull" json:"title"`
	Description      string          `bun:"description,nullzero" json:"description,omitempty"`
	CategoryID       *uuid.UUID      `bun:"category_id,type:uuid" json:"categoryId,omitempty"`
	CreatorID        *uuid.UUID      `bun:"creator_id,type:uuid" json:"creatorId,omitempty"`
	Difficulty       string          `bun:"difficulty,notnull" json:"difficulty"`
	EstimatedTime    int             `bun:"estimated_time,notnull" json:"estimatedTime"`
	TotalQuestions   int             `bun:"total_questions,notnull" json:"totalQuestions"`
	Status           QuizStatus      `bun:"status,notnull" json:"status"`
	ApprovedBy       *uuid.UUID      `bun:"approved_by,type:uuid" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time      `bun:"approved_at" json:"approvedAt,omitempty"`
	RejectionReason  string          `bun:"rejection_reason,nullzero" json:"rejectionReason,omitempty"`
	PublishScope     string          `bun:"publish_scope,notnull" json:"publishScope"`
	TargetRegion     string          `bun:"target_region,nullzero" json:"targetRegion,omitempty"`
	TargetCountry    string          `bun:"target_country,nullzero" json:"targetCountry,omitempty"`
	TargetState      string          `bun:"target_state,nullzero" json:"targetState,omitempty"`
	IsActive         bool            `bun:"is_active,notnull" json:"isActive"`
	ParticipantCount int             `bun:"participant_count,notnull" json:"participantCount"`
	TotalRevenue     decimal.Decimal `bun:"total_revenue,type:numeric(10,2),notnull" json:"totalRevenue"`
	CreatedAt        time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt        time.Time       `bun:"updated_at,notnull" json:"updatedAt"`

	Questions []Question `bun:"rel:has-many,join:id=quiz_id" json:"questions,omitempty"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question belongs to a quiz. The correct answer never leaves the server.
type Question struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	QuizID        uuid.UUID `bun:"quiz_id,type:uuid,notnull" json:"quizId"`
	Text          string    `bun:"question_text,notnull" json:"questionText"`
	Type          string    `bun:"question_type,notnull" json:"questionType"`
	Options       []Option  `bun:"options,type:jsonb,notnull" json:"options"`
	CorrectAnswer string    `bun:"correct_answer,notnull" json:"-"`
	Explanation   string    `bun:"explanation,nullzero" json:"explanation,omitempty"`
	Points        int       `bun:"points,notnull" json:"points"`
	TimeLimit     int       `bun:"time_limit,notnull" json:"timeLimit"`
	Position      int       `bun:"position,notnull" json:"order"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// HasQuestion reports whether id names one of the quiz's questions.
func (q Quiz) HasQuestion(id uuid.UUID) bool {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return true
		}
	}
	return false
}

// QuizFilter narrows catalog listings.
type QuizFilter struct {
	Status     QuizStatus
	CategoryID *uuid.UUID
	Difficulty string
	Region     string
	CreatorID  *uuid.UUID
	// ActiveOnly restricts the listing to is_active quizzes.
	ActiveOnly bool
	// TargetState/TargetCountry apply regional admin scope.
	TargetState   string
	TargetCountry string
}

// AnswerSubmission is one answered question inside an attempt.
type AnswerSubmission struct {
	QuestionID uuid.UUID `json:"questionId"`
	Answer     string    `json:"answer"`
	TimeSpent  int       `json:"timeSpent"`
}

// QuizAttempt is a single completed run of a quiz by one user.
type QuizAttempt struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID                uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	UserID            uuid.UUID          `bun:"user_id,type:uuid,notnull" json:"userId"`
	QuizID            uuid.UUID          `bun:"quiz_id,type:uuid,notnull" json:"quizId"`
	Score             int                `bun:"score,notnull" json:"score"`
	TotalQuestions    int                `bun:"total_questions,notnull" json:"totalQuestions"`
	CorrectAnswers    int                `bun:"correct_answers,notnull" json:"correctAnswers"`
	TimeSpent         int                `bun:"time_spent,notnull" json:"timeSpent"`
	Answers           []AnswerSubmission `bun:"answers,type:jsonb" json:"answers,omitempty"`
	CompletedAt       time.Time          `bun:"completed_at,notnull" json:"completedAt"`
	Earnings          decimal.Decimal    `bun:"earnings,type:numeric(8,2),notnull" json:"earnings"`
	AdViews           int                `bun:"ad_views,notnull" json:"adViews"`
	AdRevenue         decimal.Decimal    `bun:"ad_revenue,type:numeric(8,2),notnull" json:"adRevenue"`
	DeviceFingerprint string             `bun:"device_fingerprint,nullzero" json:"-"`
	IPAddress         string             `bun:"ip_address,nullzero" json:"-"`
	IsValid           bool               `bun:"is_valid,notnull" json:"isValid"`
}

// Revenue is the allocator's output for one attempt.
type Revenue struct {
	AdRevenue    decimal.Decimal
	UserEarnings decimal.Decimal
	PlatformFee  decimal.Decimal
	UserShare    decimal.Decimal
}

// RevenueSplitStatus tracks settlement of a split.
type RevenueSplitStatus string

const (
	RevenueSplitPending   RevenueSplitStatus = "pending"
	RevenueSplitProcessed RevenueSplitStatus = "processed"
)

// RevenueSplit records how an attempt's ad revenue was divided.
type RevenueSplit struct {
	bun.BaseModel `bun:"table:revenue_splits,alias:rs"`

	ID              uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	UserID          uuid.UUID          `bun:"user_id,type:uuid,notnull" json:"userId"`
	QuizAttemptID   uuid.UUID          `bun:"quiz_attempt_id,type:uuid,notnull" json:"quizAttemptId"`
	TotalRevenue    decimal.Decimal    `bun:"total_revenue,type:numeric(10,2),notnull" json:"totalRevenue"`
	UserShare       decimal.Decimal    `bun:"user_share,type:numeric(10,2),notnull" json:"userShare"`
	PlatformShare   decimal.Decimal    `bun:"platform_share,type:numeric(10,2),notnull" json:"platformShare"`
	SharePercentage decimal.Decimal    `bun:"share_percentage,type:numeric(5,2),notnull" json:"sharePercentage"`
	CalculatedAt    time.Time          `bun:"calculated_at,notnull" json:"calculatedAt"`
	ProcessedAt     *time.Time         `bun:"processed_at" json:"processedAt,omitempty"`
	Status          RevenueSplitStatus `bun:"status,notnull" json:"status"`
}

// LedgerEntry is everything one submission writes in a single transaction.
// Credit is false when the attempt earns nothing; the user's counters are then left alone.
type LedgerEntry struct {
	Attempt QuizAttempt
	Split   *RevenueSplit
	Credit  bool
}

// RiskAction is the fraud heuristic's verdict.
type RiskAction string

const (
	RiskActionNone  RiskAction = "none"
	RiskActionFlag  RiskAction = "flag"
	RiskActionBlock RiskAction = "block"
)

// RiskFactor is one contributing signal with its observed value and the points it added.
type RiskFactor struct {
	Factor string  `json:"factor"`
	Value  float64 `json:"value"`
	Points int     `json:"points"`
}

// RiskAssessment is the append-only audit record written for every attempt.
type RiskAssessment struct {
	bun.BaseModel `bun:"table:fraud_detection_logs,alias:fdl"`

	ID                uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	UserID            uuid.UUID    `bun:"user_id,type:uuid,notnull" json:"userId"`
	AttemptID         uuid.UUID    `bun:"attempt_id,type:uuid,notnull" json:"attemptId"`
	RiskScore         int          `bun:"risk_score,notnull" json:"riskScore"`
	RiskFactors       []RiskFactor `bun:"risk_factors,type:jsonb,notnull" json:"riskFactors"`
	IPAddress         string       `bun:"ip_address,nullzero" json:"ipAddress,omitempty"`
	DeviceFingerprint string       `bun:"device_fingerprint,nullzero" json:"deviceFingerprint,omitempty"`
	UserAgent         string       `bun:"user_agent,nullzero" json:"userAgent,omitempty"`
	IsVPN             bool         `bun:"is_vpn,notnull" json:"isVpn"`
	IsBlocked         bool         `bun:"is_blocked,notnull" json:"isBlocked"`
	Action            RiskAction   `bun:"action,notnull" json:"action"`
	CreatedAt         time.Time    `bun:"created_at,notnull" json:"createdAt"`
}

// AuditLog records an administrative mutation.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	UserID     uuid.UUID      `bun:"user_id,type:uuid,notnull" json:"userId"`
	Action     string         `bun:"action,notnull" json:"action"`
	EntityType string         `bun:"entity_type,notnull" json:"entityType"`
	EntityID   string         `bun:"entity_id,nullzero" json:"entityId,omitempty"`
	OldValues  map[string]any `bun:"old_values,type:jsonb" json:"oldValues,omitempty"`
	NewValues  map[string]any `bun:"new_values,type:jsonb" json:"newValues,omitempty"`
	IPAddress  string         `bun:"ip_address,nullzero" json:"ipAddress,omitempty"`
	UserAgent  string         `bun:"user_agent,nullzero" json:"userAgent,omitempty"`
	SessionID  string         `bun:"session_id,nullzero" json:"-"`
	CreatedAt  time.Time      `bun:"created_at,notnull" json:"createdAt"`
}

// Moderation is a status change applied to a quiz by an admin.
type Moderation struct {
	QuizID          uuid.UUID
	Status          QuizStatus
	ActorID         uuid.UUID
	RejectionReason string
	At              time.Time
}

// LeaderboardScope selects which ranking a snapshot belongs to.
type LeaderboardScope string

const (
	ScopeGlobal  LeaderboardScope = "global"
	ScopeCountry LeaderboardScope = "country"
	ScopeState   LeaderboardScope = "state"
)

// LeaderboardEntry is one ranked row of a precomputed snapshot.
type LeaderboardEntry struct {
	bun.BaseModel `bun:"table:leaderboards,alias:lb"`

	ID               uuid.UUID        `bun:"id,pk,type:uuid" json:"-"`
	UserID           uuid.UUID        `bun:"user_id,type:uuid,notnull" json:"userId"`
	DisplayName      string           `bun:"display_name,notnull" json:"displayName"`
	Scope            LeaderboardScope `bun:"scope,notnull" json:"scope"`
	Region           string           `bun:"region,nullzero" json:"region,omitempty"`
	Rank             int              `bun:"rank,notnull" json:"rank"`
	Points           int              `bun:"points,notnull" json:"points"`
	Earnings         decimal.Decimal  `bun:"earnings,type:numeric(10,2),notnull" json:"earnings"`
	QuizzesCompleted int              `bun:"quizzes_completed,notnull" json:"quizzesCompleted"`
	UpdatedAt        time.Time        `bun:"updated_at,notnull" json:"updatedAt"`
}

// Leaderboard captures the ordered live ranking for a scope.
type Leaderboard struct {
	Scope     LeaderboardScope   `json:"scope"`
	Region    string             `json:"region,omitempty"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// DashboardStats is the user dashboard header.
type DashboardStats struct {
	TotalEarnings    decimal.Decimal `json:"totalEarnings"`
	QuizzesCompleted int             `json:"quizzesCompleted"`
	CurrentStreak    int             `json:"currentStreak"`
	Points           int             `json:"points"`
	RecentQuizzes    int             `json:"recentQuizzes"`
}

// AttemptActivity is a recent attempt joined with its quiz title.
type AttemptActivity struct {
	ID          uuid.UUID       `bun:"id" json:"id"`
	Score       int             `bun:"score" json:"score"`
	Earnings    decimal.Decimal `bun:"earnings" json:"earnings"`
	CompletedAt time.Time       `bun:"completed_at" json:"completedAt"`
	QuizTitle   string          `bun:"quiz_title" json:"quizTitle"`
}

// PeriodAmount is a monetary total for a truncated time bucket.
type PeriodAmount struct {
	Period time.Time       `bun:"period" json:"period"`
	Amount decimal.Decimal `bun:"amount" json:"amount"`
}

// EarningsSummary aggregates a user's earnings history.
type EarningsSummary struct {
	Total        decimal.Decimal `json:"total"`
	TotalQuizzes int             `json:"totalQuizzes"`
	Average      decimal.Decimal `json:"average"`
	Monthly      []PeriodAmount  `json:"monthly"`
}

// PlatformAnalytics is the superadmin overview.
type PlatformAnalytics struct {
	TotalUsers   int             `json:"totalUsers"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalQuizzes int             `json:"totalQuizzes"`
	ActiveUsers  int             `json:"activeUsers"`
}

// RevenueDay is one day of platform revenue.
type RevenueDay struct {
	Date         time.Time       `bun:"date" json:"date"`
	Revenue      decimal.Decimal `bun:"revenue" json:"revenue"`
	UserEarnings decimal.Decimal `bun:"user_earnings" json:"userEarnings"`
}
