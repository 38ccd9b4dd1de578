package app

import (
	"context"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
)

const (
	riskWindow     = 24 * time.Hour
	riskBlockAt    = 70
	riskFlagAt     = 50
	maxRiskScore   = 100
	fastRatioLimit = 0.3
)

// RiskInput is the attempt metadata the evaluator scores.
type RiskInput struct {
	UserID            uuid.UUID
	AttemptID         uuid.UUID
	IPAddress         string
	DeviceFingerprint string
	UserAgent         string
	TimeSpent         int
	Score             int
}

// RiskSignals are the historical aggregates looked up for one attempt.
type RiskSignals struct {
	IPAttempts   int
	AvgTimeSpent float64
	HasHistory   bool
}

// ScoreRisk sums the threshold contributions. It is pure; clamping is left to the caller.
func ScoreRisk(sig RiskSignals, timeSpent, score int) (int, []domain.RiskFactor) {
	ipPoints := 0
	switch {
	case sig.IPAttempts > 10:
		ipPoints = 30
	case sig.IPAttempts > 5:
		ipPoints = 15
	}

	timePoints := 0
	if sig.HasHistory && float64(timeSpent) < sig.AvgTimeSpent*fastRatioLimit {
		timePoints = 25
	}

	scorePoints := 0
	switch {
	case score == 100:
		scorePoints = 20
	case score > 95:
		scorePoints = 10
	}

	factors := []domain.RiskFactor{
		{Factor: "ip_attempts", Value: float64(sig.IPAttempts), Points: ipPoints},
		{Factor: "time_spent", Value: float64(timeSpent), Points: timePoints},
		{Factor: "score", Value: float64(score), Points: scorePoints},
	}
	return ipPoints + timePoints + scorePoints, factors
}

// ActionFor maps a risk score onto its action.
func ActionFor(score int) domain.RiskAction {
	switch {
	case score >= riskBlockAt:
		return domain.RiskActionBlock
	case score >= riskFlagAt:
		return domain.RiskActionFlag
	}
	return domain.RiskActionNone
}

// RiskEvaluator scores attempts and records every assessment before anything else is written.
type RiskEvaluator struct {
	history AttemptHistory
	log     RiskLog
	clamp   bool
	now     func() time.Time
}

func NewRiskEvaluator(history AttemptHistory, log RiskLog, clamp bool) *RiskEvaluator {
	return &RiskEvaluator{history: history, log: log, clamp: clamp, now: time.Now}
}

// Assess looks up the signals, scores them and persists the assessment. Any lookup or
// write failure aborts with a dependency error; no partial score is returned.
func (e *RiskEvaluator) Assess(ctx context.Context, in RiskInput) (domain.RiskAssessment, error) {
	now := e.now()

	ipCount, err := e.history.CountAttemptsByIP(ctx, in.IPAddress, now.Add(-riskWindow))
	if err != nil {
		return domain.RiskAssessment{}, domain.Dependency("Risk evaluation failed", err)
	}
	avg, hasHistory, err := e.history.AverageTimeSpent(ctx, in.UserID)
	if err != nil {
		return domain.RiskAssessment{}, domain.Dependency("Risk evaluation failed", err)
	}

	score, factors := ScoreRisk(RiskSignals{IPAttempts: ipCount, AvgTimeSpent: avg, HasHistory: hasHistory}, in.TimeSpent, in.Score)
	if e.clamp && score > maxRiskScore {
		score = maxRiskScore
	}
	action := ActionFor(score)

	assessment := domain.RiskAssessment{
		ID:                uuid.New(),
		UserID:            in.UserID,
		AttemptID:         in.AttemptID,
		RiskScore:         score,
		RiskFactors:       factors,
		IPAddress:         in.IPAddress,
		DeviceFingerprint: in.DeviceFingerprint,
		UserAgent:         in.UserAgent,
		IsBlocked:         action == domain.RiskActionBlock,
		Action:            action,
		CreatedAt:         now,
	}
	if err := e.log.RecordAssessment(ctx, assessment); err != nil {
		return domain.RiskAssessment{}, domain.Dependency("Risk evaluation failed", err)
	}
	return assessment, nil
}
