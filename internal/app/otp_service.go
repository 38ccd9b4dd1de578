package app

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	otpMin        = 100000
	otpSpan       = 900000
	defaultOtpTTL = 10 * time.Minute
)

// GenerateOTP draws a 6-digit code uniformly from 100000-999999.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// OtpService issues and verifies single-use email codes.
type OtpService struct {
	repo     OtpRepository
	mailer   Mailer
	ttl      time.Duration
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
	generate func() (string, error)
}

func NewOtpService(repo OtpRepository, mailer Mailer, ttl time.Duration, metrics *Metrics, logger *zap.Logger) *OtpService {
	if ttl <= 0 {
		ttl = defaultOtpTTL
	}
	return &OtpService{
		repo:     repo,
		mailer:   mailer,
		ttl:      ttl,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		generate: GenerateOTP,
	}
}

// Issue replaces any open challenge for (email, purpose) and mails the new code.
// A delivery failure is returned as-is; the caller must request a resend.
func (s *OtpService) Issue(ctx context.Context, userID uuid.UUID, email string, purpose domain.OtpPurpose) (domain.OtpChallenge, error) {
	code, err := s.generate()
	if err != nil {
		return domain.OtpChallenge{}, domain.Dependency("Failed to generate code", err)
	}
	now := s.now()
	ch := domain.OtpChallenge{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	invalidated, err := s.repo.ReplaceChallenge(ctx, ch)
	if err != nil {
		return domain.OtpChallenge{}, domain.Dependency("Failed to issue code", err)
	}
	if err := s.mailer.SendOTP(ctx, email, code, purpose); err != nil {
		s.metrics.observeOTP(string(purpose), "send_failed")
		s.logger.Error("otp delivery failed", zap.String("email", email), zap.String("purpose", string(purpose)), zap.Error(err))
		return domain.OtpChallenge{}, domain.Dependency("Failed to send verification email", err)
	}
	s.metrics.observeOTP(string(purpose), "issued")
	s.logger.Debug("otp issued", zap.String("email", email), zap.String("purpose", string(purpose)), zap.Int("invalidated", invalidated))
	return ch, nil
}

// Verify consumes the matching challenge. Wrong, expired and already-used codes all
// yield domain.ErrInvalidOTP.
func (s *OtpService) Verify(ctx context.Context, email string, purpose domain.OtpPurpose, code string) (domain.OtpChallenge, error) {
	ch, err := s.repo.ConsumeChallenge(ctx, email, purpose, code, s.now())
	if errors.Is(err, domain.ErrOtpNoMatch) {
		s.metrics.observeOTP(string(purpose), "rejected")
		return domain.OtpChallenge{}, domain.ErrInvalidOTP
	}
	if err != nil {
		return domain.OtpChallenge{}, domain.Dependency("Failed to verify code", err)
	}
	s.metrics.observeOTP(string(purpose), "verified")
	return ch, nil
}
