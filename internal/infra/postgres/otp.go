package postgres

import (
	"context"
	"fmt"
	"time"

	"quizrevenue/internal/domain"

	"github.com/uptrace/bun"
)

// ReplaceChallenge serializes issuers of the same (email, purpose) on a transaction-scoped
// advisory lock, then invalidates open challenges and inserts the new one.
func (s *Store) ReplaceChallenge(ctx context.Context, ch domain.OtpChallenge) (int, error) {
	invalidated := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", ch.Email+":"+string(ch.Purpose)); err != nil {
			return fmt.Errorf("lock challenge: %w", err)
		}
		res, err := tx.NewUpdate().Model((*domain.OtpChallenge)(nil)).
			Set("is_used = TRUE").
			Where("email = ?", ch.Email).
			Where("purpose = ?", ch.Purpose).
			Where("is_used = FALSE").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("invalidate challenges: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			invalidated = int(n)
		}
		if _, err := tx.NewInsert().Model(&ch).Exec(ctx); err != nil {
			return fmt.Errorf("insert challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return invalidated, nil
}

// ConsumeChallenge flips is_used in a single UPDATE so two verifiers cannot both win.
func (s *Store) ConsumeChallenge(ctx context.Context, email string, purpose domain.OtpPurpose, code string, now time.Time) (domain.OtpChallenge, error) {
	var ch domain.OtpChallenge
	res, err := s.db.NewUpdate().Model(&ch).
		Set("is_used = TRUE").
		Where("email = ?", email).
		Where("purpose = ?", purpose).
		Where("otp = ?", code).
		Where("is_used = FALSE").
		Where("expires_at >= ?", now).
		Returning("*").
		Exec(ctx)
	if notFound(res, err) {
		return domain.OtpChallenge{}, domain.ErrOtpNoMatch
	}
	if err != nil {
		return domain.OtpChallenge{}, fmt.Errorf("consume challenge: %w", err)
	}
	return ch, nil
}
