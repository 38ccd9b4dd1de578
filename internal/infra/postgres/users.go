package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	err := s.db.NewSelect().Model(&u).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.db.NewSelect().Model(&u).Where("u.email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewUpdate().Model((*domain.User)(nil)).
		Set("is_email_verified = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return userUpdateResult("verify email", res, err)
}

func (s *Store) RecordLogin(ctx context.Context, id uuid.UUID, info domain.LoginInfo) error {
	res, err := s.db.NewUpdate().Model((*domain.User)(nil)).
		Set("last_login_at = ?", info.At).
		Set("ip_address = ?", info.IPAddress).
		Set("device_fingerprint = ?", info.DeviceFingerprint).
		Set("updated_at = ?", info.At).
		Where("id = ?", id).
		Exec(ctx)
	return userUpdateResult("record login", res, err)
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := s.db.NewUpdate().Model((*domain.User)(nil)).
		Set("password = ?", hash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return userUpdateResult("update password", res, err)
}

func userUpdateResult(op string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if notFound(res, nil) {
		return domain.ErrUserNotFound
	}
	return nil
}
