package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"quizrevenue/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest creates an unverified account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone"`
	Region    string `json:"region"`
	Country   string `json:"country"`
	State     string `json:"state"`
}

type RegisterResult struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResult is an established session plus the user it belongs to.
type AuthResult struct {
	Token string      `json:"-"`
	User  domain.User `json:"user"`
}

// AuthService owns registration, email verification, login and sessions.
type AuthService struct {
	users    UserRepository
	otp      *OtpService
	sessions SessionStore
	metrics  *Metrics
	logger   *zap.Logger
	validate *validator.Validate
	cost     int
	now      func() time.Time
}

func NewAuthService(users UserRepository, otp *OtpService, sessions SessionStore, metrics *Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		otp:      otp,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		validate: newValidator(),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the account and mails a registration code.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (res RegisterResult, err error) {
	defer func() { s.metrics.observeAuth("register", err) }()

	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, "Invalid registration", req); err != nil {
		return RegisterResult{}, err
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return RegisterResult{}, domain.ErrEmailRegistered
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return RegisterResult{}, domain.Dependency("Registration failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return RegisterResult{}, domain.Dependency("Registration failed", err)
	}
	now := s.now()
	user := &domain.User{
		ID:            uuid.New(),
		Email:         req.Email,
		PasswordHash:  string(hash),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Region:        req.Region,
		Country:       strings.TrimSpace(req.Country),
		State:         strings.TrimSpace(req.State),
		Role:          domain.RoleUser,
		IsActive:      true,
		TotalEarnings: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return RegisterResult{}, domain.ErrEmailRegistered
		}
		return RegisterResult{}, domain.Dependency("Registration failed", err)
	}

	if _, err := s.otp.Issue(ctx, user.ID, user.Email, domain.OtpPurposeRegistration); err != nil {
		return RegisterResult{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// VerifyOTP consumes a registration code, marks the email verified and opens a session.
func (s *AuthService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, "Invalid verification", req); err != nil {
		return AuthResult{}, err
	}
	if _, err := s.otp.Verify(ctx, req.Email, domain.OtpPurposeRegistration, req.OTP); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return AuthResult{}, domain.ErrUserNotFound
		}
		return AuthResult{}, domain.Dependency("Verification failed", err)
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return AuthResult{}, domain.Dependency("Verification failed", err)
	}
	user.IsEmailVerified = true

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

// ResendOTP issues a fresh registration code for an unverified account.
func (s *AuthService) ResendOTP(ctx context.Context, req ResendOTPRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, "Invalid request", req); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return domain.Dependency("Failed to resend code", err)
	}
	if user.IsEmailVerified {
		return domain.ErrAlreadyVerified
	}
	_, err = s.otp.Issue(ctx, user.ID, user.Email, domain.OtpPurposeRegistration)
	return err
}

// Login checks credentials, then verification, then suspension, in that order.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (res AuthResult, err error) {
	defer func() { s.metrics.observeAuth("login", err) }()

	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, "Invalid login", req); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// keep timing close to the wrong-password path
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return AuthResult{}, domain.ErrInvalidCredentials
		}
		return AuthResult{}, domain.Dependency("Login failed", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return AuthResult{}, domain.ErrEmailNotVerified
	}
	if !user.IsActive {
		return AuthResult{}, domain.ErrAccountSuspended
	}

	now := s.now()
	info := domain.LoginInfo{At: now, IPAddress: client.IPAddress, DeviceFingerprint: client.Fingerprint()}
	if err := s.users.RecordLogin(ctx, user.ID, info); err != nil {
		return AuthResult{}, domain.Dependency("Login failed", err)
	}
	user.LastLoginAt = &now
	user.IPAddress = info.IPAddress
	user.DeviceFingerprint = info.DeviceFingerprint

	token, err := s.openSession(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

// Logout drops the session. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return domain.Dependency("Logout failed", err)
	}
	return nil
}

// Authenticate resolves a session token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	if err != nil {
		return domain.User{}, domain.Dependency("Session lookup failed", err)
	}
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	if err != nil {
		return domain.User{}, domain.Dependency("Session lookup failed", err)
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrAccountSuspended
	}
	return user, nil
}

// ForgotPassword mails a reset code to a known address. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, "Invalid request", req); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return domain.Dependency("Failed to send reset code", err)
	}
	_, err = s.otp.Issue(ctx, user.ID, user.Email, domain.OtpPurposePasswordReset)
	return err
}

// ResetPassword consumes a password_reset code and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(s.validate, "Invalid request", req); err != nil {
		return err
	}
	if _, err := s.otp.Verify(ctx, req.Email, domain.OtpPurposePasswordReset, req.OTP); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOTP
		}
		return domain.Dependency("Password reset failed", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return domain.Dependency("Password reset failed", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return domain.Dependency("Password reset failed", err)
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// SeedAccount is a pre-verified account created outside the registration flow.
type SeedAccount struct {
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=8"`
	FirstName string      `json:"firstName" validate:"required"`
	LastName  string      `json:"lastName"`
	Role      domain.Role `json:"role" validate:"required"`
	Region    string      `json:"region"`
	Country   string      `json:"country"`
	State     string      `json:"state"`
}

// EnsureAccount creates acc unless its email is already registered.
// created is false when an existing account was returned untouched.
func (s *AuthService) EnsureAccount(ctx context.Context, acc SeedAccount) (user domain.User, created bool, err error) {
	acc.Email = normalizeEmail(acc.Email)
	if err := validateRequest(s.validate, "Invalid account", acc); err != nil {
		return domain.User{}, false, err
	}
	if !acc.Role.Valid() {
		return domain.User{}, false, domain.Validation("Invalid account", map[string]string{"role": "is not a known role"})
	}

	existing, err := s.users.GetUserByEmail(ctx, acc.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, false, domain.Dependency("Failed to create account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), s.cost)
	if err != nil {
		return domain.User{}, false, domain.Dependency("Failed to create account", err)
	}
	now := s.now()
	user = domain.User{
		ID:              uuid.New(),
		Email:           acc.Email,
		PasswordHash:    string(hash),
		FirstName:       acc.FirstName,
		LastName:        acc.LastName,
		Role:            acc.Role,
		Region:          acc.Region,
		Country:         acc.Country,
		State:           acc.State,
		IsEmailVerified: true,
		IsActive:        true,
		TotalEarnings:   decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.User{}, false, domain.ErrEmailRegistered
		}
		return domain.User{}, false, domain.Dependency("Failed to create account", err)
	}
	s.logger.Info("account seeded", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return user, true, nil
}

func (s *AuthService) openSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", domain.Dependency("Failed to create session", err)
	}
	if err := s.sessions.Save(ctx, token, userID); err != nil {
		return "", domain.Dependency("Failed to create session", err)
	}
	return token, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// dummyHash is compared against when the account does not exist.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
