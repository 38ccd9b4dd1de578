package http

import (
	"net/http"
	"strings"
	"time"

	"quizrevenue/internal/app"
	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type authHandler struct {
	auth *app.AuthService
	opts Options
}

type registerResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
	Email   string    `json:"email"`
}

type sessionResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}

func (h *authHandler) register(c echo.Context) error {
	var req app.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResponse{
		Message: "Registration successful. Please check your email for verification code.",
		UserID:  res.UserID,
		Email:   res.Email,
	})
}

func (h *authHandler) verifyOTP(c echo.Context) error {
	var req app.VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.VerifyOTP(c.Request().Context(), req)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, res.Token)
	return c.JSON(http.StatusOK, sessionResponse{Message: "Email verified successfully", User: res.User})
}

func (h *authHandler) resendOTP(c echo.Context) error {
	var req app.ResendOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResendOTP(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "OTP sent successfully"})
}

func (h *authHandler) login(c echo.Context) error {
	var req app.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.Request().Context(), req, clientInfo(c))
	if err != nil {
		return err
	}
	h.setSessionCookie(c, res.Token)
	return c.JSON(http.StatusOK, sessionResponse{Message: "Login successful", User: res.User})
}

func (h *authHandler) logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), h.token(c)); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, messageResponse{Message: "Logout successful"})
}

func (h *authHandler) currentUser(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}

func (h *authHandler) forgotPassword(c echo.Context) error {
	var req app.ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ForgotPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "If the email is registered, a reset code has been sent"})
}

func (h *authHandler) resetPassword(c echo.Context) error {
	var req app.ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset successful"})
}

// requireAuth resolves the session cookie (or bearer token) and stores the user on the context.
func (h *authHandler) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := h.auth.Authenticate(c.Request().Context(), h.token(c))
		if err != nil {
			return err
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

func (h *authHandler) token(c echo.Context) string {
	if cookie, err := c.Cookie(h.opts.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if bearer, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}

func (h *authHandler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.opts.SessionTTL),
		MaxAge:   int(h.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
