package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"quizrevenue/internal/domain"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer delivers OTP codes over SMTP.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	if cfg.FromName == "" {
		cfg.FromName = "QuizRevenue"
	}
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, email, code string, purpose domain.OtpPurpose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := renderOTP(code, purpose)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.From, m.cfg.FromName))
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	m.logger.Info("otp mail sent", zap.String("purpose", string(purpose)))
	return nil
}

// LogMailer writes codes to the log instead of sending them. Used when no SMTP host is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(_ context.Context, email, code string, purpose domain.OtpPurpose) error {
	m.logger.Debug("otp mail (not sent)",
		zap.String("email", email),
		zap.String("purpose", string(purpose)),
		zap.String("code", code),
	)
	return nil
}

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{.Heading}}</h2>
  <p>{{.Intro}}</p>
  <div style="background: #f4f4f4; padding: 20px; text-align: center; font-size: 32px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</div>
  <p>This code expires in 10 minutes.</p>
  <p>If you did not request this, you can ignore this email.</p>
</body>
</html>`))

func renderOTP(code string, purpose domain.OtpPurpose) (subject, body string, err error) {
	data := struct {
		Heading string
		Intro   string
		Code    string
	}{Code: code}

	switch purpose {
	case domain.OtpPurposePasswordReset:
		subject = "Reset your QuizRevenue password"
		data.Heading = "Password reset"
		data.Intro = "Use this code to choose a new password:"
	default:
		subject = "Verify your QuizRevenue account"
		data.Heading = "Welcome to QuizRevenue"
		data.Intro = "Use this code to verify your email address:"
	}

	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render otp mail: %w", err)
	}
	return subject, buf.String(), nil
}
