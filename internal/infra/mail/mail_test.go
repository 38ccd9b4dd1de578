package mail

import (
	"context"
	"strings"
	"testing"

	"quizrevenue/internal/domain"

	"go.uber.org/zap"
)

func TestRenderOTPByPurpose(t *testing.T) {
	subject, body, err := renderOTP("123456", domain.OtpPurposeRegistration)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "Verify") {
		t.Fatalf("unexpected registration subject %q", subject)
	}
	if !strings.Contains(body, "123456") {
		t.Fatalf("code missing from body")
	}

	subject, _, err = renderOTP("654321", domain.OtpPurposePasswordReset)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "Reset") {
		t.Fatalf("unexpected reset subject %q", subject)
	}
}

func TestSMTPMailerHonoursCanceledContext(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@example.com"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.SendOTP(ctx, "a@b.com", "123456", domain.OtpPurposeRegistration); err == nil {
		t.Fatalf("expected canceled context error")
	}
}

func TestLogMailerNeverFails(t *testing.T) {
	if err := NewLogMailer(zap.NewNop()).SendOTP(context.Background(), "a@b.com", "123456", domain.OtpPurposeRegistration); err != nil {
		t.Fatalf("log mailer: %v", err)
	}
}
