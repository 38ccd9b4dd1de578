package app

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

func (s *OtpService) SetClock(now func() time.Time) { s.now = now }

func (s *OtpService) SetGenerator(gen func() (string, error)) { s.generate = gen }

// UseMinCost keeps bcrypt fast in tests.
func (s *AuthService) UseMinCost() { s.cost = bcrypt.MinCost }

func (e *RiskEvaluator) SetClock(now func() time.Time) { e.now = now }
