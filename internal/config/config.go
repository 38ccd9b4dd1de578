package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		CookieSecure bool   `yaml:"cookie_secure"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"min=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Session struct {
		TTL        string `yaml:"ttl"`
		CookieName string `yaml:"cookie_name"`
	} `yaml:"session"`
	OTP struct {
		TTL string `yaml:"ttl"`
	} `yaml:"otp"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from" validate:"required_with=Host,omitempty,email"`
	} `yaml:"smtp"`
	Revenue struct {
		Min        float64 `yaml:"min" validate:"gte=0"`
		Max        float64 `yaml:"max" validate:"gtefield=Min"`
		UserShare  float64 `yaml:"user_share" validate:"gte=0,lte=1"`
		PayBlocked bool    `yaml:"pay_blocked"`
	} `yaml:"revenue"`
	Risk struct {
		Clamp bool `yaml:"clamp"`
	} `yaml:"risk"`
	Log struct {
		Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Format      string `yaml:"format" validate:"omitempty,oneof=json console"`
		Output      string `yaml:"output" validate:"omitempty,oneof=stdout stderr file"`
		FilePath    string `yaml:"file_path"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Default returns the values used for anything the file leaves out.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Session.CookieName = "quizrevenue_session"
	cfg.SMTP.Port = 587
	cfg.Revenue.Min = 1
	cfg.Revenue.Max = 6
	cfg.Revenue.UserShare = 0.8
	cfg.Risk.Clamp = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Log.Output = "stdout"
	return cfg
}

// Load reads YAML config from path over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return err
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
