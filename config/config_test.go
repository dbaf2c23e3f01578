package config

import (
	"testing"

	"internflow/policy"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/internflow")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Policy != policy.Default() {
		t.Fatalf("expected default policy, got %+v", cfg.Policy)
	}
	if cfg.AMQPURL != "" {
		t.Fatalf("AMQP_URL should default to empty, got %q", cfg.AMQPURL)
	}
}

func TestLoad_PolicyOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_INTERNSHIP_DAYS", "45")
	t.Setenv("MIN_APPROVED_HOURS", "180")
	t.Setenv("PASS_MARK", "65")
	t.Setenv("MAX_DAILY_HOURS", "10")
	t.Setenv("NOTIFICATIONS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := policy.Policy{
		MinInternshipDays:    45,
		MinApprovedHours:     180,
		PassMark:             65,
		MaxDailyHours:        10,
		NotificationsEnabled: false,
	}
	if cfg.Policy != want {
		t.Fatalf("expected %+v, got %+v", want, cfg.Policy)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"JWT_SECRET": "s"}},
		{"missing jwt secret", map[string]string{"DATABASE_URL": "postgres://x"}},
		{"unparsable pass mark", map[string]string{
			"DATABASE_URL": "postgres://x", "JWT_SECRET": "s", "PASS_MARK": "seventy",
		}},
		{"pass mark out of range", map[string]string{
			"DATABASE_URL": "postgres://x", "JWT_SECRET": "s", "PASS_MARK": "101",
		}},
		{"daily cap out of range", map[string]string{
			"DATABASE_URL": "postgres://x", "JWT_SECRET": "s", "MAX_DAILY_HOURS": "30",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
