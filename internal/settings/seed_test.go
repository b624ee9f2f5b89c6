package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write seed: %v", err)
	}
	return path
}

func TestSeedDefaults(t *testing.T) {
	path := writeSeed(t, `
base_tap_value: "0.005"
referral_bonus: "0"
vip1_limit: 7000
withdrawal_limit_free: 2
`)
	s, err := SeedDefaults(path)
	if err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if !s.BaseTapValue.Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("Expected base 0.005, got %s", s.BaseTapValue)
	}
	if !s.ReferralBonus.IsZero() {
		t.Errorf("Expected explicit zero bonus to be kept, got %s", s.ReferralBonus)
	}
	if s.Vip1Limit != 7000 || s.WithdrawLimFree != 2 {
		t.Errorf("Integer overrides not applied: vip1=%d free=%d", s.Vip1Limit, s.WithdrawLimFree)
	}
	// Untouched keys keep defaults
	if s.FreeLimit != Defaults().FreeLimit {
		t.Errorf("Expected default free limit, got %d", s.FreeLimit)
	}
}

func TestSeedDefaults_NoFile(t *testing.T) {
	s, err := SeedDefaults("")
	if err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if !s.BaseTapValue.Equal(Defaults().BaseTapValue) {
		t.Errorf("Expected defaults, got %s", s.BaseTapValue)
	}
}

func TestSeedDefaults_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not a decimal", `base_tap_value: "abc"`},
		{"unknown key", `base_tap: "0.1"`},
		{"invalid value", `base_tap_value: "-1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SeedDefaults(writeSeed(t, tt.content)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	_, err := SeedDefaults(writeSeed(t, `max_withdrawal: "-5"`))
	if !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings, got %v", err)
	}
	if _, err := SeedDefaults(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestMarshalSeed_RoundTrip(t *testing.T) {
	d := Defaults()
	data, err := MarshalSeed(&d)
	if err != nil {
		t.Fatalf("MarshalSeed failed: %v", err)
	}
	path := writeSeed(t, string(data))
	s, err := SeedDefaults(path)
	if err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if !s.BaseTapValue.Equal(d.BaseTapValue) || s.Vip2Limit != d.Vip2Limit || !s.MaxWithdrawal.Equal(d.MaxWithdrawal) {
		t.Errorf("Round trip changed settings: %+v", s)
	}
}
