package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"tapx-earn-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// SeedFile is the YAML layout of a settings seed. Decimals are strings so
// that values like 0.002 survive without float rounding.
type SeedFile struct {
	BaseTapValue    string `yaml:"base_tap_value,omitempty"`
	ReferralBonus   string `yaml:"referral_bonus,omitempty"`
	FreeMultiplier  string `yaml:"free_multiplier,omitempty"`
	Vip1Multiplier  string `yaml:"vip1_multiplier,omitempty"`
	Vip2Multiplier  string `yaml:"vip2_multiplier,omitempty"`
	FreeLimit       *int64 `yaml:"free_limit,omitempty"`
	Vip1Limit       *int64 `yaml:"vip1_limit,omitempty"`
	Vip2Limit       *int64 `yaml:"vip2_limit,omitempty"`
	MinWithdrawFree string `yaml:"min_withdrawal_free,omitempty"`
	MinWithdrawVip1 string `yaml:"min_withdrawal_vip1,omitempty"`
	MinWithdrawVip2 string `yaml:"min_withdrawal_vip2,omitempty"`
	MaxWithdrawal   string `yaml:"max_withdrawal,omitempty"`
	WithdrawLimFree *int   `yaml:"withdrawal_limit_free,omitempty"`
	WithdrawLimVip1 *int   `yaml:"withdrawal_limit_vip1,omitempty"`
	WithdrawLimVip2 *int   `yaml:"withdrawal_limit_vip2,omitempty"`
	Vip1PriceStars  *int   `yaml:"vip1_price_stars,omitempty"`
	Vip2PriceStars  *int   `yaml:"vip2_price_stars,omitempty"`
	ExchangeRate    string `yaml:"inr_exchange_rate,omitempty"`
}

// LoadSeedFile reads a YAML seed and returns it as a patch over Defaults.
func LoadSeedFile(seedFile string) (models.SettingsPatch, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return models.SettingsPatch{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return models.SettingsPatch{}, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	var seed SeedFile
	if err := yaml.UnmarshalStrict(data, &seed); err != nil {
		return models.SettingsPatch{}, fmt.Errorf("unable to parse %s: %w", seedFile, err)
	}

	patch, err := seed.Patch()
	if err != nil {
		return models.SettingsPatch{}, fmt.Errorf("invalid %s: %w", seedFile, err)
	}
	return patch, nil
}

// SeedDefaults returns Defaults with the seed file applied, or plain Defaults
// when seedFile is empty.
func SeedDefaults(seedFile string) (models.Settings, error) {
	defaults := Defaults()
	if seedFile == "" {
		return defaults, nil
	}
	patch, err := LoadSeedFile(seedFile)
	if err != nil {
		return models.Settings{}, err
	}
	seeded := Apply(defaults, patch)
	if err := Validate(&seeded); err != nil {
		return models.Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return seeded, nil
}

// Patch converts the seed into a SettingsPatch
func (f SeedFile) Patch() (models.SettingsPatch, error) {
	patch := models.SettingsPatch{
		FreeLimit:       f.FreeLimit,
		Vip1Limit:       f.Vip1Limit,
		Vip2Limit:       f.Vip2Limit,
		WithdrawLimFree: f.WithdrawLimFree,
		WithdrawLimVip1: f.WithdrawLimVip1,
		WithdrawLimVip2: f.WithdrawLimVip2,
		Vip1PriceStars:  f.Vip1PriceStars,
		Vip2PriceStars:  f.Vip2PriceStars,
	}

	decimals := []struct {
		key string
		raw string
		dst **decimal.Decimal
	}{
		{"base_tap_value", f.BaseTapValue, &patch.BaseTapValue},
		{"referral_bonus", f.ReferralBonus, &patch.ReferralBonus},
		{"free_multiplier", f.FreeMultiplier, &patch.FreeMultiplier},
		{"vip1_multiplier", f.Vip1Multiplier, &patch.Vip1Multiplier},
		{"vip2_multiplier", f.Vip2Multiplier, &patch.Vip2Multiplier},
		{"min_withdrawal_free", f.MinWithdrawFree, &patch.MinWithdrawFree},
		{"min_withdrawal_vip1", f.MinWithdrawVip1, &patch.MinWithdrawVip1},
		{"min_withdrawal_vip2", f.MinWithdrawVip2, &patch.MinWithdrawVip2},
		{"max_withdrawal", f.MaxWithdrawal, &patch.MaxWithdrawal},
		{"inr_exchange_rate", f.ExchangeRate, &patch.ExchangeRate},
	}
	for _, d := range decimals {
		if d.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(d.raw)
		if err != nil {
			return models.SettingsPatch{}, fmt.Errorf("%s: %q is not a decimal", d.key, d.raw)
		}
		*d.dst = &v
	}
	return patch, nil
}

// ToSeed renders settings in seed file form
func ToSeed(s *models.Settings) SeedFile {
	return SeedFile{
		BaseTapValue:    s.BaseTapValue.String(),
		ReferralBonus:   s.ReferralBonus.String(),
		FreeMultiplier:  s.FreeMultiplier.String(),
		Vip1Multiplier:  s.Vip1Multiplier.String(),
		Vip2Multiplier:  s.Vip2Multiplier.String(),
		FreeLimit:       &s.FreeLimit,
		Vip1Limit:       &s.Vip1Limit,
		Vip2Limit:       &s.Vip2Limit,
		MinWithdrawFree: s.MinWithdrawFree.String(),
		MinWithdrawVip1: s.MinWithdrawVip1.String(),
		MinWithdrawVip2: s.MinWithdrawVip2.String(),
		MaxWithdrawal:   s.MaxWithdrawal.String(),
		WithdrawLimFree: &s.WithdrawLimFree,
		WithdrawLimVip1: &s.WithdrawLimVip1,
		WithdrawLimVip2: &s.WithdrawLimVip2,
		Vip1PriceStars:  &s.Vip1PriceStars,
		Vip2PriceStars:  &s.Vip2PriceStars,
		ExchangeRate:    s.ExchangeRate.String(),
	}
}

// MarshalSeed renders settings as seed YAML
func MarshalSeed(s *models.Settings) ([]byte, error) {
	return yaml.Marshal(ToSeed(s))
}
