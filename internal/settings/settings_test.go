package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"tapx-earn-go/internal/cache"
	"tapx-earn-go/internal/database/dbtest"
	"tapx-earn-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestProvider_SeedsDefaultsOnFirstRead(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	p := NewProvider(db, cache.NewMemory(0), Defaults())

	s, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !s.BaseTapValue.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("Expected default base tap value, got %s", s.BaseTapValue)
	}
	if s.FreeLimit != 1000 || s.Vip1Limit != 5000 || s.Vip2Limit != 10000 {
		t.Errorf("Unexpected default limits: %d/%d/%d", s.FreeLimit, s.Vip1Limit, s.Vip2Limit)
	}

	var stored models.Settings
	if err := db.LoadSettings(ctx, &stored); err != nil {
		t.Fatalf("Expected defaults to be persisted: %v", err)
	}
}

func TestProvider_UpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	p := NewProvider(db, cache.NewMemory(time.Hour), Defaults())

	if _, err := p.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	bonus := decimal.NewFromInt(5)
	limit := int64(7)
	if _, err := p.Update(ctx, models.SettingsPatch{ReferralBonus: &bonus, Vip1Limit: &limit}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	s, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !s.ReferralBonus.Equal(bonus) {
		t.Errorf("Expected bonus %s after update, got %s", bonus, s.ReferralBonus)
	}
	if s.Vip1Limit != 7 {
		t.Errorf("Expected vip1 limit 7, got %d", s.Vip1Limit)
	}
	if s.FreeLimit != 1000 {
		t.Errorf("Untouched field changed: free limit %d", s.FreeLimit)
	}
}

func TestProvider_UpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	p := NewProvider(db, cache.NewMemory(0), Defaults())

	zero := decimal.Zero
	if _, err := p.Update(ctx, models.SettingsPatch{BaseTapValue: &zero}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Expected ErrInvalidSettings, got %v", err)
	}

	s, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !s.BaseTapValue.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("Rejected update leaked into store: %s", s.BaseTapValue)
	}
}

func TestProvider_ReadsStoredSettings(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	partial := Defaults()
	partial.BaseTapValue = decimal.RequireFromString("0.01")
	if err := db.SaveSettings(ctx, &partial); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	p := NewProvider(db, cache.NewMemory(0), Defaults())
	s, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !s.BaseTapValue.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("Expected stored base tap value, got %s", s.BaseTapValue)
	}
	if s.Vip2PriceStars != 150 {
		t.Errorf("Expected default vip2 price, got %d", s.Vip2PriceStars)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *models.Settings)
		wantErr bool
	}{
		{"defaults", func(s *models.Settings) {}, false},
		{"zero referral bonus", func(s *models.Settings) { s.ReferralBonus = decimal.Zero }, false},
		{"negative referral bonus", func(s *models.Settings) { s.ReferralBonus = decimal.NewFromInt(-1) }, true},
		{"zero multiplier", func(s *models.Settings) { s.Vip2Multiplier = decimal.Zero }, true},
		{"negative limit", func(s *models.Settings) { s.FreeLimit = -1 }, true},
		{"minimum above maximum", func(s *models.Settings) { s.MinWithdrawVip2 = decimal.NewFromInt(20000) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := Validate(&s)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApply_OnlyNonNilFields(t *testing.T) {
	base := Defaults()
	price := 99
	out := Apply(base, models.SettingsPatch{Vip1PriceStars: &price})

	if out.Vip1PriceStars != 99 {
		t.Errorf("Expected vip1 price 99, got %d", out.Vip1PriceStars)
	}
	if out.Vip2PriceStars != base.Vip2PriceStars || !out.BaseTapValue.Equal(base.BaseTapValue) {
		t.Error("Apply changed fields that were not in the patch")
	}
}
