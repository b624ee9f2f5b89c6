package tier

import (
	"testing"
	"time"

	"tapx-earn-go/internal/models"

	"github.com/shopspring/decimal"
)

func testSettings() *models.Settings {
	return &models.Settings{
		BaseTapValue:    decimal.RequireFromString("0.002"),
		FreeMultiplier:  decimal.NewFromInt(1),
		Vip1Multiplier:  decimal.NewFromInt(2),
		Vip2Multiplier:  decimal.RequireFromString("2.5"),
		FreeLimit:       1000,
		Vip1Limit:       5000,
		Vip2Limit:       10000,
		MinWithdrawFree: decimal.NewFromInt(200),
		MinWithdrawVip1: decimal.NewFromInt(250),
		MinWithdrawVip2: decimal.NewFromInt(500),
		WithdrawLimFree: 1,
		WithdrawLimVip1: 3,
		WithdrawLimVip2: 5,
		Vip1PriceStars:  75,
		Vip2PriceStars:  150,
	}
}

func TestResolve(t *testing.T) {
	s := testSettings()
	tests := []struct {
		tier       models.Tier
		want       models.Tier
		multiplier string
		limit      int64
		minimum    int64
		count      int
	}{
		{models.TierFree, models.TierFree, "1", 1000, 200, 1},
		{models.TierVip1, models.TierVip1, "2", 5000, 250, 3},
		{models.TierVip2, models.TierVip2, "2.5", 10000, 500, 5},
		{models.Tier("gold"), models.TierFree, "1", 1000, 200, 1},
		{models.Tier(""), models.TierFree, "1", 1000, 200, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			got := Resolve(tt.tier, s)
			if got.Tier != tt.want {
				t.Errorf("Expected tier %s, got %s", tt.want, got.Tier)
			}
			if !got.Multiplier.Equal(decimal.RequireFromString(tt.multiplier)) {
				t.Errorf("Expected multiplier %s, got %s", tt.multiplier, got.Multiplier)
			}
			if got.DailyTapLimit != tt.limit {
				t.Errorf("Expected limit %d, got %d", tt.limit, got.DailyTapLimit)
			}
			if !got.MinWithdrawal.Equal(decimal.NewFromInt(tt.minimum)) {
				t.Errorf("Expected minimum %d, got %s", tt.minimum, got.MinWithdrawal)
			}
			if got.WithdrawalLimit != tt.count {
				t.Errorf("Expected withdrawal count limit %d, got %d", tt.count, got.WithdrawalLimit)
			}
		})
	}
}

func TestEffective(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name   string
		tier   models.Tier
		expiry *time.Time
		want   models.Tier
	}{
		{"free", models.TierFree, nil, models.TierFree},
		{"active vip1", models.TierVip1, &future, models.TierVip1},
		{"expired vip2", models.TierVip2, &past, models.TierFree},
		{"expiring exactly now", models.TierVip2, &now, models.TierFree},
		{"vip without expiry", models.TierVip1, nil, models.TierFree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &models.User{VipTier: tt.tier, VipExpiry: tt.expiry}
			if got := Effective(u, now); got != tt.want {
				t.Errorf("Effective() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	in30 := now.Add(30 * 24 * time.Hour)
	inHalfDay := now.Add(12 * time.Hour)

	if got := DaysLeft(&models.User{VipTier: models.TierVip1, VipExpiry: &in30}, now); got != 30 {
		t.Errorf("Expected 30 days, got %d", got)
	}
	if got := DaysLeft(&models.User{VipTier: models.TierVip1, VipExpiry: &inHalfDay}, now); got != 1 {
		t.Errorf("Expected partial day to round up to 1, got %d", got)
	}
	if got := DaysLeft(&models.User{VipTier: models.TierFree}, now); got != 0 {
		t.Errorf("Expected 0 days for free tier, got %d", got)
	}
}

func TestParse(t *testing.T) {
	if tier, ok := Parse("vip2"); !ok || tier != models.TierVip2 {
		t.Errorf("Expected vip2, got %s ok=%v", tier, ok)
	}
	if _, ok := Parse("platinum"); ok {
		t.Error("Expected unknown tier to be rejected")
	}
}
