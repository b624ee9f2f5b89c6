/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package settings

import (
	"context"
	"errors"
	"fmt"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidSettings wraps every validation failure of an admin update
var ErrInvalidSettings = errors.New("invalid settings")

// Cache holds the last known settings snapshot. Implementations must drop
// the snapshot on Invalidate.
type Cache interface {
	Get(ctx context.Context) (*models.Settings, bool, error)
	Set(ctx context.Context, s *models.Settings) error
	Invalidate(ctx context.Context) error
}

// Defaults returns the economic parameters used when nothing is stored.
func Defaults() models.Settings {
	return models.Settings{
		BaseTapValue:    decimal.RequireFromString("0.002"),
		ReferralBonus:   decimal.NewFromInt(1),
		FreeMultiplier:  decimal.NewFromInt(1),
		Vip1Multiplier:  decimal.NewFromInt(2),
		Vip2Multiplier:  decimal.RequireFromString("2.5"),
		FreeLimit:       1000,
		Vip1Limit:       5000,
		Vip2Limit:       10000,
		MinWithdrawFree: decimal.NewFromInt(200),
		MinWithdrawVip1: decimal.NewFromInt(250),
		MinWithdrawVip2: decimal.NewFromInt(500),
		MaxWithdrawal:   decimal.NewFromInt(10000),
		WithdrawLimFree: 1,
		WithdrawLimVip1: 3,
		WithdrawLimVip2: 5,
		Vip1PriceStars:  75,
		Vip2PriceStars:  150,
		ExchangeRate:    decimal.NewFromInt(1),
	}
}

// Provider loads the settings singleton, creating it from defaults on first
// read, and keeps the cache coherent with admin updates.
type Provider struct {
	store    store.LedgerStore
	cache    Cache
	defaults models.Settings
}

func NewProvider(s store.LedgerStore, cache Cache, defaults models.Settings) *Provider {
	return &Provider{store: s, cache: cache, defaults: defaults}
}

// Get returns the current settings. Fields missing from the stored document
// keep their default values.
func (p *Provider) Get(ctx context.Context) (*models.Settings, error) {
	if cached, ok, err := p.cache.Get(ctx); err != nil {
		zap.L().Warn("Settings cache read failed, falling back to store", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	loaded := p.defaults
	err := p.store.LoadSettings(ctx, &loaded)
	if errors.Is(err, store.ErrSettingsNotFound) {
		zap.L().Info("No stored settings, seeding defaults")
		defaults := p.defaults
		if _, err = p.store.InsertSettingsIfAbsent(ctx, &defaults); err == nil {
			// Another process may have won the insert
			loaded = p.defaults
			err = p.store.LoadSettings(ctx, &loaded)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load settings: %w", err)
	}

	if err := p.cache.Set(ctx, &loaded); err != nil {
		zap.L().Warn("Failed to cache settings", zap.Error(err))
	}
	return &loaded, nil
}

// Update applies an admin patch, persists the result and invalidates the cache.
func (p *Provider) Update(ctx context.Context, patch models.SettingsPatch) (*models.Settings, error) {
	current, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}

	updated := Apply(*current, patch)
	if err := Validate(&updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	if err := p.store.SaveSettings(ctx, &updated); err != nil {
		return nil, fmt.Errorf("unable to save settings: %w", err)
	}
	if err := p.cache.Invalidate(ctx); err != nil {
		zap.L().Warn("Failed to invalidate settings cache", zap.Error(err))
	}

	zap.L().Info("Settings updated",
		zap.String("base_tap_value", updated.BaseTapValue.String()),
		zap.String("referral_bonus", updated.ReferralBonus.String()))
	return &updated, nil
}

// Apply overlays the non-nil fields of patch onto base.
func Apply(base models.Settings, patch models.SettingsPatch) models.Settings {
	out := base
	setDecimal(&out.BaseTapValue, patch.BaseTapValue)
	setDecimal(&out.ReferralBonus, patch.ReferralBonus)
	setDecimal(&out.FreeMultiplier, patch.FreeMultiplier)
	setDecimal(&out.Vip1Multiplier, patch.Vip1Multiplier)
	setDecimal(&out.Vip2Multiplier, patch.Vip2Multiplier)
	setDecimal(&out.MinWithdrawFree, patch.MinWithdrawFree)
	setDecimal(&out.MinWithdrawVip1, patch.MinWithdrawVip1)
	setDecimal(&out.MinWithdrawVip2, patch.MinWithdrawVip2)
	setDecimal(&out.MaxWithdrawal, patch.MaxWithdrawal)
	setDecimal(&out.ExchangeRate, patch.ExchangeRate)
	if patch.FreeLimit != nil {
		out.FreeLimit = *patch.FreeLimit
	}
	if patch.Vip1Limit != nil {
		out.Vip1Limit = *patch.Vip1Limit
	}
	if patch.Vip2Limit != nil {
		out.Vip2Limit = *patch.Vip2Limit
	}
	if patch.WithdrawLimFree != nil {
		out.WithdrawLimFree = *patch.WithdrawLimFree
	}
	if patch.WithdrawLimVip1 != nil {
		out.WithdrawLimVip1 = *patch.WithdrawLimVip1
	}
	if patch.WithdrawLimVip2 != nil {
		out.WithdrawLimVip2 = *patch.WithdrawLimVip2
	}
	if patch.Vip1PriceStars != nil {
		out.Vip1PriceStars = *patch.Vip1PriceStars
	}
	if patch.Vip2PriceStars != nil {
		out.Vip2PriceStars = *patch.Vip2PriceStars
	}
	return out
}

// Validate rejects settings that would break accrual or withdrawals.
func Validate(s *models.Settings) error {
	positive := map[string]decimal.Decimal{
		"base_tap_value":  s.BaseTapValue,
		"free_multiplier": s.FreeMultiplier,
		"vip1_multiplier": s.Vip1Multiplier,
		"vip2_multiplier": s.Vip2Multiplier,
		"max_withdrawal":  s.MaxWithdrawal,
	}
	for name, v := range positive {
		if !v.IsPositive() {
			return fmt.Errorf("%s must be positive, got %s", name, v)
		}
	}
	if s.ReferralBonus.IsNegative() {
		return fmt.Errorf("referral_bonus cannot be negative, got %s", s.ReferralBonus)
	}
	for name, v := range map[string]int64{"free_limit": s.FreeLimit, "vip1_limit": s.Vip1Limit, "vip2_limit": s.Vip2Limit} {
		if v < 0 {
			return fmt.Errorf("%s cannot be negative, got %d", name, v)
		}
	}
	for name, v := range map[string]decimal.Decimal{"min_withdrawal_free": s.MinWithdrawFree, "min_withdrawal_vip1": s.MinWithdrawVip1, "min_withdrawal_vip2": s.MinWithdrawVip2} {
		if v.IsNegative() {
			return fmt.Errorf("%s cannot be negative, got %s", name, v)
		}
		if v.GreaterThan(s.MaxWithdrawal) {
			return fmt.Errorf("%s %s exceeds max_withdrawal %s", name, v, s.MaxWithdrawal)
		}
	}
	return nil
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}
