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

package tier

import (
	"time"

	"tapx-earn-go/internal/models"
)

// Resolve maps a tier to what it grants under the given settings. Unknown
// tiers resolve to the free tier.
func Resolve(t models.Tier, s *models.Settings) models.TierLimits {
	switch t {
	case models.TierVip1:
		return models.TierLimits{
			Tier:            models.TierVip1,
			Multiplier:      s.Vip1Multiplier,
			DailyTapLimit:   s.Vip1Limit,
			MinWithdrawal:   s.MinWithdrawVip1,
			WithdrawalLimit: s.WithdrawLimVip1,
			PriceStars:      s.Vip1PriceStars,
		}
	case models.TierVip2:
		return models.TierLimits{
			Tier:            models.TierVip2,
			Multiplier:      s.Vip2Multiplier,
			DailyTapLimit:   s.Vip2Limit,
			MinWithdrawal:   s.MinWithdrawVip2,
			WithdrawalLimit: s.WithdrawLimVip2,
			PriceStars:      s.Vip2PriceStars,
		}
	default:
		return models.TierLimits{
			Tier:            models.TierFree,
			Multiplier:      s.FreeMultiplier,
			DailyTapLimit:   s.FreeLimit,
			MinWithdrawal:   s.MinWithdrawFree,
			WithdrawalLimit: s.WithdrawLimFree,
		}
	}
}

// Effective returns the tier that should be honoured at now. A VIP tier with
// a missing or past expiry collapses to free.
func Effective(u *models.User, now time.Time) models.Tier {
	if !IsVip(u.VipTier) {
		return models.TierFree
	}
	if u.VipExpiry == nil || !now.Before(*u.VipExpiry) {
		return models.TierFree
	}
	return u.VipTier
}

// IsVip reports whether t is one of the paid tiers
func IsVip(t models.Tier) bool {
	return t == models.TierVip1 || t == models.TierVip2
}

// Parse validates a tier identifier coming from a caller
func Parse(s string) (models.Tier, bool) {
	switch models.Tier(s) {
	case models.TierFree, models.TierVip1, models.TierVip2:
		return models.Tier(s), true
	}
	return models.TierFree, false
}

// DaysLeft returns the whole days remaining before the VIP expiry, rounded up.
// Zero means free or already expired.
func DaysLeft(u *models.User, now time.Time) int {
	if Effective(u, now) == models.TierFree {
		return 0
	}
	remaining := u.VipExpiry.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}
