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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business rejection reasons. These are results, not errors.
const (
	ReasonDailyLimitReached  = "daily_limit_reached"
	ReasonInvalidDestination = "invalid_upi_id"
	ReasonInvalidAmount      = "invalid_amount"
	ReasonBelowMinimum       = "below_minimum"
	ReasonAboveMaximum       = "above_maximum"
	ReasonInsufficientFunds  = "insufficient_balance"
	ReasonWithdrawalLimit    = "daily_withdrawal_limit_reached"
	ReasonInvalidTier        = "invalid_tier"
)

// TapResult represents the result of processing one tap
type TapResult struct {
	Success       bool            `json:"success"`
	Reason        string          `json:"reason,omitempty"`
	Earned        decimal.Decimal `json:"earned"`
	Balance       decimal.Decimal `json:"balance"`
	TotalTaps     int64           `json:"total_taps"`
	DailyTapCount int64           `json:"daily_tap_count"`
	DailyTapLimit int64           `json:"daily_tap_limit"`
	Tier          Tier            `json:"tier"`
}

// WithdrawalResult represents the result of a withdrawal request
type WithdrawalResult struct {
	Success    bool            `json:"success"`
	Reason     string          `json:"reason,omitempty"`
	Withdrawal *Withdrawal     `json:"withdrawal,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
}

// VipResult represents the result of a VIP activation
type VipResult struct {
	Success   bool       `json:"success"`
	Reason    string     `json:"reason,omitempty"`
	Tier      Tier       `json:"tier"`
	VipExpiry *time.Time `json:"vip_expiry,omitempty"`
}

// SweepResult summarizes one VIP expiry sweep
type SweepResult struct {
	Scanned    int `json:"scanned"`
	Downgraded int `json:"downgraded"`
	Failed     int `json:"failed"`
}

// UserProfile is the read view returned to the Mini App
type UserProfile struct {
	User             *User      `json:"user"`
	Limits           TierLimits `json:"limits"`
	EffectiveTier    Tier       `json:"effective_tier"`
	DailyTapsLeft    int64      `json:"daily_taps_left"`
	DaysUntilVipEnds int        `json:"days_until_vip_ends"`
	ReferralLink     string     `json:"referral_link,omitempty"`
	TapsToReferral   int64      `json:"taps_to_referral_bonus"`
}

// AdminStats is the dashboard aggregate
type AdminStats struct {
	TotalUsers         int64           `json:"total_users"`
	ActiveVips         int64           `json:"active_vips"`
	TotalBalance       decimal.Decimal `json:"total_balance"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	PendingAmount      decimal.Decimal `json:"pending_amount"`
	PaidWithdrawals    int64           `json:"paid_withdrawals"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
}
