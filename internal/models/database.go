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

// Tier is the VIP level of a user. The set is closed.
type Tier string

const (
	TierFree Tier = "free"
	TierVip1 Tier = "vip1"
	TierVip2 Tier = "vip2"
)

// User is the per-Telegram-identity account record. Version is bumped on
// every write and used for optimistic locking.
type User struct {
	Id                    string          `db:"id" json:"user_id"`
	Name                  string          `db:"name" json:"name"`
	Username              string          `db:"username" json:"username,omitempty"`
	Balance               decimal.Decimal `db:"balance" json:"balance"`
	TotalTaps             int64           `db:"total_taps" json:"total_taps"`
	DailyTapCount         int64           `db:"daily_tap_count" json:"daily_tap_count"`
	DailyTapDate          string          `db:"daily_tap_date" json:"daily_tap_date,omitempty"` // YYYY-MM-DD in the app timezone
	VipTier               Tier            `db:"vip_tier" json:"vip_tier"`
	VipExpiry             *time.Time      `db:"vip_expiry" json:"vip_expiry,omitempty"`
	ReferrerId            string          `db:"referrer_id" json:"referrer_id,omitempty"`
	ReferralCount         int64           `db:"referral_count" json:"referral_count"`
	ReferralEarnings      decimal.Decimal `db:"referral_earnings" json:"referral_earnings"`
	ReferralBonusCredited bool            `db:"referral_bonus_credited" json:"referral_bonus_credited"`
	LastTapTime           *time.Time      `db:"last_tap_time" json:"last_tap_time,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
	Version               int64           `db:"version" json:"-"`
}

// Clone returns a copy safe to mutate without touching the original.
func (u *User) Clone() *User {
	c := *u
	if u.VipExpiry != nil {
		t := *u.VipExpiry
		c.VipExpiry = &t
	}
	if u.LastTapTime != nil {
		t := *u.LastTapTime
		c.LastTapTime = &t
	}
	return &c
}

// WithdrawalStatus is pending until an admin marks it paid or rejected.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalPaid     WithdrawalStatus = "paid"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalPaid || s == WithdrawalRejected
}

// Withdrawal is a manual payout request
type Withdrawal struct {
	Id          string           `db:"id" json:"id"`
	UserId      string           `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal  `db:"amount" json:"amount"`
	Destination string           `db:"destination" json:"upi_id"`
	Status      WithdrawalStatus `db:"status" json:"status"`
	AdminNote   string           `db:"admin_note" json:"admin_note,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}

// Ledger entry types. Taps are not journaled individually.
const (
	EntryReferralBonus    = "referral_bonus"
	EntryWithdrawalHold   = "withdrawal_hold"
	EntryWithdrawalRefund = "withdrawal_refund"
)

// LedgerEntry is the immutable audit row written in the same store
// transaction as the balance change it describes.
type LedgerEntry struct {
	Id            string          `db:"id" json:"id"`
	UserId        string          `db:"user_id" json:"user_id"`
	EntryType     string          `db:"entry_type" json:"entry_type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Reference     string          `db:"reference" json:"reference"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
