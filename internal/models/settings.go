package models

import (
	"github.com/shopspring/decimal"
)

// Settings is the store-wide economic configuration singleton.
type Settings struct {
	BaseTapValue    decimal.Decimal `json:"base_tap_value"`
	ReferralBonus   decimal.Decimal `json:"referral_bonus"`
	FreeMultiplier  decimal.Decimal `json:"free_multiplier"`
	Vip1Multiplier  decimal.Decimal `json:"vip1_multiplier"`
	Vip2Multiplier  decimal.Decimal `json:"vip2_multiplier"`
	FreeLimit       int64           `json:"free_limit"`
	Vip1Limit       int64           `json:"vip1_limit"`
	Vip2Limit       int64           `json:"vip2_limit"`
	MinWithdrawFree decimal.Decimal `json:"min_withdrawal_free"`
	MinWithdrawVip1 decimal.Decimal `json:"min_withdrawal_vip1"`
	MinWithdrawVip2 decimal.Decimal `json:"min_withdrawal_vip2"`
	MaxWithdrawal   decimal.Decimal `json:"max_withdrawal"`
	WithdrawLimFree int             `json:"withdrawal_limit_free"`
	WithdrawLimVip1 int             `json:"withdrawal_limit_vip1"`
	WithdrawLimVip2 int             `json:"withdrawal_limit_vip2"`
	Vip1PriceStars  int             `json:"vip1_price_stars"`
	Vip2PriceStars  int             `json:"vip2_price_stars"`
	ExchangeRate    decimal.Decimal `json:"inr_exchange_rate"` // not applied anywhere yet
}

// TierLimits is what a tier grants under a given Settings snapshot.
type TierLimits struct {
	Tier            Tier            `json:"tier"`
	Multiplier      decimal.Decimal `json:"multiplier"`
	DailyTapLimit   int64           `json:"daily_tap_limit"`
	MinWithdrawal   decimal.Decimal `json:"min_withdrawal"`
	WithdrawalLimit int             `json:"withdrawal_limit"`
	PriceStars      int             `json:"price_stars"`
}

// SettingsPatch carries a partial admin update. Nil fields are left as-is.
type SettingsPatch struct {
	BaseTapValue    *decimal.Decimal `json:"base_tap_value,omitempty"`
	ReferralBonus   *decimal.Decimal `json:"referral_bonus,omitempty"`
	FreeMultiplier  *decimal.Decimal `json:"free_multiplier,omitempty"`
	Vip1Multiplier  *decimal.Decimal `json:"vip1_multiplier,omitempty"`
	Vip2Multiplier  *decimal.Decimal `json:"vip2_multiplier,omitempty"`
	FreeLimit       *int64           `json:"free_limit,omitempty"`
	Vip1Limit       *int64           `json:"vip1_limit,omitempty"`
	Vip2Limit       *int64           `json:"vip2_limit,omitempty"`
	MinWithdrawFree *decimal.Decimal `json:"min_withdrawal_free,omitempty"`
	MinWithdrawVip1 *decimal.Decimal `json:"min_withdrawal_vip1,omitempty"`
	MinWithdrawVip2 *decimal.Decimal `json:"min_withdrawal_vip2,omitempty"`
	MaxWithdrawal   *decimal.Decimal `json:"max_withdrawal,omitempty"`
	WithdrawLimFree *int             `json:"withdrawal_limit_free,omitempty"`
	WithdrawLimVip1 *int             `json:"withdrawal_limit_vip1,omitempty"`
	WithdrawLimVip2 *int             `json:"withdrawal_limit_vip2,omitempty"`
	Vip1PriceStars  *int             `json:"vip1_price_stars,omitempty"`
	Vip2PriceStars  *int             `json:"vip2_price_stars,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"inr_exchange_rate,omitempty"`
}
