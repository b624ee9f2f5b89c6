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

package referral

import (
	"context"
	"errors"
	"fmt"

	"tapx-earn-go/internal/accrual"
	"tapx-earn-go/internal/events"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"go.uber.org/zap"
)

// Threshold is the lifetime tap count a referred user must reach before
// their referrer is credited.
const Threshold int64 = 100

// BonusPlaces is the number of fraction digits kept on referral bonuses.
const BonusPlaces = 2

// Compile-time check: *Engine observes committed taps.
var _ accrual.TapObserver = (*Engine)(nil)

// Crossed reports whether a lifetime tap count moved from below the
// threshold to at or above it.
func Crossed(before, after int64) bool {
	return before < Threshold && after >= Threshold
}

// Reference is the ledger reference of the bonus for one referred user. It
// is unique in the ledger, which backs up the one-shot flag.
func Reference(referredId string) string {
	return "referral:" + referredId
}

type Engine struct {
	store    store.LedgerStore
	settings accrual.SettingsSource
	sink     events.Sink
}

func NewEngine(s store.LedgerStore, settings accrual.SettingsSource, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.Nop{}
	}
	return &Engine{store: s, settings: settings, sink: sink}
}

// TapsPersisted credits the referrer when the tap crossed the threshold.
// Failures are logged and never reach the tapping user.
func (e *Engine) TapsPersisted(ctx context.Context, userId string, before, after int64) {
	if !Crossed(before, after) {
		return
	}
	if _, err := e.Credit(ctx, userId); err != nil {
		zap.L().Warn("Referral crediting failed",
			zap.String("referred_id", userId),
			zap.Error(err))
	}
}

// Credit pays the referral bonus owed for referredId, if any. It returns
// true only when this call performed the credit.
func (e *Engine) Credit(ctx context.Context, referredId string) (bool, error) {
	s, err := e.settings.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to load settings: %w", err)
	}
	bonus := s.ReferralBonus.Round(BonusPlaces)

	var referrer, referred *models.User
	var entry models.LedgerEntry
	var credited bool
	err = e.store.Update(ctx, func(tx store.Tx) error {
		credited = false

		var err error
		referred, err = tx.GetUser(ctx, referredId)
		if err != nil {
			return err
		}
		if referred.ReferrerId == "" || referred.ReferralBonusCredited || referred.TotalTaps < Threshold {
			return nil
		}

		referrer, err = tx.GetUser(ctx, referred.ReferrerId)
		if errors.Is(err, store.ErrUserNotFound) {
			zap.L().Debug("Referrer no longer exists, skipping bonus",
				zap.String("referred_id", referredId),
				zap.String("referrer_id", referred.ReferrerId))
			return nil
		}
		if err != nil {
			return err
		}

		balanceBefore := referrer.Balance
		referrer.Balance = referrer.Balance.Add(bonus)
		referrer.ReferralEarnings = referrer.ReferralEarnings.Add(bonus)
		referrer.ReferralCount++
		if err := tx.SaveUser(ctx, referrer); err != nil {
			return err
		}

		referred.ReferralBonusCredited = true
		if err := tx.SaveUser(ctx, referred); err != nil {
			return err
		}

		entry = models.LedgerEntry{
			UserId:        referrer.Id,
			EntryType:     models.EntryReferralBonus,
			Amount:        bonus,
			BalanceBefore: balanceBefore,
			BalanceAfter:  referrer.Balance,
			Reference:     Reference(referredId),
		}
		if err := tx.AppendEntry(ctx, &entry); err != nil {
			return err
		}

		credited = true
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEntry) {
			// The flag and the ledger disagree; the ledger wins.
			zap.L().Warn("Referral bonus already journaled", zap.String("referred_id", referredId))
			return false, nil
		}
		return false, fmt.Errorf("error crediting referral: %w", err)
	}
	if !credited {
		return false, nil
	}

	zap.L().Info("Referral bonus credited",
		zap.String("referrer_id", referrer.Id),
		zap.String("referred_id", referredId),
		zap.String("bonus", bonus.String()),
		zap.Int64("referral_count", referrer.ReferralCount))

	e.sink.ReferralCredited(ctx, referrer, referred, entry)
	return true, nil
}

// Reconcile credits every referred user that crossed the threshold but was
// never credited, for example after a crash between commit and crediting.
func (e *Engine) Reconcile(ctx context.Context) (int, error) {
	pending, err := e.store.ListUncreditedReferrals(ctx, Threshold)
	if err != nil {
		return 0, fmt.Errorf("unable to list uncredited referrals: %w", err)
	}

	credited := 0
	for _, u := range pending {
		if ctx.Err() != nil {
			return credited, ctx.Err()
		}
		ok, err := e.Credit(ctx, u.Id)
		if err != nil {
			zap.L().Warn("Referral reconcile failed for user", zap.String("referred_id", u.Id), zap.Error(err))
			continue
		}
		if ok {
			credited++
		}
	}

	if credited > 0 {
		zap.L().Info("Referral reconcile credited bonuses", zap.Int("count", credited))
	}
	return credited, nil
}

// TapsRemaining returns how many more lifetime taps the user needs before
// their referrer is credited. Zero once the threshold is reached.
func TapsRemaining(u *models.User) int64 {
	if u.TotalTaps >= Threshold {
		return 0
	}
	return Threshold - u.TotalTaps
}

// Link builds the Telegram deep link that carries userId as start parameter.
func Link(botUsername, userId string) string {
	if botUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, userId)
}
