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

package accrual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/tier"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EarningPlaces is the number of fraction digits kept on tap earnings.
const EarningPlaces = 3

const dateLayout = "2006-01-02"

// SettingsSource supplies one settings snapshot per operation
type SettingsSource interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// TapObserver is told about lifetime tap transitions after they commit.
// It must not fail the tap that triggered it.
type TapObserver interface {
	TapsPersisted(ctx context.Context, userId string, before, after int64)
}

// Decision is the outcome of applying one tap to a user record
type Decision struct {
	Accepted bool
	Earned   decimal.Decimal
	Limits   models.TierLimits
	Today    string
}

// Apply evaluates a single tap against u and, when accepted, mutates u to
// reflect it. A rejected tap leaves u untouched.
func Apply(u *models.User, s *models.Settings, now time.Time, loc *time.Location) Decision {
	today := now.In(loc).Format(dateLayout)

	dailyCount := u.DailyTapCount
	if u.DailyTapDate != today {
		dailyCount = 0
	}

	limits := tier.Resolve(tier.Effective(u, now), s)
	if dailyCount >= limits.DailyTapLimit {
		return Decision{Accepted: false, Earned: decimal.Zero, Limits: limits, Today: today}
	}

	earned := s.BaseTapValue.Mul(limits.Multiplier).Round(EarningPlaces)
	tapAt := now.UTC()

	u.Balance = u.Balance.Add(earned)
	u.TotalTaps++
	u.DailyTapCount = dailyCount + 1
	u.DailyTapDate = today
	u.LastTapTime = &tapAt

	return Decision{Accepted: true, Earned: earned, Limits: limits, Today: today}
}

type Engine struct {
	store     store.LedgerStore
	settings  SettingsSource
	loc       *time.Location
	now       func() time.Time
	observers []TapObserver
}

func NewEngine(s store.LedgerStore, settings SettingsSource, loc *time.Location, observers ...TapObserver) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:     s,
		settings:  settings,
		loc:       loc,
		now:       time.Now,
		observers: observers,
	}
}

// ProcessTap credits one tap to userId. Hitting the daily limit is reported
// through the result, not as an error.
func (e *Engine) ProcessTap(ctx context.Context, userId string) (*models.TapResult, error) {
	s, err := e.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load settings: %w", err)
	}

	var result *models.TapResult
	var before, after int64
	err = e.store.Update(ctx, func(tx store.Tx) error {
		result = nil

		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}

		before = user.TotalTaps
		decision := Apply(user, s, e.now(), e.loc)
		if !decision.Accepted {
			result = &models.TapResult{
				Success:       false,
				Reason:        models.ReasonDailyLimitReached,
				Earned:        decimal.Zero,
				Balance:       user.Balance,
				TotalTaps:     user.TotalTaps,
				DailyTapCount: effectiveDailyCount(user, decision.Today),
				DailyTapLimit: decision.Limits.DailyTapLimit,
				Tier:          decision.Limits.Tier,
			}
			return nil
		}

		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}
		after = user.TotalTaps

		result = &models.TapResult{
			Success:       true,
			Earned:        decision.Earned,
			Balance:       user.Balance,
			TotalTaps:     user.TotalTaps,
			DailyTapCount: user.DailyTapCount,
			DailyTapLimit: decision.Limits.DailyTapLimit,
			Tier:          decision.Limits.Tier,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			zap.L().Warn("Tap for unknown user", zap.String("user_id", userId))
		} else {
			zap.L().Error("Failed to process tap", zap.String("user_id", userId), zap.Error(err))
		}
		return nil, fmt.Errorf("error processing tap: %w", err)
	}

	if !result.Success {
		zap.L().Debug("Daily tap limit reached",
			zap.String("user_id", userId),
			zap.Int64("limit", result.DailyTapLimit))
		return result, nil
	}

	for _, o := range e.observers {
		o.TapsPersisted(ctx, userId, before, after)
	}
	return result, nil
}

// Today returns the calendar date used for daily counters at now.
func (e *Engine) Today() string {
	return e.now().In(e.loc).Format(dateLayout)
}

func effectiveDailyCount(u *models.User, today string) int64 {
	if u.DailyTapDate != today {
		return 0
	}
	return u.DailyTapCount
}
