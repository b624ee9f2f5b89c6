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

package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tapx-earn-go/internal/accrual"
	"tapx-earn-go/internal/events"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/tier"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AmountPlaces is the number of fraction digits a withdrawal may carry.
const AmountPlaces = 2

// ErrInvalidStatus is returned when an admin asks for a transition other
// than paid or rejected.
var ErrInvalidStatus = errors.New("invalid withdrawal status")

// handle@provider, as used by UPI virtual payment addresses
var destinationPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)

// ValidDestination reports whether dest looks like a UPI address.
func ValidDestination(dest string) bool {
	return destinationPattern.MatchString(dest)
}

type Service struct {
	store    store.LedgerStore
	settings accrual.SettingsSource
	sink     events.Sink
	loc      *time.Location
	now      func() time.Time
}

func NewService(s store.LedgerStore, settings accrual.SettingsSource, sink events.Sink, loc *time.Location) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: s, settings: settings, sink: sink, loc: loc, now: time.Now}
}

// Create validates a payout request and, if accepted, debits the balance
// and records a pending withdrawal in the same transaction.
func (s *Service) Create(ctx context.Context, userId string, amount decimal.Decimal, destination string) (*models.WithdrawalResult, error) {
	destination = strings.TrimSpace(destination)
	if !ValidDestination(destination) {
		return &models.WithdrawalResult{Success: false, Reason: models.ReasonInvalidDestination}, nil
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(AmountPlaces)) {
		return &models.WithdrawalResult{Success: false, Reason: models.ReasonInvalidAmount}, nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load settings: %w", err)
	}

	now := s.now()
	var result *models.WithdrawalResult
	var entry models.LedgerEntry
	err = s.store.Update(ctx, func(tx store.Tx) error {
		result = nil

		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}

		limits := tier.Resolve(tier.Effective(user, now), settings)
		reject := func(reason string) error {
			result = &models.WithdrawalResult{Success: false, Reason: reason, Balance: user.Balance}
			return nil
		}
		switch {
		case amount.LessThan(limits.MinWithdrawal):
			return reject(models.ReasonBelowMinimum)
		case amount.GreaterThan(settings.MaxWithdrawal):
			return reject(models.ReasonAboveMaximum)
		case amount.GreaterThan(user.Balance):
			return reject(models.ReasonInsufficientFunds)
		}

		count, err := tx.CountWithdrawalsSince(ctx, userId, startOfDay(now, s.loc))
		if err != nil {
			return err
		}
		if count >= limits.WithdrawalLimit {
			return reject(models.ReasonWithdrawalLimit)
		}

		balanceBefore := user.Balance
		user.Balance = user.Balance.Sub(amount)
		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}

		w := &models.Withdrawal{
			UserId:      userId,
			Amount:      amount,
			Destination: destination,
			Status:      models.WithdrawalPending,
			CreatedAt:   now.UTC(),
		}
		if err := tx.InsertWithdrawal(ctx, w); err != nil {
			return err
		}

		entry = models.LedgerEntry{
			UserId:        userId,
			EntryType:     models.EntryWithdrawalHold,
			Amount:        amount.Neg(),
			BalanceBefore: balanceBefore,
			BalanceAfter:  user.Balance,
			Reference:     holdReference(w.Id),
		}
		if err := tx.AppendEntry(ctx, &entry); err != nil {
			return err
		}

		result = &models.WithdrawalResult{Success: true, Withdrawal: w, Balance: user.Balance}
		return nil
	})
	if err != nil {
		zap.L().Error("Failed to create withdrawal", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("error creating withdrawal: %w", err)
	}

	if !result.Success {
		zap.L().Info("Withdrawal request rejected",
			zap.String("user_id", userId),
			zap.String("amount", amount.String()),
			zap.String("reason", result.Reason))
		return result, nil
	}

	zap.L().Info("Withdrawal requested",
		zap.String("user_id", userId),
		zap.String("withdrawal_id", result.Withdrawal.Id),
		zap.String("amount", amount.String()),
		zap.String("balance_after", result.Balance.String()))

	s.sink.WithdrawalCreated(ctx, *result.Withdrawal, entry)
	return result, nil
}

// Process moves a pending withdrawal to paid or rejected. Rejection returns
// the held amount to the user's balance.
func (s *Service) Process(ctx context.Context, id string, status models.WithdrawalStatus, note string) (*models.Withdrawal, error) {
	if status != models.WithdrawalPaid && status != models.WithdrawalRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var processed *models.Withdrawal
	var refund *models.LedgerEntry
	err := s.store.Update(ctx, func(tx store.Tx) error {
		processed, refund = nil, nil

		w, err := tx.GetWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalPending {
			return fmt.Errorf("withdrawal %s is %s: %w", id, w.Status, store.ErrWithdrawalNotPending)
		}

		processedAt := s.now().UTC()
		w.Status = status
		w.AdminNote = strings.TrimSpace(note)
		w.ProcessedAt = &processedAt
		if err := tx.FinalizeWithdrawal(ctx, w); err != nil {
			return err
		}

		if status == models.WithdrawalRejected {
			user, err := tx.GetUser(ctx, w.UserId)
			if err != nil {
				return err
			}
			balanceBefore := user.Balance
			user.Balance = user.Balance.Add(w.Amount)
			if err := tx.SaveUser(ctx, user); err != nil {
				return err
			}
			refund = &models.LedgerEntry{
				UserId:        user.Id,
				EntryType:     models.EntryWithdrawalRefund,
				Amount:        w.Amount,
				BalanceBefore: balanceBefore,
				BalanceAfter:  user.Balance,
				Reference:     refundReference(w.Id),
			}
			if err := tx.AppendEntry(ctx, refund); err != nil {
				return err
			}
		}

		processed = w
		return nil
	})
	if err != nil {
		zap.L().Warn("Failed to process withdrawal", zap.String("withdrawal_id", id), zap.Error(err))
		return nil, fmt.Errorf("error processing withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal processed",
		zap.String("withdrawal_id", id),
		zap.String("user_id", processed.UserId),
		zap.String("status", string(processed.Status)),
		zap.String("amount", processed.Amount.String()))

	s.sink.WithdrawalProcessed(ctx, *processed, refund)
	return processed, nil
}

func (s *Service) List(ctx context.Context, filter store.WithdrawalFilter) ([]models.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, filter)
}

func startOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func holdReference(id string) string {
	return "withdrawal:" + id + ":hold"
}

func refundReference(id string) string {
	return "withdrawal:" + id + ":refund"
}
