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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tapx-earn-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetLedgerEntries returns a user's audit trail, newest first
func (s *Service) GetLedgerEntries(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, s.q(queryGetLedgerEntries), userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to query ledger entries", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query ledger entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amount, before, after string
		var createdAt int64
		if err := rows.Scan(&e.Id, &e.UserId, &e.EntryType, &amount, &before, &after, &e.Reference, &createdAt); err != nil {
			return nil, fmt.Errorf("unable to scan ledger entry: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amount, err)
		}
		if e.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("failed to parse balance_before '%s': %w", before, err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("failed to parse balance_after '%s': %w", after, err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}

// Stats aggregates the admin dashboard numbers. Amounts are summed in
// decimal since they are stored as text.
func (s *Service) Stats(ctx context.Context, now time.Time) (*models.AdminStats, error) {
	stats := &models.AdminStats{
		TotalBalance:  decimal.Zero,
		PendingAmount: decimal.Zero,
		PaidAmount:    decimal.Zero,
	}

	if err := s.db.QueryRowContext(ctx, s.q(queryCountUsers)).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("unable to count users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, s.q(queryCountActiveVips), toMillis(now)).Scan(&stats.ActiveVips); err != nil {
		return nil, fmt.Errorf("unable to count active vips: %w", err)
	}

	balances, err := s.db.QueryContext(ctx, s.q(queryAllBalances))
	if err != nil {
		return nil, fmt.Errorf("unable to query balances: %w", err)
	}
	for balances.Next() {
		var raw string
		if err := balances.Scan(&raw); err != nil {
			balances.Close()
			return nil, fmt.Errorf("unable to scan balance: %w", err)
		}
		if b, err := decimal.NewFromString(raw); err == nil {
			stats.TotalBalance = stats.TotalBalance.Add(b)
		} else {
			zap.L().Warn("Skipping unparsable balance", zap.String("balance", raw))
		}
	}
	if err := balances.Err(); err != nil {
		balances.Close()
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	if err := balances.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}

	rows, err := s.db.QueryContext(ctx, s.q(queryOpenWithdrawalAmounts))
	if err != nil {
		return nil, fmt.Errorf("unable to query withdrawal amounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var status, raw string
		if err := rows.Scan(&status, &raw); err != nil {
			return nil, fmt.Errorf("unable to scan withdrawal amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			zap.L().Warn("Skipping unparsable withdrawal amount", zap.String("amount", raw))
			continue
		}
		switch models.WithdrawalStatus(status) {
		case models.WithdrawalPending:
			stats.PendingWithdrawals++
			stats.PendingAmount = stats.PendingAmount.Add(amount)
		case models.WithdrawalPaid:
			stats.PaidWithdrawals++
			stats.PaidAmount = stats.PaidAmount.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal amounts: %w", err)
	}

	return stats, nil
}
