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

package api

import (
	"context"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestWithdrawal submits a payout request. Validation failures are
// returned as a result with a reason, not as an error.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userId string, amount decimal.Decimal, destination string) (*models.WithdrawalResult, error) {
	if userId == "" {
		return nil, invalid("user_id is required")
	}

	zap.L().Info("Processing withdrawal request",
		zap.String("user_id", userId),
		zap.String("amount", amount.String()))

	return s.withdrawals.Create(ctx, userId, amount, destination)
}

// ProcessWithdrawal is the admin approve/reject action
func (s *LedgerService) ProcessWithdrawal(ctx context.Context, id string, status models.WithdrawalStatus, note string) (*models.Withdrawal, error) {
	if id == "" {
		return nil, invalid("withdrawal id is required")
	}
	return s.withdrawals.Process(ctx, id, status, note)
}

// ListWithdrawals returns withdrawals matching filter, newest first
func (s *LedgerService) ListWithdrawals(ctx context.Context, filter store.WithdrawalFilter) ([]models.Withdrawal, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != "" && filter.Status != models.WithdrawalPending && !filter.Status.IsTerminal() {
		return nil, invalid("unknown status %q", filter.Status)
	}
	return s.withdrawals.List(ctx, filter)
}
