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
	"errors"
	"fmt"
	"time"

	"tapx-earn-go/internal/accrual"
	"tapx-earn-go/internal/referral"
	"tapx-earn-go/internal/settings"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/vip"
	"tapx-earn-go/internal/withdrawal"
)

// ErrInvalidInput marks caller mistakes that never reached the store
var ErrInvalidInput = errors.New("invalid input")

// Deps are the engines the facade delegates to
type Deps struct {
	Store       store.LedgerStore
	Settings    *settings.Provider
	Taps        *accrual.Engine
	Referrals   *referral.Engine
	Vip         *vip.Service
	Withdrawals *withdrawal.Service
	BotUsername string
}

// LedgerService is the single entry point used by the HTTP API, the bot and
// the CLIs.
type LedgerService struct {
	store       store.LedgerStore
	settings    *settings.Provider
	taps        *accrual.Engine
	referrals   *referral.Engine
	vip         *vip.Service
	withdrawals *withdrawal.Service
	botUsername string
	now         func() time.Time
}

func NewLedgerService(d Deps) *LedgerService {
	return &LedgerService{
		store:       d.Store,
		settings:    d.Settings,
		taps:        d.Taps,
		referrals:   d.Referrals,
		vip:         d.Vip,
		withdrawals: d.Withdrawals,
		botUsername: d.BotUsername,
		now:         time.Now,
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.store.ListUsers(ctx, 1, 0)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
