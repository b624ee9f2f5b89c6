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

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/settings"

	"go.uber.org/zap"
)

func (s *LedgerService) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.settings.Get(ctx)
}

func (s *LedgerService) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (*models.Settings, error) {
	updated, err := s.settings.Update(ctx, patch)
	if errors.Is(err, settings.ErrInvalidSettings) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return updated, err
}

func (s *LedgerService) Stats(ctx context.Context) (*models.AdminStats, error) {
	return s.store.Stats(ctx, s.now())
}

// Sweep downgrades expired VIPs and credits referral bonuses that were
// missed, in that order.
func (s *LedgerService) Sweep(ctx context.Context) (*models.SweepResult, int, error) {
	result, err := s.vip.Sweep(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("vip sweep failed: %w", err)
	}

	credited, err := s.referrals.Reconcile(ctx)
	if err != nil {
		zap.L().Warn("Referral reconcile failed", zap.Error(err))
		return result, credited, fmt.Errorf("referral reconcile failed: %w", err)
	}
	return result, credited, nil
}
