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
	"tapx-earn-go/internal/tier"
)

// Tap credits one tap. A reached daily limit comes back as a result with
// Success=false.
func (s *LedgerService) Tap(ctx context.Context, userId string) (*models.TapResult, error) {
	if userId == "" {
		return nil, invalid("user_id is required")
	}
	return s.taps.ProcessTap(ctx, userId)
}

// ActivateVip grants tierName for days days starting now. Payment is
// handled outside this service.
func (s *LedgerService) ActivateVip(ctx context.Context, userId, tierName string, days int) (*models.VipResult, error) {
	if userId == "" {
		return nil, invalid("user_id is required")
	}
	t, ok := tier.Parse(tierName)
	if !ok {
		return &models.VipResult{Success: false, Reason: models.ReasonInvalidTier, Tier: models.Tier(tierName)}, nil
	}
	if days < 0 {
		return nil, invalid("days cannot be negative")
	}
	return s.vip.Activate(ctx, userId, t, days)
}
