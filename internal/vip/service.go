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

package vip

import (
	"context"
	"fmt"
	"time"

	"tapx-earn-go/internal/events"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/tier"

	"go.uber.org/zap"
)

// DefaultDurationDays applies when an activation does not name a duration.
const DefaultDurationDays = 30

type Service struct {
	store       store.LedgerStore
	sink        events.Sink
	defaultDays int
	now         func() time.Time
}

func NewService(s store.LedgerStore, sink events.Sink, defaultDays int) *Service {
	if sink == nil {
		sink = events.Nop{}
	}
	if defaultDays <= 0 {
		defaultDays = DefaultDurationDays
	}
	return &Service{store: s, sink: sink, defaultDays: defaultDays, now: time.Now}
}

// Activate sets the user's tier and restarts the expiry clock from now.
// Any previous expiry is replaced, not extended.
func (s *Service) Activate(ctx context.Context, userId string, target models.Tier, days int) (*models.VipResult, error) {
	if !tier.IsVip(target) {
		return &models.VipResult{Success: false, Reason: models.ReasonInvalidTier, Tier: target}, nil
	}
	if days <= 0 {
		days = s.defaultDays
	}

	var activated *models.User
	err := s.store.Update(ctx, func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, userId)
		if err != nil {
			return err
		}

		expiry := s.now().UTC().Add(time.Duration(days) * 24 * time.Hour)
		user.VipTier = target
		user.VipExpiry = &expiry
		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}
		activated = user
		return nil
	})
	if err != nil {
		zap.L().Error("Failed to activate VIP", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("error activating vip: %w", err)
	}

	zap.L().Info("VIP activated",
		zap.String("user_id", userId),
		zap.String("tier", string(target)),
		zap.Time("expiry", *activated.VipExpiry))

	s.sink.VipActivated(ctx, activated)
	return &models.VipResult{Success: true, Tier: activated.VipTier, VipExpiry: activated.VipExpiry}, nil
}

// Sweep downgrades every user whose VIP expiry has passed. Safe to re-run.
func (s *Service) Sweep(ctx context.Context) (*models.SweepResult, error) {
	now := s.now()
	expired, err := s.store.ListExpiredVips(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("unable to list expired vips: %w", err)
	}

	result := &models.SweepResult{Scanned: len(expired)}
	for _, candidate := range expired {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		downgraded := false
		err := s.store.Update(ctx, func(tx store.Tx) error {
			downgraded = false
			user, err := tx.GetUser(ctx, candidate.Id)
			if err != nil {
				return err
			}
			// A renewal may have landed since the scan
			if !tier.IsVip(user.VipTier) || tier.Effective(user, now) != models.TierFree {
				return nil
			}
			user.VipTier = models.TierFree
			user.VipExpiry = nil
			if err := tx.SaveUser(ctx, user); err != nil {
				return err
			}
			downgraded = true
			return nil
		})
		if err != nil {
			result.Failed++
			zap.L().Warn("Failed to downgrade expired VIP", zap.String("user_id", candidate.Id), zap.Error(err))
			continue
		}
		if downgraded {
			result.Downgraded++
			zap.L().Info("VIP expired", zap.String("user_id", candidate.Id), zap.String("tier", string(candidate.VipTier)))
		}
	}

	return result, nil
}
