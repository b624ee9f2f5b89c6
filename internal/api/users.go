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
	"tapx-earn-go/internal/referral"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/tier"

	"go.uber.org/zap"
)

// EnsureUser registers a Telegram identity on first contact. An existing
// record is returned unchanged, including its referrer. A start parameter
// that names no known user is dropped.
func (s *LedgerService) EnsureUser(ctx context.Context, userId, name, username, startParam string) (*models.User, bool, error) {
	if userId == "" {
		return nil, false, invalid("user_id is required")
	}
	if name == "" {
		name = username
	}
	if name == "" {
		name = "User " + userId
	}

	referrerId, err := s.knownReferrer(ctx, userId, startParam)
	if err != nil {
		return nil, false, err
	}

	user, created, err := s.store.CreateUser(ctx, store.CreateUserParams{
		UserId:     userId,
		Name:       name,
		Username:   username,
		ReferrerId: referrerId,
	})
	if err != nil {
		zap.L().Error("Failed to ensure user", zap.String("user_id", userId), zap.Error(err))
		return nil, false, fmt.Errorf("failed to register user: %w", err)
	}
	return user, created, nil
}

func (s *LedgerService) knownReferrer(ctx context.Context, userId, startParam string) (string, error) {
	if startParam == "" || startParam == userId {
		return "", nil
	}
	_, err := s.store.GetUser(ctx, startParam)
	if errors.Is(err, store.ErrUserNotFound) {
		zap.L().Debug("Ignoring unknown referrer",
			zap.String("user_id", userId),
			zap.String("start_param", startParam))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up referrer: %w", err)
	}
	return startParam, nil
}

// GetProfile returns the user together with what their tier grants today
func (s *LedgerService) GetProfile(ctx context.Context, userId string) (*models.UserProfile, error) {
	if userId == "" {
		return nil, invalid("user_id is required")
	}

	user, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	current, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	now := s.now()
	effective := tier.Effective(user, now)
	limits := tier.Resolve(effective, current)

	dailyCount := user.DailyTapCount
	if user.DailyTapDate != s.taps.Today() {
		dailyCount = 0
	}
	left := limits.DailyTapLimit - dailyCount
	if left < 0 {
		left = 0
	}

	return &models.UserProfile{
		User:             user,
		Limits:           limits,
		EffectiveTier:    effective,
		DailyTapsLeft:    left,
		DaysUntilVipEnds: tier.DaysLeft(user, now),
		ReferralLink:     referral.Link(s.botUsername, user.Id),
		TapsToReferral:   referral.TapsRemaining(user),
	}, nil
}

// GetLedgerHistory returns paginated non-tap balance movements for a user
func (s *LedgerService) GetLedgerHistory(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	if userId == "" {
		return nil, invalid("user_id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.GetLedgerEntries(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get ledger history", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve ledger history: %w", err)
	}
	return entries, nil
}

// ListUsers pages through all users for the admin CLI
func (s *LedgerService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.store.ListUsers(ctx, limit, offset)
}
