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
	"errors"
	"fmt"
	"time"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, bool, error) {
	if params.UserId == "" {
		return nil, false, fmt.Errorf("user id cannot be empty")
	}
	referrer := params.ReferrerId
	if referrer == params.UserId {
		zap.L().Warn("Ignoring self referral", zap.String("user_id", params.UserId))
		referrer = ""
	}

	now := toMillis(time.Now())
	result, err := s.db.ExecContext(ctx, s.q(queryInsertUser), params.UserId, params.Name, params.Username, referrer, now, now)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, false, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		zap.L().Error("Failed to get rows affected", zap.Error(err))
		return nil, false, fmt.Errorf("unable to get rows affected: %w", err)
	}

	user, err := s.GetUser(ctx, params.UserId)
	if err != nil {
		return nil, false, err
	}

	created := rowsAffected > 0
	if created {
		zap.L().Info("User created successfully",
			zap.String("user_id", user.Id),
			zap.String("name", user.Name),
			zap.String("referrer_id", user.ReferrerId))
	} else {
		zap.L().Debug("User already exists", zap.String("user_id", user.Id))
	}
	return user, created, nil
}

func (s *Service) GetUser(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(s.db.QueryRowContext(ctx, s.q(queryGetUserById), userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryUsers(ctx, "list users", queryListUsers, limit, offset)
}

// ListExpiredVips returns users still marked VIP whose expiry is at or before now.
func (s *Service) ListExpiredVips(ctx context.Context, now time.Time) ([]models.User, error) {
	return s.queryUsers(ctx, "expired vips", queryListExpiredVips, toMillis(now))
}

// ListUncreditedReferrals returns referred users past the threshold whose
// referrer has not been credited yet.
func (s *Service) ListUncreditedReferrals(ctx context.Context, threshold int64) ([]models.User, error) {
	return s.queryUsers(ctx, "uncredited referrals", queryListUncreditedReferrals, threshold)
}

func (s *Service) queryUsers(ctx context.Context, what, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		zap.L().Error("Failed to query users", zap.String("query", what), zap.Error(err))
		return nil, fmt.Errorf("unable to query %s: %w", what, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.String("query", what), zap.Int("count", len(users)))
	return users, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user                models.User
		balance, earnings   string
		tier                string
		vipExpiry, lastTap  sql.NullInt64
		credited            int64
		createdAt, updateAt int64
	)
	err := row.Scan(&user.Id, &user.Name, &user.Username, &balance, &user.TotalTaps,
		&user.DailyTapCount, &user.DailyTapDate, &tier, &vipExpiry, &user.ReferrerId,
		&user.ReferralCount, &earnings, &credited, &lastTap, &createdAt, &updateAt, &user.Version)
	if err != nil {
		return nil, err
	}

	user.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balance, err)
	}
	user.ReferralEarnings, err = decimal.NewFromString(earnings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse referral earnings '%s': %w", earnings, err)
	}
	user.VipTier = models.Tier(tier)
	user.VipExpiry = fromNullMillis(vipExpiry)
	user.LastTapTime = fromNullMillis(lastTap)
	user.ReferralBonusCredited = credited != 0
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updateAt)
	return &user, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
