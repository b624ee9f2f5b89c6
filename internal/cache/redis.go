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

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tapx-earn-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const settingsKey = "tapx:settings"

// RedisSettings shares the settings snapshot between API replicas
type RedisSettings struct {
	rdb *redis.Client
	ttl time.Duration
}

func ConnectRedis(ctx context.Context, cfg models.CacheConfig) (*RedisSettings, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		if closeErr := rdb.Close(); closeErr != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	zap.L().Info("Connected to Redis", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return &RedisSettings{rdb: rdb, ttl: cfg.TTL}, nil
}

func (c *RedisSettings) Get(ctx context.Context) (*models.Settings, bool, error) {
	data, err := c.rdb.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var s models.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set
		zap.L().Warn("Discarding unreadable cached settings", zap.Error(err))
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *RedisSettings) Set(ctx context.Context, s *models.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := c.rdb.Set(ctx, settingsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisSettings) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, settingsKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisSettings) Close() {
	if err := c.rdb.Close(); err != nil {
		zap.L().Warn("Failed to close redis client", zap.Error(err))
	}
}
