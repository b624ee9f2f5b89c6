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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) LoadSettings(ctx context.Context, into *models.Settings) error {
	var data string
	err := s.db.QueryRowContext(ctx, s.q(queryGetSettings), settingsRowId).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrSettingsNotFound
		}
		return fmt.Errorf("unable to query settings: %w", err)
	}

	if err := json.Unmarshal([]byte(data), into); err != nil {
		return fmt.Errorf("unable to decode stored settings: %w", err)
	}
	return nil
}

func (s *Service) SaveSettings(ctx context.Context, settings *models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("unable to encode settings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.q(queryUpsertSettings), settingsRowId, string(data), toMillis(time.Now())); err != nil {
		zap.L().Error("Failed to save settings", zap.Error(err))
		return fmt.Errorf("unable to save settings: %w", err)
	}
	zap.L().Info("Settings saved")
	return nil
}

func (s *Service) InsertSettingsIfAbsent(ctx context.Context, settings *models.Settings) (bool, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return false, fmt.Errorf("unable to encode settings: %w", err)
	}
	result, err := s.db.ExecContext(ctx, s.q(queryInsertSettings), settingsRowId, string(data), toMillis(time.Now()))
	if err != nil {
		return false, fmt.Errorf("unable to insert settings: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		zap.L().Info("Default settings stored")
	}
	return rowsAffected > 0, nil
}
