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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Update runs fn inside one database transaction. Conflicts and lock
// timeouts are retried up to the configured number of attempts.
func (s *Service) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isTransient(err) {
			return err
		}

		zap.L().Warn("Transient transaction failure, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxRetries),
			zap.Error(err))

		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * 5 * time.Millisecond):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", s.maxRetries, err)
}

func (s *Service) runTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back transaction", zap.Error(err))
		}
	}()

	if err := fn(&sqlTx{svc: s, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isTransient reports whether err is worth retrying with a fresh transaction.
func isTransient(err error) bool {
	if errors.Is(err, store.ErrConcurrentModification) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// sqlTx implements store.Tx on top of a database/sql transaction
type sqlTx struct {
	svc *Service
	tx  *sql.Tx
}

func (t *sqlTx) GetUser(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(t.tx.QueryRowContext(ctx, t.svc.q(queryGetUserById+t.svc.lock()), userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		return nil, fmt.Errorf("failed to read user %s: %w", userId, err)
	}
	return user, nil
}

func (t *sqlTx) SaveUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, t.svc.q(queryUpdateUser),
		u.Name, u.Username, u.Balance.String(), u.TotalTaps, u.DailyTapCount,
		u.DailyTapDate, string(u.VipTier), toNullMillis(u.VipExpiry), u.ReferralCount,
		u.ReferralEarnings.String(), boolToInt(u.ReferralBonusCredited), toNullMillis(u.LastTapTime),
		toMillis(now), u.Id, u.Version)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", u.Id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user update failed - %w", store.ErrConcurrentModification)
	}

	u.Version++
	u.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

func (t *sqlTx) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	w, err := scanWithdrawal(t.tx.QueryRowContext(ctx, t.svc.q(queryGetWithdrawal+t.svc.lock()), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrWithdrawalNotFound, id)
		}
		return nil, fmt.Errorf("failed to read withdrawal %s: %w", id, err)
	}
	return w, nil
}

func (t *sqlTx) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	if w.Id == "" {
		w.Id = uuid.New().String()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, t.svc.q(queryInsertWithdrawal),
		w.Id, w.UserId, w.Amount.String(), w.Destination, string(w.Status), w.AdminNote,
		toMillis(w.CreatedAt), toNullMillis(w.ProcessedAt))
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}
	return nil
}

func (t *sqlTx) FinalizeWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	result, err := t.tx.ExecContext(ctx, t.svc.q(queryFinalizeWithdrawal),
		string(w.Status), w.AdminNote, toNullMillis(w.ProcessedAt), w.Id)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal %s: %w", w.Id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("withdrawal %s: %w", w.Id, store.ErrWithdrawalNotPending)
	}
	return nil
}

func (t *sqlTx) CountWithdrawalsSince(ctx context.Context, userId string, since time.Time) (int, error) {
	var count int
	if err := t.tx.QueryRowContext(ctx, t.svc.q(queryCountWithdrawalsSince), userId, toMillis(since)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return count, nil
}

func (t *sqlTx) AppendEntry(ctx context.Context, e *models.LedgerEntry) error {
	if e.Id == "" {
		e.Id = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, t.svc.q(queryInsertLedgerEntry),
		e.Id, e.UserId, e.EntryType, e.Amount.String(), e.BalanceBefore.String(),
		e.BalanceAfter.String(), e.Reference, toMillis(e.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateEntry, e.Reference)
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}
