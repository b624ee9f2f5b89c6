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

package store

import (
	"context"
	"errors"
	"time"

	"tapx-earn-go/internal/models"
)

// Sentinel errors shared by every backend
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrSettingsNotFound       = errors.New("settings not found")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrWithdrawalNotPending   = errors.New("withdrawal is not pending")
	ErrDuplicateEntry         = errors.New("duplicate ledger entry")
)

// CreateUserParams contains the first-contact identity of a user
type CreateUserParams struct {
	UserId     string
	Name       string
	Username   string
	ReferrerId string
}

// WithdrawalFilter narrows ListWithdrawals. Zero values match everything.
type WithdrawalFilter struct {
	UserId string
	Status models.WithdrawalStatus
	Limit  int
	Offset int
}

// Tx is the view of the store inside one atomic unit of work. Reads see the
// transaction's snapshot and writes become visible only on commit.
type Tx interface {
	GetUser(ctx context.Context, userId string) (*models.User, error)
	// SaveUser writes u if its Version still matches the stored row and
	// bumps Version. A mismatch returns ErrConcurrentModification.
	SaveUser(ctx context.Context, u *models.User) error

	GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error)
	InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error
	// FinalizeWithdrawal moves a pending withdrawal to w.Status. Returns
	// ErrWithdrawalNotPending if it already left pending.
	FinalizeWithdrawal(ctx context.Context, w *models.Withdrawal) error
	CountWithdrawalsSince(ctx context.Context, userId string, since time.Time) (int, error)

	AppendEntry(ctx context.Context, e *models.LedgerEntry) error
}

// LedgerStore defines the contract that every backend (SQLite, Postgres) must satisfy.
type LedgerStore interface {
	// --- Users ---
	// CreateUser inserts the user unless it exists; an existing record is
	// returned untouched with created=false.
	CreateUser(ctx context.Context, params CreateUserParams) (user *models.User, created bool, err error)
	GetUser(ctx context.Context, userId string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	ListExpiredVips(ctx context.Context, now time.Time) ([]models.User, error)
	ListUncreditedReferrals(ctx context.Context, threshold int64) ([]models.User, error)

	// Update runs fn in one transaction and commits if it returns nil.
	// Transient failures are retried, so fn must not have side effects
	// outside tx.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// --- Settings ---
	// LoadSettings decodes the stored document over into, so fields the
	// document lacks keep the caller's values.
	LoadSettings(ctx context.Context, into *models.Settings) error
	SaveSettings(ctx context.Context, s *models.Settings) error
	// InsertSettingsIfAbsent stores s only when no settings exist.
	InsertSettingsIfAbsent(ctx context.Context, s *models.Settings) (inserted bool, err error)

	// --- Withdrawals ---
	GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, filter WithdrawalFilter) ([]models.Withdrawal, error)

	// --- Ledger ---
	GetLedgerEntries(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error)
	Stats(ctx context.Context, now time.Time) (*models.AdminStats, error)

	// --- Lifecycle ---
	Close()
}
