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

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		balance TEXT NOT NULL DEFAULT '0',
		total_taps BIGINT NOT NULL DEFAULT 0,
		daily_tap_count BIGINT NOT NULL DEFAULT 0,
		daily_tap_date TEXT NOT NULL DEFAULT '',
		vip_tier TEXT NOT NULL DEFAULT 'free',
		vip_expiry BIGINT,
		referrer_id TEXT NOT NULL DEFAULT '',
		referral_count BIGINT NOT NULL DEFAULT 0,
		referral_earnings TEXT NOT NULL DEFAULT '0',
		referral_bonus_credited INTEGER NOT NULL DEFAULT 0,
		last_tap_time BIGINT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		version BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_vip ON users(vip_tier, vip_expiry)`,
	`CREATE INDEX IF NOT EXISTS idx_users_referrer ON users(referrer_id)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS withdrawals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		destination TEXT NOT NULL,
		status TEXT NOT NULL,
		admin_note TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		processed_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_user_created ON withdrawals(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status)`,

	// Audit trail for every non-tap balance movement
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_entries_reference ON ledger_entries(reference)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, created_at)`,
}

const (
	userColumns = `id, name, username, balance, total_taps, daily_tap_count, daily_tap_date,
		vip_tier, vip_expiry, referrer_id, referral_count, referral_earnings,
		referral_bonus_credited, last_tap_time, created_at, updated_at, version`

	// User queries
	queryInsertUser = `
		INSERT INTO users (id, name, username, referrer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryListUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id
		LIMIT ? OFFSET ?`

	queryListExpiredVips = `
		SELECT ` + userColumns + `
		FROM users
		WHERE vip_tier <> 'free' AND (vip_expiry IS NULL OR vip_expiry <= ?)
		ORDER BY id`

	queryListUncreditedReferrals = `
		SELECT ` + userColumns + `
		FROM users
		WHERE referrer_id <> '' AND referral_bonus_credited = 0 AND total_taps >= ?
		  AND EXISTS (SELECT 1 FROM users r WHERE r.id = users.referrer_id)
		ORDER BY id`

	queryUpdateUser = `
		UPDATE users
		SET name = ?, username = ?, balance = ?, total_taps = ?, daily_tap_count = ?,
		    daily_tap_date = ?, vip_tier = ?, vip_expiry = ?, referral_count = ?,
		    referral_earnings = ?, referral_bonus_credited = ?, last_tap_time = ?,
		    updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	// Settings queries
	settingsRowId = "global"

	queryGetSettings = `
		SELECT data FROM settings WHERE id = ?`

	queryInsertSettings = `
		INSERT INTO settings (id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	queryUpsertSettings = `
		INSERT INTO settings (id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

	// Withdrawal queries
	withdrawalColumns = `id, user_id, amount, destination, status, admin_note, created_at, processed_at`

	queryInsertWithdrawal = `
		INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetWithdrawal = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE id = ?`

	queryFinalizeWithdrawal = `
		UPDATE withdrawals
		SET status = ?, admin_note = ?, processed_at = ?
		WHERE id = ? AND status = 'pending'`

	queryCountWithdrawalsSince = `
		SELECT COUNT(*)
		FROM withdrawals
		WHERE user_id = ? AND created_at >= ?`

	// Ledger queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, user_id, entry_type, amount, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerEntries = `
		SELECT id, user_id, entry_type, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`

	// Stats queries
	queryCountUsers = `
		SELECT COUNT(*) FROM users`

	queryCountActiveVips = `
		SELECT COUNT(*) FROM users
		WHERE vip_tier <> 'free' AND vip_expiry > ?`

	queryAllBalances = `
		SELECT balance FROM users`

	queryOpenWithdrawalAmounts = `
		SELECT status, amount FROM withdrawals
		WHERE status IN ('pending', 'paid')`
)
