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

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"tapx-earn-go/internal/common"
	"tapx-earn-go/internal/config"
	"tapx-earn-go/internal/formance"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"
	"tapx-earn-go/internal/tier"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	usersWithBalances int
	totalBalance      decimal.Decimal
	mirrorMismatches  int
}

func printUserHeader(user models.User, now time.Time) {
	fmt.Printf("\n┌─ User: %s", user.Name)
	if user.Username != "" {
		fmt.Printf(" (@%s)", user.Username)
	}
	fmt.Printf("\n│  ID: %s\n", user.Id)
	fmt.Printf("│  Tier: %s", tier.Effective(&user, now))
	if days := tier.DaysLeft(&user, now); days > 0 {
		fmt.Printf(" (%d days left)", days)
	}
	fmt.Println()
	common.PrintBoxSeparator(78)
}

func printUser(user models.User, mirror *decimal.Decimal, local decimal.Decimal) {
	fmt.Printf("%s %-18s: %20s\n", common.BoxPrefix(false), "balance", common.FormatAmount(user.Balance, 3))
	fmt.Printf("%s %-18s: %20d (today %d on %s)\n", common.BoxPrefix(false), "taps", user.TotalTaps, user.DailyTapCount, orNone(user.DailyTapDate))
	fmt.Printf("%s %-18s: %20s (%d referrals)\n", common.BoxPrefix(mirror == nil), "referral earnings", common.FormatAmount(user.ReferralEarnings, 2), user.ReferralCount)
	if mirror != nil {
		status := "in sync"
		if !mirror.Equal(local) {
			status = fmt.Sprintf("MISMATCH local=%s", local.String())
		}
		fmt.Printf("%s %-18s: %20s (%s)\n", common.BoxPrefix(true), "formance mirror", mirror.String(), status)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// ledgerTotal sums the user's non-tap movements, which is what the Formance
// journal mirrors.
func ledgerTotal(ctx context.Context, dbService store.LedgerStore, userId string) (decimal.Decimal, error) {
	total := decimal.Zero
	const page = 100
	for offset := 0; ; offset += page {
		entries, err := dbService.GetLedgerEntries(ctx, userId, page, offset)
		if err != nil {
			return decimal.Zero, err
		}
		for _, e := range entries {
			total = total.Add(e.Amount)
		}
		if len(entries) < page {
			return total, nil
		}
	}
}

func processUsersAndGenerateReport(ctx context.Context, users []models.User, dbService store.LedgerStore, journal *formance.Journal, logger *zap.Logger) balanceStats {
	stats := balanceStats{totalBalance: decimal.Zero}
	now := time.Now()

	for _, user := range users {
		stats.totalUsers++
		stats.totalBalance = stats.totalBalance.Add(user.Balance)
		if user.Balance.IsPositive() {
			stats.usersWithBalances++
		}

		var mirror *decimal.Decimal
		local := decimal.Zero
		if journal != nil {
			var err error
			local, err = ledgerTotal(ctx, dbService, user.Id)
			if err != nil {
				logger.Error("Failed to sum ledger entries", zap.String("user_id", user.Id), zap.Error(err))
				continue
			}
			remote, err := journal.UserBalance(ctx, user.Id)
			if err != nil {
				logger.Error("Failed to read Formance balance", zap.String("user_id", user.Id), zap.Error(err))
				continue
			}
			mirror = &remote
			if !remote.Equal(local) {
				stats.mirrorMismatches++
			}
		}

		printUserHeader(user, now)
		printUser(user, mirror, local)
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by specific user id (optional)")
	compareFlag := flag.Bool("formance", false, "Compare non-tap movements with the Formance journal")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	var dbService store.LedgerStore
	var journal *formance.Journal
	if *compareFlag {
		if !cfg.Formance.Enabled {
			logger.Fatal("--formance requires FORMANCE_ENABLED=true")
		}
		services, err := common.InitializeServices(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize services", zap.Error(err))
		}
		defer services.Close()
		dbService = services.DbService
		journal = services.Journal
	} else {
		// Read-only report, no cache or mirror needed
		logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
		db, err := common.InitializeDatabaseOnly(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer db.Close()
		dbService = db
	}

	users, err := common.InitializeUsers(ctx, dbService, *userFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, dbService, journal, logger)

	summary := fmt.Sprintf("SUMMARY: %d of %d users hold a balance, total %s",
		stats.usersWithBalances, stats.totalUsers, common.FormatAmount(stats.totalBalance, 3))
	if journal != nil {
		summary += fmt.Sprintf(", %d mirror mismatches", stats.mirrorMismatches)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.String("total_balance", stats.totalBalance.String()))
}
