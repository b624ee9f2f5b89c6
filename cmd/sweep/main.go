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
	"os"
	"time"

	"tapx-earn-go/internal/common"
	"tapx-earn-go/internal/config"

	"go.uber.org/zap"
)

// sweep is meant for cron: it downgrades expired VIPs, credits missed
// referral bonuses and exits.
func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Maximum run time")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	start := time.Now()
	result, credited, err := services.Ledger.Sweep(ctx)
	if err != nil {
		logger.Error("Sweep failed", zap.Error(err))
		fmt.Printf("\n✗ Sweep failed: %v\n\n", err)
		os.Exit(1)
	}

	common.PrintHeader("SWEEP", common.DefaultWidth)
	fmt.Printf("Expired VIPs scanned:     %d\n", result.Scanned)
	fmt.Printf("Downgraded to free:       %d\n", result.Downgraded)
	fmt.Printf("Failed:                   %d\n", result.Failed)
	fmt.Printf("Referral bonuses credited: %d\n", credited)
	common.PrintFooter(fmt.Sprintf("Completed in %s", time.Since(start).Round(time.Millisecond)), common.DefaultWidth)

	logger.Info("Sweep completed",
		zap.Int("downgraded", result.Downgraded),
		zap.Int("failed", result.Failed),
		zap.Int("referrals_credited", credited))

	if result.Failed > 0 {
		os.Exit(1)
	}
}
