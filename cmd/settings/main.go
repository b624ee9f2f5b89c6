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
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"tapx-earn-go/internal/common"
	"tapx-earn-go/internal/config"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/settings"

	"go.uber.org/zap"
)

const usage = `Usage:
  settings show   [--yaml]
  settings update --patch '{"base_tap_value":"0.003","vip1_limit":6000}'
  settings update --file patch.yaml`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	sub := os.Args[1]

	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	asYaml := fs.Bool("yaml", false, "Print settings in seed-file YAML form")
	patchFlag := fs.String("patch", "", "JSON settings patch")
	fileFlag := fs.String("file", "", "YAML seed file to apply as a patch")
	_ = fs.Parse(os.Args[2:])

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	switch sub {
	case "show":
		err = showSettings(ctx, services, *asYaml)
	case "update":
		err = updateSettings(ctx, services, *patchFlag, *fileFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n%s\n", sub, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", sub), zap.Error(err))
		fmt.Printf("\n✗ %v\n\n", err)
		os.Exit(1)
	}
}

func showSettings(ctx context.Context, services *common.Services, asYaml bool) error {
	current, err := services.Ledger.GetSettings(ctx)
	if err != nil {
		return err
	}
	if asYaml {
		out, err := settings.MarshalSeed(current)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}
	printSettings(current)
	return nil
}

func updateSettings(ctx context.Context, services *common.Services, patchJSON, patchFile string) error {
	var patch models.SettingsPatch
	switch {
	case patchJSON != "" && patchFile != "":
		return errors.New("use either --patch or --file, not both")
	case patchJSON != "":
		if err := json.Unmarshal([]byte(patchJSON), &patch); err != nil {
			return fmt.Errorf("invalid patch: %w", err)
		}
	case patchFile != "":
		var err error
		if patch, err = settings.LoadSeedFile(patchFile); err != nil {
			return err
		}
	default:
		return errors.New("--patch or --file is required")
	}

	updated, err := services.Ledger.UpdateSettings(ctx, patch)
	if err != nil {
		return err
	}
	fmt.Println("\n✓ Settings updated")
	printSettings(updated)
	return nil
}

func printSettings(s *models.Settings) {
	common.PrintHeader("SETTINGS", common.DefaultWidth)
	fmt.Printf("Base tap value:      %s\n", s.BaseTapValue)
	fmt.Printf("Referral bonus:      %s\n", s.ReferralBonus)
	fmt.Printf("Max withdrawal:      %s\n", s.MaxWithdrawal)
	fmt.Printf("INR exchange rate:   %s\n", s.ExchangeRate)
	common.PrintBoxSeparator(78)
	fmt.Printf("%-6s %10s %12s %14s %12s %8s\n", "tier", "multiplier", "taps/day", "min withdraw", "withdraw/day", "stars")
	rows := []struct {
		name       string
		multiplier string
		limit      int64
		min        string
		count      int
		stars      int
	}{
		{"free", s.FreeMultiplier.String(), s.FreeLimit, s.MinWithdrawFree.String(), s.WithdrawLimFree, 0},
		{"vip1", s.Vip1Multiplier.String(), s.Vip1Limit, s.MinWithdrawVip1.String(), s.WithdrawLimVip1, s.Vip1PriceStars},
		{"vip2", s.Vip2Multiplier.String(), s.Vip2Limit, s.MinWithdrawVip2.String(), s.WithdrawLimVip2, s.Vip2PriceStars},
	}
	for _, r := range rows {
		fmt.Printf("%-6s %10s %12d %14s %12d %8d\n", r.name, r.multiplier, r.limit, r.min, r.count, r.stars)
	}
	common.PrintFooter("Changes apply to the next tap", common.DefaultWidth)
}
