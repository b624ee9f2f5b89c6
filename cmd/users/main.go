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
	"flag"
	"fmt"
	"os"
	"regexp"

	"tapx-earn-go/internal/common"
	"tapx-earn-go/internal/config"

	"go.uber.org/zap"
)

const usage = `Usage:
  users add  --id TELEGRAM_ID --name NAME [--username HANDLE] [--ref REFERRER_ID]
  users show --id TELEGRAM_ID
  users vip  --id TELEGRAM_ID --tier vip1|vip2 [--days N]`

var userIdRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

type userCommand struct {
	name     string
	id       string
	userName string
	username string
	ref      string
	tier     string
	days     int
}

func validateUserId(id string) error {
	if id == "" {
		return fmt.Errorf("--id cannot be empty")
	}
	if !userIdRegex.MatchString(id) {
		return fmt.Errorf("invalid Telegram id: %s", id)
	}
	return nil
}

func parseAndValidateFlags(args []string) (*userCommand, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("missing subcommand")
	}
	cmd := &userCommand{name: args[0]}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.StringVar(&cmd.id, "id", "", "Telegram user id")
	fs.StringVar(&cmd.userName, "name", "", "Display name")
	fs.StringVar(&cmd.username, "username", "", "Telegram handle")
	fs.StringVar(&cmd.ref, "ref", "", "Referrer's Telegram id")
	fs.StringVar(&cmd.tier, "tier", "", "VIP tier")
	fs.IntVar(&cmd.days, "days", 0, "VIP duration in days (0 for the configured default)")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if err := validateUserId(cmd.id); err != nil {
		return nil, err
	}
	switch cmd.name {
	case "add":
		if len(cmd.userName) < 2 {
			return nil, fmt.Errorf("--name must be at least 2 characters")
		}
		if cmd.ref != "" {
			if err := validateUserId(cmd.ref); err != nil {
				return nil, fmt.Errorf("--ref: %w", err)
			}
		}
	case "show":
	case "vip":
		if cmd.tier == "" {
			return nil, fmt.Errorf("--tier is required")
		}
	default:
		return nil, fmt.Errorf("unknown subcommand %q", cmd.name)
	}
	return cmd, nil
}

func main() {
	cmd, err := parseAndValidateFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, usage)
		os.Exit(2)
	}

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

	switch cmd.name {
	case "add":
		err = addUser(ctx, services, cmd)
	case "show":
		err = showUser(ctx, services, cmd.id)
	case "vip":
		err = activateVip(ctx, services, cmd)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", cmd.name), zap.Error(err))
		fmt.Printf("\n✗ %v\n\n", err)
		os.Exit(1)
	}
}

func addUser(ctx context.Context, services *common.Services, cmd *userCommand) error {
	user, created, err := services.Ledger.EnsureUser(ctx, cmd.id, cmd.userName, cmd.username, cmd.ref)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("\nUser %s already exists (%s), nothing changed\n\n", user.Id, user.Name)
		return nil
	}

	fmt.Printf("\n✓ User created\n")
	fmt.Printf("   ID: %s\n", user.Id)
	fmt.Printf("   Name: %s\n", user.Name)
	if user.ReferrerId != "" {
		fmt.Printf("   Referred by: %s\n", user.ReferrerId)
	} else if cmd.ref != "" {
		fmt.Println("   Referrer ignored (self-referral)")
	}
	fmt.Println()
	return nil
}

func showUser(ctx context.Context, services *common.Services, id string) error {
	profile, err := services.Ledger.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render profile: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func activateVip(ctx context.Context, services *common.Services, cmd *userCommand) error {
	result, err := services.Ledger.ActivateVip(ctx, cmd.id, cmd.tier, cmd.days)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("activation refused: %s", result.Reason)
	}
	expiry := "-"
	if result.VipExpiry != nil {
		expiry = result.VipExpiry.Format("2006-01-02 15:04 MST")
	}
	fmt.Printf("\n✓ %s active for user %s until %s\n\n", result.Tier, cmd.id, expiry)
	return nil
}
