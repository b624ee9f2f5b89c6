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
	"errors"
	"flag"
	"fmt"
	"os"

	"tapx-earn-go/internal/common"
	"tapx-earn-go/internal/config"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usage = `Usage:
  withdrawals list    [--status pending|paid|rejected] [--user ID] [--limit N]
  withdrawals approve --id ID [--note TEXT]
  withdrawals reject  --id ID --note TEXT
  withdrawals request --user ID --amount AMOUNT --upi UPI_ID`

type command struct {
	name   string
	id     string
	note   string
	userId string
	status string
	amount decimal.Decimal
	upi    string
	limit  int
}

func parseAndValidateFlags(args []string) (*command, error) {
	if len(args) < 1 {
		return nil, errors.New("missing subcommand")
	}
	cmd := &command{name: args[0]}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.StringVar(&cmd.id, "id", "", "Withdrawal id")
	fs.StringVar(&cmd.note, "note", "", "Admin note")
	fs.StringVar(&cmd.userId, "user", "", "User id")
	fs.StringVar(&cmd.status, "status", "pending", "Status filter for list (empty for all)")
	fs.IntVar(&cmd.limit, "limit", 50, "Maximum rows for list")
	fs.StringVar(&cmd.upi, "upi", "", "UPI id for request")
	amountFlag := fs.String("amount", "", "Amount for request")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	switch cmd.name {
	case "list":
	case "approve":
		if cmd.id == "" {
			return nil, errors.New("--id is required")
		}
	case "reject":
		if cmd.id == "" || cmd.note == "" {
			return nil, errors.New("--id and --note are required")
		}
	case "request":
		if cmd.userId == "" || *amountFlag == "" || cmd.upi == "" {
			return nil, errors.New("--user, --amount and --upi are required")
		}
		amount, err := decimal.NewFromString(*amountFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid amount format: %w", err)
		}
		cmd.amount = amount
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
	case "list":
		err = listWithdrawals(ctx, services, cmd)
	case "approve":
		err = processWithdrawal(ctx, services, cmd.id, models.WithdrawalPaid, cmd.note)
	case "reject":
		err = processWithdrawal(ctx, services, cmd.id, models.WithdrawalRejected, cmd.note)
	case "request":
		err = requestWithdrawal(ctx, services, cmd)
	}
	if err != nil {
		logger.Error("Command failed", zap.String("command", cmd.name), zap.Error(err))
		fmt.Printf("\n✗ %v\n\n", err)
		os.Exit(1)
	}
}

func listWithdrawals(ctx context.Context, services *common.Services, cmd *command) error {
	list, err := services.Ledger.ListWithdrawals(ctx, store.WithdrawalFilter{
		UserId: cmd.userId,
		Status: models.WithdrawalStatus(cmd.status),
		Limit:  cmd.limit,
	})
	if err != nil {
		return err
	}

	title := "WITHDRAWALS"
	if cmd.status != "" {
		title = fmt.Sprintf("WITHDRAWALS (%s)", cmd.status)
	}
	common.PrintHeader(title, common.WideWidth)
	if len(list) == 0 {
		fmt.Println("No withdrawals found")
	}
	total := decimal.Zero
	for i, w := range list {
		isLast := i == len(list)-1
		total = total.Add(w.Amount)
		fmt.Printf("%s%s  user=%s  %s  %s  %s\n",
			common.BoxPrefix(isLast), w.Id, w.UserId,
			common.FormatAmount(w.Amount, 2), w.Destination, w.Status)
		fmt.Printf("%s   created %s", common.BoxDetailPrefix(isLast), w.CreatedAt.Format("2006-01-02 15:04:05"))
		if w.ProcessedAt != nil {
			fmt.Printf("  processed %s", w.ProcessedAt.Format("2006-01-02 15:04:05"))
		}
		if w.AdminNote != "" {
			fmt.Printf("  note=%q", w.AdminNote)
		}
		fmt.Println()
	}
	common.PrintFooter(fmt.Sprintf("%d withdrawals, total %s", len(list), common.FormatAmount(total, 2)), common.WideWidth)
	return nil
}

func processWithdrawal(ctx context.Context, services *common.Services, id string, status models.WithdrawalStatus, note string) error {
	w, err := services.Ledger.ProcessWithdrawal(ctx, id, status, note)
	if err != nil {
		return err
	}

	fmt.Printf("\n✓ Withdrawal %s marked %s\n", w.Id, w.Status)
	fmt.Printf("   User: %s\n", w.UserId)
	fmt.Printf("   Amount: %s to %s\n", common.FormatAmount(w.Amount, 2), w.Destination)
	if status == models.WithdrawalRejected {
		fmt.Println("   Amount returned to the user's balance")
	}
	fmt.Println()
	return nil
}

func requestWithdrawal(ctx context.Context, services *common.Services, cmd *command) error {
	result, err := services.Ledger.RequestWithdrawal(ctx, cmd.userId, cmd.amount, cmd.upi)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("withdrawal refused: %s (balance %s)", result.Reason, common.FormatAmount(result.Balance, 3))
	}

	fmt.Printf("\n✓ Withdrawal %s created\n", result.Withdrawal.Id)
	fmt.Printf("   Amount: %s to %s\n", common.FormatAmount(result.Withdrawal.Amount, 2), result.Withdrawal.Destination)
	fmt.Printf("   Remaining balance: %s\n\n", common.FormatAmount(result.Balance, 3))
	return nil
}
