package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/shopspring/decimal"
)

func createTestUser(t *testing.T, service *Service, userId string) {
	t.Helper()
	if _, _, err := service.CreateUser(context.Background(), store.CreateUserParams{UserId: userId, Name: userId}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func TestUpdate_CommitsChanges(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	err := service.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, "user1")
		if err != nil {
			return err
		}
		u.Balance = u.Balance.Add(decimal.RequireFromString("0.002"))
		u.TotalTaps++
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	user, err := service.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !user.Balance.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("Expected balance 0.002, got %s", user.Balance)
	}
	if user.TotalTaps != 1 {
		t.Errorf("Expected 1 tap, got %d", user.TotalTaps)
	}
	if user.Version != 2 {
		t.Errorf("Expected version 2, got %d", user.Version)
	}
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	boom := errors.New("boom")

	err := service.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, "user1")
		if err != nil {
			return err
		}
		u.Balance = decimal.NewFromInt(100)
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	user, err := service.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !user.Balance.IsZero() {
		t.Errorf("Expected rollback to keep zero balance, got %s", user.Balance)
	}
}

func TestSaveUser_StaleVersion(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	stale, err := service.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}

	// Move the row forward so stale.Version no longer matches
	err = service.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, "user1")
		if err != nil {
			return err
		}
		u.TotalTaps = 10
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	attempts := 0
	err = service.Update(ctx, func(tx store.Tx) error {
		attempts++
		c := stale.Clone()
		c.TotalTaps = 999
		return tx.SaveUser(ctx, c)
	})
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}
	if attempts != service.maxRetries {
		t.Errorf("Expected %d attempts, got %d", service.maxRetries, attempts)
	}

	user, _ := service.GetUser(ctx, "user1")
	if user.TotalTaps != 10 {
		t.Errorf("Expected stale write to be rejected, got %d taps", user.TotalTaps)
	}
}

func TestUpdate_ConcurrentIncrements(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- service.Update(ctx, func(tx store.Tx) error {
				u, err := tx.GetUser(ctx, "user1")
				if err != nil {
					return err
				}
				u.TotalTaps++
				return tx.SaveUser(ctx, u)
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent update failed: %v", err)
		}
	}

	user, _ := service.GetUser(ctx, "user1")
	if user.TotalTaps != workers {
		t.Errorf("Expected %d taps, got %d", workers, user.TotalTaps)
	}
}

func TestFinalizeWithdrawal_OnlyFromPending(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	w := &models.Withdrawal{UserId: "user1", Amount: decimal.NewFromInt(250), Destination: "alice@okaxis", Status: models.WithdrawalPending}
	if err := service.Update(ctx, func(tx store.Tx) error { return tx.InsertWithdrawal(ctx, w) }); err != nil {
		t.Fatalf("InsertWithdrawal failed: %v", err)
	}
	if w.Id == "" {
		t.Fatal("Expected generated withdrawal id")
	}

	processedAt := time.Now().UTC()
	paid := *w
	paid.Status = models.WithdrawalPaid
	paid.ProcessedAt = &processedAt
	paid.AdminNote = "sent"
	if err := service.Update(ctx, func(tx store.Tx) error { return tx.FinalizeWithdrawal(ctx, &paid) }); err != nil {
		t.Fatalf("FinalizeWithdrawal failed: %v", err)
	}

	rejected := paid
	rejected.Status = models.WithdrawalRejected
	err := service.Update(ctx, func(tx store.Tx) error { return tx.FinalizeWithdrawal(ctx, &rejected) })
	if !errors.Is(err, store.ErrWithdrawalNotPending) {
		t.Errorf("Expected ErrWithdrawalNotPending, got %v", err)
	}

	stored, err := service.GetWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if stored.Status != models.WithdrawalPaid || stored.AdminNote != "sent" || stored.ProcessedAt == nil {
		t.Errorf("Unexpected stored withdrawal: %+v", stored)
	}

	list, err := service.ListWithdrawals(ctx, store.WithdrawalFilter{Status: models.WithdrawalPending})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected no pending withdrawals, got %d", len(list))
	}
}

func TestCountWithdrawalsSince(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	err := service.Update(ctx, func(tx store.Tx) error {
		for _, at := range []time.Time{today.Add(-time.Hour), today.Add(time.Hour), today.Add(2 * time.Hour)} {
			w := &models.Withdrawal{UserId: "user1", Amount: decimal.NewFromInt(1), Destination: "x@y", Status: models.WithdrawalPending, CreatedAt: at}
			if err := tx.InsertWithdrawal(ctx, w); err != nil {
				return err
			}
		}
		count, err := tx.CountWithdrawalsSince(ctx, "user1", today)
		if err != nil {
			return err
		}
		if count != 2 {
			t.Errorf("Expected 2 withdrawals since midnight, got %d", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestAppendEntry_DuplicateReference(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	entry := func() *models.LedgerEntry {
		return &models.LedgerEntry{
			UserId:        "user1",
			EntryType:     models.EntryReferralBonus,
			Amount:        decimal.NewFromInt(1),
			BalanceBefore: decimal.Zero,
			BalanceAfter:  decimal.NewFromInt(1),
			Reference:     "referral:user2",
		}
	}

	if err := service.Update(ctx, func(tx store.Tx) error { return tx.AppendEntry(ctx, entry()) }); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	err := service.Update(ctx, func(tx store.Tx) error { return tx.AppendEntry(ctx, entry()) })
	if !errors.Is(err, store.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}

	entries, err := service.GetLedgerEntries(ctx, "user1", 10, 0)
	if err != nil {
		t.Fatalf("GetLedgerEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if !entries[0].BalanceAfter.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected balance_after 1, got %s", entries[0].BalanceAfter)
	}
}

func TestSettings_InsertIfAbsentKeepsExisting(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	var loaded models.Settings
	if err := service.LoadSettings(ctx, &loaded); !errors.Is(err, store.ErrSettingsNotFound) {
		t.Fatalf("Expected ErrSettingsNotFound, got %v", err)
	}

	first := &models.Settings{BaseTapValue: decimal.RequireFromString("0.002"), FreeLimit: 1000}
	inserted, err := service.InsertSettingsIfAbsent(ctx, first)
	if err != nil {
		t.Fatalf("InsertSettingsIfAbsent failed: %v", err)
	}
	if !inserted {
		t.Error("Expected first insert to store settings")
	}

	second := &models.Settings{BaseTapValue: decimal.RequireFromString("0.5"), FreeLimit: 1}
	inserted, err = service.InsertSettingsIfAbsent(ctx, second)
	if err != nil {
		t.Fatalf("InsertSettingsIfAbsent failed: %v", err)
	}
	if inserted {
		t.Error("Expected existing settings to win")
	}
	if err := service.LoadSettings(ctx, &loaded); err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.FreeLimit != 1000 || !loaded.BaseTapValue.Equal(first.BaseTapValue) {
		t.Errorf("Unexpected stored settings: %+v", loaded)
	}

	if err := service.SaveSettings(ctx, second); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if err := service.LoadSettings(ctx, &loaded); err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded.FreeLimit != 1 {
		t.Errorf("Expected saved settings, got free limit %d", loaded.FreeLimit)
	}
}
