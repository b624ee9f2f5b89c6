package vip

import (
	"context"
	"testing"
	"time"

	"tapx-earn-go/internal/database"
	"tapx-earn-go/internal/database/dbtest"
	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"
)

func setupService(t *testing.T, now time.Time) (*Service, *database.Service) {
	t.Helper()
	db := dbtest.New(t)
	svc := NewService(db, nil, 0)
	svc.now = func() time.Time { return now }
	return svc, db
}

func createUser(t *testing.T, db *database.Service, userId string) {
	t.Helper()
	if _, _, err := db.CreateUser(context.Background(), store.CreateUserParams{UserId: userId, Name: userId}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func TestActivate_SetsTierAndExpiry(t *testing.T) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	svc, db := setupService(t, now)
	createUser(t, db, "u1")

	result, err := svc.Activate(context.Background(), "u1", models.TierVip1, 30)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !result.Success || result.Tier != models.TierVip1 {
		t.Fatalf("Unexpected result: %+v", result)
	}

	want := now.Add(30 * 24 * time.Hour)
	user, _ := db.GetUser(context.Background(), "u1")
	if user.VipTier != models.TierVip1 {
		t.Errorf("Expected vip1, got %s", user.VipTier)
	}
	if user.VipExpiry == nil || !user.VipExpiry.Equal(want) {
		t.Errorf("Expected expiry %v, got %v", want, user.VipExpiry)
	}
}

func TestActivate_OverwritesInsteadOfExtending(t *testing.T) {
	start := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	svc, db := setupService(t, start)
	createUser(t, db, "u1")
	ctx := context.Background()

	if _, err := svc.Activate(ctx, "u1", models.TierVip2, 30); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	later := start.Add(10 * 24 * time.Hour)
	svc.now = func() time.Time { return later }
	if _, err := svc.Activate(ctx, "u1", models.TierVip1, 30); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	user, _ := db.GetUser(ctx, "u1")
	want := later.Add(30 * 24 * time.Hour)
	if !user.VipExpiry.Equal(want) {
		t.Errorf("Expected expiry reset to %v, got %v", want, user.VipExpiry)
	}
	if user.VipTier != models.TierVip1 {
		t.Errorf("Expected tier replaced by vip1, got %s", user.VipTier)
	}
}

func TestActivate_DefaultDurationAndInvalidTier(t *testing.T) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	svc, db := setupService(t, now)
	createUser(t, db, "u1")
	ctx := context.Background()

	result, err := svc.Activate(ctx, "u1", models.TierFree, 30)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if result.Success || result.Reason != models.ReasonInvalidTier {
		t.Errorf("Expected invalid tier result, got %+v", result)
	}

	result, err = svc.Activate(ctx, "u1", models.TierVip2, 0)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	want := now.Add(DefaultDurationDays * 24 * time.Hour)
	if !result.VipExpiry.Equal(want) {
		t.Errorf("Expected default duration expiry %v, got %v", want, result.VipExpiry)
	}
}

func TestActivate_UnknownUser(t *testing.T) {
	svc, _ := setupService(t, time.Now())
	if _, err := svc.Activate(context.Background(), "ghost", models.TierVip1, 30); err == nil {
		t.Error("Expected error for unknown user")
	}
}

func TestSweep_DowngradesOnlyExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc, db := setupService(t, now.Add(-40*24*time.Hour))
	ctx := context.Background()
	createUser(t, db, "old")
	createUser(t, db, "fresh")
	createUser(t, db, "free")

	if _, err := svc.Activate(ctx, "old", models.TierVip2, 30); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	svc.now = func() time.Time { return now }
	if _, err := svc.Activate(ctx, "fresh", models.TierVip1, 30); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	result, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Downgraded != 1 || result.Failed != 0 {
		t.Errorf("Unexpected sweep result: %+v", result)
	}

	old, _ := db.GetUser(ctx, "old")
	if old.VipTier != models.TierFree || old.VipExpiry != nil {
		t.Errorf("Expected old to be downgraded, got tier=%s expiry=%v", old.VipTier, old.VipExpiry)
	}
	fresh, _ := db.GetUser(ctx, "fresh")
	if fresh.VipTier != models.TierVip1 {
		t.Errorf("Expected fresh to keep vip1, got %s", fresh.VipTier)
	}

	again, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Second sweep failed: %v", err)
	}
	if again.Downgraded != 0 {
		t.Errorf("Expected idempotent sweep, got %+v", again)
	}
}
