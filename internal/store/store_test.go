package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interfaces are importable and usable.
func TestLedgerStoreInterfaceExists(t *testing.T) {
	_ = CreateUserParams{}
	_ = WithdrawalFilter{}

	var _ LedgerStore
	var _ Tx
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	sentinels := []error{
		ErrUserNotFound,
		ErrConcurrentModification,
		ErrSettingsNotFound,
		ErrWithdrawalNotFound,
		ErrWithdrawalNotPending,
		ErrDuplicateEntry,
	}

	for i, target := range sentinels {
		wrapped := fmt.Errorf("layer two: %w", fmt.Errorf("layer one - %w", target))
		if !errors.Is(wrapped, target) {
			t.Errorf("Expected wrapped error to match %v", target)
		}
		for j, other := range sentinels {
			if i != j && errors.Is(wrapped, other) {
				t.Errorf("Sentinel %v unexpectedly matches %v", target, other)
			}
		}
	}
}
