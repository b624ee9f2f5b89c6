package formance

import (
	"math/big"
	"testing"

	"tapx-earn-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func testJournal() *Journal {
	return &Journal{ledger: "test", asset: "COIN/3", precision: 3}
}

func TestAssetPrecision(t *testing.T) {
	tests := []struct {
		asset   string
		want    int32
		wantErr bool
	}{
		{"COIN/3", 3, false},
		{"INR/2", 2, false},
		{"COIN", 0, true},
		{"COIN/", 0, true},
		{"/3", 0, true},
		{"COIN/x", 0, true},
		{"COIN/40", 0, true},
	}
	for _, tt := range tests {
		got, err := assetPrecision(tt.asset)
		if (err != nil) != tt.wantErr {
			t.Errorf("assetPrecision(%q) error = %v, wantErr %v", tt.asset, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("assetPrecision(%q) = %d, want %d", tt.asset, got, tt.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	j := testJournal()
	tests := []struct {
		amount string
		want   string
	}{
		{"0.010", "10"},
		{"1", "1000"},
		{"250.5", "250500"},
	}
	for _, tt := range tests {
		if got := j.minorUnits(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("minorUnits(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestBigIntToDecimal(t *testing.T) {
	result := bigIntToDecimal(big.NewInt(1500), 3)
	if !result.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", result.String())
	}

	// nil should return zero
	if result = bigIntToDecimal(nil, 3); !result.IsZero() {
		t.Errorf("expected 0, got %s", result.String())
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"COIN/3": {Input: big.NewInt(5000), Output: big.NewInt(1200)},
		"INR/2":  {Balance: big.NewInt(42)},
	}
	if got := volumeBalance(vols, "COIN/3"); got == nil || got.Int64() != 3800 {
		t.Errorf("expected 3800, got %v", got)
	}
	if got := volumeBalance(vols, "INR/2"); got == nil || got.Int64() != 42 {
		t.Errorf("expected 42, got %v", got)
	}
	if got := volumeBalance(vols, "USD/2"); got != nil {
		t.Errorf("expected nil for missing asset, got %v", got)
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
}

func TestPostings(t *testing.T) {
	j := testJournal()
	w := models.Withdrawal{
		Id:          "w1",
		UserId:      "u1",
		Amount:      decimal.RequireFromString("250"),
		Destination: "ada@upi",
		Status:      models.WithdrawalPaid,
		AdminNote:   "ok",
	}

	hold := j.holdPosting(w, "withdrawal:w1:hold")
	if *hold.Reference != "withdrawal:w1:hold" {
		t.Errorf("unexpected hold reference %q", *hold.Reference)
	}
	if hold.Script.Vars["amount"] != "250000" || hold.Script.Vars["user_id"] != "u1" || hold.Script.Vars["upi_id"] != "ada@upi" {
		t.Errorf("unexpected hold vars %v", hold.Script.Vars)
	}

	paid := j.paidPosting(w)
	if *paid.Reference != "withdrawal:w1:paid" || paid.Script.Plain != numscriptWithdrawalPaid {
		t.Errorf("unexpected paid posting %q", *paid.Reference)
	}

	refund := j.refundPosting(w, "withdrawal:w1:refund")
	if refund.Script.Plain != numscriptWithdrawalRefund || refund.Script.Vars["asset"] != "COIN/3" {
		t.Errorf("unexpected refund posting %v", refund.Script.Vars)
	}

	bonus := j.referralPosting("ref", "u1", models.LedgerEntry{
		Amount:    decimal.RequireFromString("2.5"),
		Reference: "referral:u1",
	})
	if *bonus.Reference != "referral:u1" || bonus.Script.Vars["amount"] != "2500" {
		t.Errorf("unexpected referral posting %q %v", *bonus.Reference, bonus.Script.Vars)
	}
	if bonus.Script.Vars["user_id"] != "ref" || bonus.Script.Vars["referred_id"] != "u1" {
		t.Errorf("referral posting credits the wrong account: %v", bonus.Script.Vars)
	}
}
