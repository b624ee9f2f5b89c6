package formance

import (
	"context"
	"fmt"

	"tapx-earn-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. Tap earnings are not mirrored, so user accounts may go
// negative in Formance; the platform accounts carry the other side.
// ---------------------------------------------------------------------------

const numscriptReferralBonus = `vars {
  asset $asset
  number $amount
  account $user_id
  string $referred_id
  string $amount_human
}

send [$asset $amount] (
  source = @platform:referrals allowing unbounded overdraft
  destination = @users:$user_id
)

set_tx_meta("event_type", "referral_bonus")
set_tx_meta("referred_id", $referred_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalHold = `vars {
  asset $asset
  number $amount
  account $user_id
  string $withdrawal_id
  string $upi_id
  string $amount_human
}

send [$asset $amount] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @withdrawals:pending
)

set_tx_meta("event_type", "withdrawal_hold")
set_tx_meta("withdrawal_id", $withdrawal_id)
set_tx_meta("upi_id", $upi_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalPaid = `vars {
  asset $asset
  number $amount
  string $withdrawal_id
  string $user_id
  string $admin_note
  string $amount_human
}

send [$asset $amount] (
  source = @withdrawals:pending
  destination = @payouts:upi
)

set_tx_meta("event_type", "withdrawal_paid")
set_tx_meta("withdrawal_id", $withdrawal_id)
set_tx_meta("user_id", $user_id)
set_tx_meta("admin_note", $admin_note)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalRefund = `vars {
  asset $asset
  number $amount
  account $user_id
  string $withdrawal_id
  string $admin_note
  string $amount_human
}

send [$asset $amount] (
  source = @withdrawals:pending
  destination = @users:$user_id
)

set_tx_meta("event_type", "withdrawal_refund")
set_tx_meta("withdrawal_id", $withdrawal_id)
set_tx_meta("admin_note", $admin_note)
set_tx_meta("amount_human", $amount_human)
`

// ---------------------------------------------------------------------------
// Event handlers
// ---------------------------------------------------------------------------

// ReferralCredited posts the referral bonus to the referrer's account.
func (j *Journal) ReferralCredited(ctx context.Context, referrer, referred *models.User, entry models.LedgerEntry) {
	j.post(ctx, j.referralPosting(referrer.Id, referred.Id, entry))
}

// WithdrawalCreated moves the held amount into the pending withdrawals account.
func (j *Journal) WithdrawalCreated(ctx context.Context, w models.Withdrawal, entry models.LedgerEntry) {
	j.post(ctx, j.holdPosting(w, entry.Reference))
}

// WithdrawalProcessed settles a pending withdrawal: paid funds leave to the
// payout account, rejected funds return to the user.
func (j *Journal) WithdrawalProcessed(ctx context.Context, w models.Withdrawal, refund *models.LedgerEntry) {
	switch w.Status {
	case models.WithdrawalPaid:
		j.post(ctx, j.paidPosting(w))
	case models.WithdrawalRejected:
		if refund == nil {
			zap.L().Warn("Rejected withdrawal without refund entry", zap.String("withdrawal_id", w.Id))
			return
		}
		j.post(ctx, j.refundPosting(w, refund.Reference))
	}
}

// VipActivated records the tier on the user's account metadata.
func (j *Journal) VipActivated(ctx context.Context, u *models.User) {
	meta := map[string]string{
		"entity_type": "end_user",
		"vip_tier":    string(u.VipTier),
	}
	if u.VipExpiry != nil {
		meta["vip_expiry"] = u.VipExpiry.UTC().Format("2006-01-02T15:04:05Z")
	}
	_, err := j.client.Ledger.V2.AddMetadataToAccount(ctx, operations.V2AddMetadataToAccountRequest{
		Ledger:      j.ledger,
		Address:     userAccount(u.Id),
		RequestBody: meta,
	})
	if err != nil {
		zap.L().Warn("Failed to record VIP metadata in Formance", zap.String("user_id", u.Id), zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Postings
// ---------------------------------------------------------------------------

func (j *Journal) referralPosting(referrerId, referredId string, entry models.LedgerEntry) shared.V2PostTransaction {
	return shared.V2PostTransaction{
		Reference: strPtr(entry.Reference),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptReferralBonus,
			Vars: map[string]string{
				"asset":        j.asset,
				"amount":       j.minorUnits(entry.Amount),
				"user_id":      referrerId,
				"referred_id":  referredId,
				"amount_human": entry.Amount.String(),
			},
		},
	}
}

func (j *Journal) holdPosting(w models.Withdrawal, reference string) shared.V2PostTransaction {
	return shared.V2PostTransaction{
		Reference: strPtr(reference),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptWithdrawalHold,
			Vars: map[string]string{
				"asset":         j.asset,
				"amount":        j.minorUnits(w.Amount),
				"user_id":       w.UserId,
				"withdrawal_id": w.Id,
				"upi_id":        w.Destination,
				"amount_human":  w.Amount.String(),
			},
		},
	}
}

func (j *Journal) paidPosting(w models.Withdrawal) shared.V2PostTransaction {
	return shared.V2PostTransaction{
		Reference: strPtr("withdrawal:" + w.Id + ":paid"),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptWithdrawalPaid,
			Vars: map[string]string{
				"asset":         j.asset,
				"amount":        j.minorUnits(w.Amount),
				"withdrawal_id": w.Id,
				"user_id":       w.UserId,
				"admin_note":    w.AdminNote,
				"amount_human":  w.Amount.String(),
			},
		},
	}
}

func (j *Journal) refundPosting(w models.Withdrawal, reference string) shared.V2PostTransaction {
	return shared.V2PostTransaction{
		Reference: strPtr(reference),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptWithdrawalRefund,
			Vars: map[string]string{
				"asset":         j.asset,
				"amount":        j.minorUnits(w.Amount),
				"user_id":       w.UserId,
				"withdrawal_id": w.Id,
				"admin_note":    w.AdminNote,
				"amount_human":  w.Amount.String(),
			},
		},
	}
}

// post creates the transaction. A CONFLICT means the reference was already
// mirrored.
func (j *Journal) post(ctx context.Context, postTx shared.V2PostTransaction) {
	ref := ""
	if postTx.Reference != nil {
		ref = *postTx.Reference
	}

	_, err := j.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            j.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Formance transaction already recorded", zap.String("reference", ref))
			return
		}
		zap.L().Error("Failed to mirror transaction to Formance",
			zap.String("reference", ref),
			zap.Error(fmt.Errorf("error posting transaction: %w", err)))
		return
	}

	zap.L().Info("Transaction mirrored to Formance",
		zap.String("reference", ref),
		zap.String("amount", postTx.Script.Vars["amount_human"]))
}

// minorUnits converts a decimal amount to the asset's smallest unit.
func (j *Journal) minorUnits(amount decimal.Decimal) string {
	return amount.Shift(j.precision).BigInt().String()
}

func userAccount(userId string) string {
	return "users:" + userId
}

func strPtr(s string) *string { return &s }
