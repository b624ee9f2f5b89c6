// Package events carries committed balance movements to side channels such
// as the Telegram notifier and the Formance mirror. Sinks run after the
// store transaction commits and cannot undo it.
package events

import (
	"context"

	"tapx-earn-go/internal/models"
)

type Sink interface {
	ReferralCredited(ctx context.Context, referrer, referred *models.User, entry models.LedgerEntry)
	WithdrawalCreated(ctx context.Context, w models.Withdrawal, entry models.LedgerEntry)
	// WithdrawalProcessed receives the refund entry for rejections, nil otherwise.
	WithdrawalProcessed(ctx context.Context, w models.Withdrawal, refund *models.LedgerEntry)
	VipActivated(ctx context.Context, u *models.User)
}

// Nop ignores every event. Embed it to implement only some methods.
type Nop struct{}

func (Nop) ReferralCredited(context.Context, *models.User, *models.User, models.LedgerEntry) {}
func (Nop) WithdrawalCreated(context.Context, models.Withdrawal, models.LedgerEntry)         {}
func (Nop) WithdrawalProcessed(context.Context, models.Withdrawal, *models.LedgerEntry)      {}
func (Nop) VipActivated(context.Context, *models.User)                                       {}

// Fanout delivers each event to every sink in order
type Fanout []Sink

func (f Fanout) ReferralCredited(ctx context.Context, referrer, referred *models.User, entry models.LedgerEntry) {
	for _, s := range f {
		s.ReferralCredited(ctx, referrer, referred, entry)
	}
}

func (f Fanout) WithdrawalCreated(ctx context.Context, w models.Withdrawal, entry models.LedgerEntry) {
	for _, s := range f {
		s.WithdrawalCreated(ctx, w, entry)
	}
}

func (f Fanout) WithdrawalProcessed(ctx context.Context, w models.Withdrawal, refund *models.LedgerEntry) {
	for _, s := range f {
		s.WithdrawalProcessed(ctx, w, refund)
	}
}

func (f Fanout) VipActivated(ctx context.Context, u *models.User) {
	for _, s := range f {
		s.VipActivated(ctx, u)
	}
}
