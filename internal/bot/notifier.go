package bot

import (
	"context"
	"strconv"

	"tapx-earn-go/internal/events"
	"tapx-earn-go/internal/models"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// Sender is satisfied by *telego.Bot
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Notifier tells users about balance movements they did not trigger
// themselves. Delivery is best effort.
type Notifier struct {
	events.Nop
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) ReferralCredited(ctx context.Context, referrer, referred *models.User, entry models.LedgerEntry) {
	n.send(ctx, referrer.Id, referralText(referred, entry))
}

func (n *Notifier) WithdrawalCreated(ctx context.Context, w models.Withdrawal, _ models.LedgerEntry) {
	n.send(ctx, w.UserId, withdrawalCreatedText(w))
}

func (n *Notifier) WithdrawalProcessed(ctx context.Context, w models.Withdrawal, _ *models.LedgerEntry) {
	n.send(ctx, w.UserId, withdrawalProcessedText(w))
}

func (n *Notifier) VipActivated(ctx context.Context, u *models.User) {
	n.send(ctx, u.Id, vipActivatedText(u))
}

func (n *Notifier) send(ctx context.Context, userId, text string) {
	if text == "" {
		return
	}
	chatId, err := strconv.ParseInt(userId, 10, 64)
	if err != nil {
		zap.L().Debug("Skipping notification for non-Telegram user id", zap.String("user_id", userId))
		return
	}
	if _, err := n.sender.SendMessage(ctx, tu.Message(tu.ID(chatId), text)); err != nil {
		zap.L().Warn("Failed to send notification", zap.String("user_id", userId), zap.Error(err))
	}
}
