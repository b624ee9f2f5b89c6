package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tapx-earn-go/internal/models"
	"tapx-earn-go/internal/store"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

// Service is the part of api.LedgerService the bot talks to
type Service interface {
	EnsureUser(ctx context.Context, userId, name, username, startParam string) (*models.User, bool, error)
	GetProfile(ctx context.Context, userId string) (*models.UserProfile, error)
	GetSettings(ctx context.Context) (*models.Settings, error)
}

type Bot struct {
	Instance  *telego.Bot
	svc       Service
	webAppURL string
	handler   *th.BotHandler
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient creates the Telegram API client shared by the bot and the Notifier
func NewClient(cfg models.BotConfig) (*telego.Bot, error) {
	tgBot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return tgBot, nil
}

func NewBot(instance *telego.Bot, webAppURL string, svc Service) *Bot {
	return &Bot{
		Instance:  instance,
		svc:       svc,
		webAppURL: webAppURL,
		done:      make(chan struct{}),
	}
}

// Start begins long polling and dispatching updates in the background
func (b *Bot) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	updates, err := b.Instance.UpdatesViaLongPolling(pollCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create bot handler: %w", err)
	}
	b.handler = handler
	b.cancel = cancel

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleBalance, th.CommandEqual("balance"))
	handler.Handle(b.handleVip, th.CommandEqual("vip"))
	handler.Handle(b.handleBalanceCallback, th.CallbackDataEqual("balance"))

	go func() {
		defer close(b.done)
		if err := handler.Start(); err != nil {
			zap.L().Error("Bot handler stopped with error", zap.Error(err))
		}
	}()

	zap.L().Info("Telegram bot started")
	return nil
}

// Stop cancels long polling and waits for the handler to drain
func (b *Bot) Stop() {
	if b.cancel == nil {
		return
	}
	zap.L().Info("Stopping Telegram bot")
	b.cancel()
	b.handler.Stop()
	<-b.done
	zap.L().Info("Telegram bot stopped")
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil {
		return nil
	}
	from := message.From
	userId := strconv.FormatInt(from.ID, 10)

	user, created, err := b.svc.EnsureUser(ctx.Context(), userId, displayName(from), from.Username, startPayload(message.Text))
	if err != nil {
		zap.L().Error("Failed to register user from bot", zap.String("user_id", userId), zap.Error(err))
		return b.reply(ctx, message.Chat.ID, "Something went wrong, please try again later.", nil)
	}

	profile, err := b.svc.GetProfile(ctx.Context(), user.Id)
	if err != nil {
		zap.L().Error("Failed to load profile", zap.String("user_id", userId), zap.Error(err))
		return b.reply(ctx, message.Chat.ID, "Something went wrong, please try again later.", nil)
	}

	return b.reply(ctx, message.Chat.ID, startText(profile, created), b.keyboard())
}

func (b *Bot) handleBalance(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.From == nil {
		return nil
	}
	return b.sendBalance(ctx, message.From.ID, message.Chat.ID)
}

// CallbackAnswerer acknowledges inline button presses
type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

func (b *Bot) handleBalanceCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	answerCallback(ctx.Context(), ctx.Bot(), callback.ID)
	return b.sendBalance(ctx, callback.From.ID, callback.From.ID)
}

// answerCallback stops the client spinner. Failures are logged, not returned.
func answerCallback(ctx context.Context, answerer CallbackAnswerer, callbackId string) bool {
	if err := answerer.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackId)); err != nil {
		zap.L().Warn("Failed to answer callback query", zap.String("callback_id", callbackId), zap.Error(err))
		return false
	}
	return true
}

func (b *Bot) sendBalance(ctx *th.Context, telegramId, chatId int64) error {
	profile, err := b.svc.GetProfile(ctx.Context(), strconv.FormatInt(telegramId, 10))
	if errors.Is(err, store.ErrUserNotFound) {
		return b.reply(ctx, chatId, "You are not registered yet. Send /start first.", nil)
	}
	if err != nil {
		zap.L().Error("Failed to load profile", zap.Int64("telegram_id", telegramId), zap.Error(err))
		return b.reply(ctx, chatId, "Something went wrong, please try again later.", nil)
	}
	return b.reply(ctx, chatId, balanceText(profile), b.keyboard())
}

func (b *Bot) handleVip(ctx *th.Context, update telego.Update) error {
	message := update.Message
	current, err := b.svc.GetSettings(ctx.Context())
	if err != nil {
		zap.L().Error("Failed to load settings", zap.Error(err))
		return b.reply(ctx, message.Chat.ID, "Something went wrong, please try again later.", nil)
	}
	return b.reply(ctx, message.Chat.ID, vipText(current), b.keyboard())
}

func (b *Bot) reply(ctx *th.Context, chatId int64, text string, markup *telego.InlineKeyboardMarkup) error {
	msg := tu.Message(tu.ID(chatId), text)
	if markup != nil {
		msg = msg.WithReplyMarkup(markup)
	}
	if _, err := ctx.Bot().SendMessage(ctx.Context(), msg); err != nil {
		zap.L().Warn("Failed to send bot reply", zap.Int64("chat_id", chatId), zap.Error(err))
	}
	return nil
}

func (b *Bot) keyboard() *telego.InlineKeyboardMarkup {
	rows := [][]telego.InlineKeyboardButton{
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Balance").WithCallbackData("balance")),
	}
	if b.webAppURL != "" {
		rows = append([][]telego.InlineKeyboardButton{
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("Start tapping").WithWebApp(&telego.WebAppInfo{URL: b.webAppURL})),
		}, rows...)
	}
	return tu.InlineKeyboard(rows...)
}

// startPayload returns the deep-link argument of "/start <payload>"
func startPayload(text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func displayName(u *telego.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
