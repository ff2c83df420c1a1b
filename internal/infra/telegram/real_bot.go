package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/config"
	"telegram-channel-subscription/internal/domain/ports/adapter"
)

// Ensure RealChannelBot implements adapter.ChannelBotAdapter
var _ adapter.ChannelBotAdapter = (*RealChannelBot)(nil)

// RealChannelBot implements adapter.ChannelBotAdapter using tgbotapi with
// concurrent polling for inbound commands.
type RealChannelBot struct {
	bot       *tgbotapi.BotAPI
	channelID int64
	facade    *application.BotFacade
	log       *zerolog.Logger

	// updateWorkers is how many goroutines will concurrently process updates.
	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealChannelBot(cfg *config.BotConfig, facade *application.BotFacade, updateWorkers int, logger *zerolog.Logger) (*RealChannelBot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if updateWorkers <= 0 {
		updateWorkers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "ChannelBot").Logger()

	return &RealChannelBot{
		bot:           bot,
		channelID:     cfg.ChannelID,
		facade:        facade,
		log:           &l,
		updateWorkers: updateWorkers,
	}, nil
}

// StartPolling begins polling Telegram for updates concurrently.
// It runs until ctx is canceled.
func (r *RealChannelBot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, update); err != nil {
						r.log.Error().Err(err).Int("worker", workerID).Msg("error handling update")
					}
				case <-ctx.Done():
					return
				}
			}
		}(i + 1)
	}

	// Dispatcher goroutine: feed updates into updateChan
	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	r.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling stops the polling loop gracefully.
func (r *RealChannelBot) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealChannelBot) SendMessage(ctx context.Context, telegramID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealChannelBot) SendURLButton(ctx context.Context, telegramID int64, text, label, url string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(label, url),
		),
	)
	_, err := r.bot.Send(msg)
	return err
}

// CreateInviteLink mints a single-use invite: member_limit=1 makes the link die
// on first redemption, expire_date bounds its lifetime.
func (r *RealChannelBot) CreateInviteLink(ctx context.Context, ttl time.Duration) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: r.channelID},
		ExpireDate:  int(time.Now().Add(ttl).Unix()),
		MemberLimit: 1,
	}
	resp, err := r.bot.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink: %w", err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", errors.New("empty invite link in response")
	}
	return link.InviteLink, nil
}

// RemoveMember kicks and immediately unbans so the member can rejoin through a
// future invite.
func (r *RealChannelBot) RemoveMember(ctx context.Context, telegramID int64) error {
	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: r.channelID, UserID: telegramID},
	}
	if _, err := r.bot.Request(ban); err != nil {
		return fmt.Errorf("banChatMember: %w", err)
	}
	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: r.channelID, UserID: telegramID},
		OnlyIfBanned:     true,
	}
	if _, err := r.bot.Request(unban); err != nil {
		return fmt.Errorf("unbanChatMember: %w", err)
	}
	return nil
}

// handleUpdate processes a single Telegram update.
func (r *RealChannelBot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}
	tgUser := update.Message.From
	if tgUser == nil || !update.Message.Chat.IsPrivate() {
		return nil
	}

	text := strings.TrimSpace(update.Message.Text)
	if len(text) > 0 && text[0] == '/' {
		return r.handleCommand(ctx, tgUser.ID, text)
	}
	return r.SendMessage(ctx, tgUser.ID, "Sorry, I didn't understand that. Send /help for commands.")
}

func (r *RealChannelBot) handleCommand(ctx context.Context, tgID int64, text string) error {
	cmd := strings.Fields(text)[0]
	switch cmd {
	case "/start":
		cta, err := r.facade.HandleStart(ctx, tgID)
		if err != nil {
			r.log.Error().Err(err).Int64("tg_id", tgID).Msg("start command failed")
			return r.SendMessage(ctx, tgID, "Something went wrong creating your payment link. Please try again later.")
		}
		return r.SendURLButton(ctx, tgID, cta.Text, cta.ButtonLabel, cta.ButtonURL)
	case "/status":
		reply, err := r.facade.HandleStatus(ctx, tgID)
		if err != nil {
			r.log.Error().Err(err).Int64("tg_id", tgID).Msg("status command failed")
			return r.SendMessage(ctx, tgID, "Could not look up your subscription. Please try again later.")
		}
		return r.SendMessage(ctx, tgID, reply)
	case "/help":
		return r.SendMessage(ctx, tgID, "Available commands:\n/start — get a payment link for channel access\n/status — check your subscription\n/help — this message")
	default:
		return r.SendMessage(ctx, tgID, "Unknown command. Send /help for the list of commands.")
	}
}
