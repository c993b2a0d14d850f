// Package telegram adapts the Telegram Bot API to the dispatch engine: it
// long-polls for updates, normalizes them into engine events, and implements
// the outbound gateway.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ninetyeight/builderbot/internal/bot"
)

// Handler consumes one normalized update.
type Handler func(ctx context.Context, ev bot.Update)

type Client struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// New authenticates against the Bot API. Every outbound call is bounded by
// the HTTP client timeout; the Bot API itself carries no context support.
func New(token string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Client{
		api:    api,
		logger: log.With(slog.String("component", "telegram")),
	}, nil
}

// Username returns the authenticated bot's username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Run long-polls for updates until the context is cancelled. Each update is
// handled on its own goroutine; the dispatcher serializes per actor.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := c.api.GetUpdatesChan(updateConfig)
	c.logger.Info("start", slog.String("username", c.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stop")
			c.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return nil
			}
			ev, ok := normalize(c.api.Self.ID, update)
			if !ok {
				continue
			}
			go handler(ctx, ev)
		}
	}
}

func (c *Client) Reply(_ context.Context, chatID, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	_, err = c.api.Send(tgbotapi.NewMessage(id, text))
	return err
}

func (c *Client) ReplyDocument(_ context.Context, chatID, filename string, data []byte) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	document := tgbotapi.NewDocument(id, tgbotapi.FileBytes{Name: filename, Bytes: data})
	_, err = c.api.Send(document)
	return err
}

func (c *Client) ExportInviteLink(_ context.Context, chatID string) (string, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return "", err
	}
	return c.api.GetInviteLink(tgbotapi.ChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: id},
	})
}

func (c *Client) BanMember(_ context.Context, chatID, userID string) error {
	cid, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram user id must be numeric: %q", userID)
	}
	_, err = c.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: cid, UserID: uid},
	})
	return err
}

func (c *Client) MemberCount(_ context.Context, chatID string) (int, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return 0, err
	}
	return c.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: id},
	})
}

// SetCommandMenu registers the command menu shown by Telegram clients.
func (c *Client) SetCommandMenu(_ context.Context, commands []bot.MenuCommand) error {
	menu := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		menu = append(menu, tgbotapi.BotCommand{Command: cmd.Command, Description: cmd.Description})
	}
	_, err := c.api.Request(tgbotapi.NewSetMyCommands(menu...))
	return err
}

func parseChatID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram chat id must be numeric: %q", raw)
	}
	return id, nil
}
