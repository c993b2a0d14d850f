package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ninetyeight/builderbot/internal/ledger"
	"github.com/ninetyeight/builderbot/internal/logger"
)

// handleSelfChange reconciles the bot's own membership: added as a member
// creates the chat (idempotent), left or kicked deletes it. Membership rows
// for a deleted chat are left as-is.
func (b *Bot) handleSelfChange(ctx context.Context, ev Update) error {
	log := logger.FromContext(ctx)
	switch ev.Self.Status {
	case SelfStatusMember:
		err := b.store.CreateChat(ctx, ledger.Chat{
			ID:    ev.Self.Chat.ID,
			Title: ev.Self.Chat.Title,
			Type:  ev.Self.Chat.Type,
		})
		if err != nil && !errors.Is(err, ledger.ErrDuplicate) {
			return fmt.Errorf("add chat: %w", err)
		}
		log.Info("chat registered", slog.String("chat_id", ev.Self.Chat.ID), slog.String("title", ev.Self.Chat.Title))
	case SelfStatusLeft, SelfStatusKicked:
		if err := b.store.DeleteChat(ctx, ev.Self.Chat.ID); err != nil {
			return fmt.Errorf("remove chat: %w", err)
		}
		log.Info("chat removed", slog.String("chat_id", ev.Self.Chat.ID))
	}
	return nil
}

// handleMembersJoined upserts a user row and a joined membership for every
// member of the batch.
func (b *Bot) handleMembersJoined(ctx context.Context, ev Update) error {
	for _, p := range ev.Joined {
		err := b.store.CreateUser(ctx, ledger.User{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Username:  p.Username,
			IsBot:     p.IsBot,
		})
		if err != nil && !errors.Is(err, ledger.ErrDuplicate) {
			return fmt.Errorf("add joined user: %w", err)
		}
		if err := b.store.EnsureMembership(ctx, p.ID, ev.ChatID, ledger.MemberJoined); err != nil {
			return fmt.Errorf("record join: %w", err)
		}
	}
	return nil
}

// handleMemberLeft marks the membership removed, preserving history. The
// user row is kept.
func (b *Bot) handleMemberLeft(ctx context.Context, ev Update) error {
	if err := b.store.UpdateMembershipStatus(ctx, ev.Left.ID, ev.ChatID, ledger.MemberRemoved); err != nil {
		return fmt.Errorf("record leave: %w", err)
	}
	return nil
}

// cmdIAmBuilder self-registers the actor into every known chat and sends a
// private welcome.
func (b *Bot) cmdIAmBuilder(ctx context.Context, ev Update) error {
	err := b.store.CreateUser(ctx, ledger.User{
		ID:        ev.Actor.ID,
		FirstName: ev.Actor.FirstName,
		LastName:  ev.Actor.LastName,
		Username:  ev.Actor.Username,
		Status:    ledger.UserEnabled,
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicate) {
		return fmt.Errorf("register builder: %w", err)
	}

	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for _, chat := range chats {
		if err := b.store.EnsureMembership(ctx, ev.Actor.ID, chat.ID, ledger.MemberJoined); err != nil {
			return fmt.Errorf("join chat %s: %w", chat.ID, err)
		}
	}

	b.reply(ctx, ev.Actor.ID, msgBuilderWelcome)
	return nil
}

func (b *Bot) cmdRemoveBuilder(ctx context.Context, ev Update) error {
	b.reply(ctx, ev.ChatID, promptRemoveBuilder)
	b.states.Set(ev.Actor.ID, StageRemoveBuilder)
	return nil
}

// chatOutcome is the per-chat result of a bulk operation.
type chatOutcome struct {
	ChatID string
	Err    error
}

// stageRemoveBuilder removes the target from every chat with bounded
// concurrency. A failed ban in one chat never aborts the others; the user
// ends up disabled with its role cleared regardless of ban outcomes.
func (b *Bot) stageRemoveBuilder(ctx context.Context, ev Update) error {
	targetID := strings.TrimSpace(ev.Text)
	target, err := b.store.FindUser(ctx, targetID)
	if errors.Is(err, ledger.ErrNotFound) {
		b.reply(ctx, ev.ChatID, msgBuilderNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find builder: %w", err)
	}

	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	log := logger.FromContext(ctx)
	outcomes := make([]chatOutcome, len(chats))
	var g errgroup.Group
	g.SetLimit(b.fanoutLimit)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			var errs []error
			if err := b.store.DeleteMemberships(ctx, target.ID, chat.ID); err != nil {
				errs = append(errs, err)
			}
			if err := b.gw.BanMember(ctx, chat.ID, target.ID); err != nil {
				errs = append(errs, fmt.Errorf("ban: %w", err))
			}
			outcomes[i] = chatOutcome{ChatID: chat.ID, Err: errors.Join(errs...)}
			return nil
		})
	}
	g.Wait()
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			log.Warn("remove builder: chat failed",
				slog.String("user_id", target.ID),
				slog.String("chat_id", outcome.ChatID),
				slog.Any("error", outcome.Err))
		}
	}

	if err := b.store.DisableUser(ctx, target.ID); err != nil {
		return fmt.Errorf("disable builder: %w", err)
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("Builder @%s has been removed from all channels and groups", target.Username))
	return nil
}

func (b *Bot) cmdAddBotAdmin(ctx context.Context, ev Update) error {
	b.reply(ctx, ev.ChatID, promptAddBotAdmin)
	b.states.Set(ev.Actor.ID, StageAddBotAdmin)
	return nil
}

// stageAddBotAdmin parses an "id role" pair and grants the role. The target
// must already exist in the ledger.
func (b *Bot) stageAddBotAdmin(ctx context.Context, ev Update) error {
	fields := strings.Fields(ev.Text)
	if len(fields) != 2 {
		b.reply(ctx, ev.ChatID, msgInvalidIDRole)
		return nil
	}
	role, ok := ledger.ParseRole(fields[1])
	if !ok {
		b.reply(ctx, ev.ChatID, msgInvalidIDRole)
		return nil
	}

	target, err := b.store.FindUser(ctx, fields[0])
	if errors.Is(err, ledger.ErrNotFound) {
		b.reply(ctx, ev.ChatID, msgUserNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := b.store.SetUserRole(ctx, target.ID, role); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("User @%s has been added as %s", target.Username, role))
	return nil
}

func (b *Bot) cmdRemoveBotAdmin(ctx context.Context, ev Update) error {
	b.reply(ctx, ev.ChatID, promptRemoveBotAdmin)
	b.states.Set(ev.Actor.ID, StageRemoveBotAdmin)
	return nil
}

// stageRemoveBotAdmin clears the target's role. The owner can never be
// revoked.
func (b *Bot) stageRemoveBotAdmin(ctx context.Context, ev Update) error {
	targetID := strings.TrimSpace(ev.Text)
	if targetID == "" {
		b.reply(ctx, ev.ChatID, msgInvalidID)
		return nil
	}
	if targetID == b.ownerID {
		b.reply(ctx, ev.ChatID, msgCannotRemoveOwner)
		return nil
	}

	target, err := b.store.FindUser(ctx, targetID)
	if errors.Is(err, ledger.ErrNotFound) || (err == nil && !target.Role.Elevated()) {
		b.reply(ctx, ev.ChatID, msgNoBotAdminFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find admin: %w", err)
	}
	if err := b.store.SetUserRole(ctx, target.ID, ""); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("User @%s has been removed as bot admin", target.Username))
	return nil
}
