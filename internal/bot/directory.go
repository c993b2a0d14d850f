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

// cmdHelp lists the commands the actor's role is allowed to run.
func (b *Bot) cmdHelp(ctx context.Context, ev Update) error {
	var sb strings.Builder
	sb.WriteString("Commands:\n\n")
	n := 0
	for _, cmd := range b.table {
		if !cmd.allows(ev.Role) {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d/ /%s - %s\n", n, cmd.Keyword, cmd.Description)
	}
	b.reply(ctx, ev.ChatID, sb.String())
	return nil
}

func (b *Bot) cmdGetListChannels(ctx context.Context, ev Update) error {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Channels:\n\n")
	for i, chat := range chats {
		fmt.Fprintf(&sb, "%d/ %s\n", i+1, chat.Title)
	}
	b.reply(ctx, ev.ChatID, sb.String())
	return nil
}

func (b *Bot) cmdGetListBuilders(ctx context.Context, ev Update) error {
	builders, err := b.store.ListBuilders(ctx)
	if err != nil {
		return fmt.Errorf("list builders: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Builders:\n\n")
	for i, u := range builders {
		fmt.Fprintf(&sb, "%d/ @%s: %s %s - ID: %s\n", i+1, u.Username, u.FirstName, u.LastName, u.ID)
	}
	b.reply(ctx, ev.ChatID, sb.String())
	return nil
}

// cmdGetInviteLinks replies with one invite link per chat. Links already in
// the ledger are reused; missing ones are exported with bounded concurrency
// and cached for next time. Chats whose export fails are skipped.
func (b *Bot) cmdGetInviteLinks(ctx context.Context, ev Update) error {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	log := logger.FromContext(ctx)
	links := make([]string, len(chats))
	var g errgroup.Group
	g.SetLimit(b.fanoutLimit)
	for i, chat := range chats {
		if chat.InviteLink != "" {
			links[i] = chat.InviteLink
			continue
		}
		i, chat := i, chat
		g.Go(func() error {
			link, err := b.gw.ExportInviteLink(ctx, chat.ID)
			if err != nil {
				log.Warn("export invite link failed",
					slog.String("chat_id", chat.ID), slog.Any("error", err))
				return nil
			}
			if err := b.store.SetChatInviteLink(ctx, chat.ID, link); err != nil {
				log.Warn("cache invite link failed",
					slog.String("chat_id", chat.ID), slog.Any("error", err))
			}
			links[i] = link
			return nil
		})
	}
	g.Wait()

	var sb strings.Builder
	sb.WriteString("Open the following links to join the channels:\n")
	n := 0
	for i, chat := range chats {
		if links[i] == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, " %d/ %s: %s\n", n, chat.Title, links[i])
	}
	b.reply(ctx, ev.ChatID, sb.String())
	return nil
}

// cmdGetBotAdmins lists users holding an elevated role, with the owner
// labelled OWNER.
func (b *Bot) cmdGetBotAdmins(ctx context.Context, ev Update) error {
	admins, err := b.store.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		b.reply(ctx, ev.ChatID, msgNoBotAdmins)
		return nil
	}
	var sb strings.Builder
	for i, u := range admins {
		label := strings.ToUpper(string(u.Role))
		if u.ID == b.ownerID {
			label = "OWNER"
		}
		fmt.Fprintf(&sb, "%d/ @%s: %s %s - ID: %s - Role: %s\n", i+1, u.Username, u.FirstName, u.LastName, u.ID, label)
	}
	b.reply(ctx, ev.ChatID, sb.String())
	return nil
}

// cmdGetListBuildersCSV sends the builder directory as a CSV document. Field
// values come straight from the ledger without quoting, matching the plain
// comma-joined format downstream spreadsheets expect.
func (b *Bot) cmdGetListBuildersCSV(ctx context.Context, ev Update) error {
	builders, err := b.store.ListBuilders(ctx)
	if err != nil {
		return fmt.Errorf("list builders: %w", err)
	}
	lines := make([]string, 0, len(builders)+1)
	lines = append(lines, "ID,User Name,First Name,Last Name")
	for _, u := range builders {
		lines = append(lines, fmt.Sprintf("%s,@%s,%s,%s", u.ID, u.Username, u.FirstName, u.LastName))
	}
	b.replyDocument(ctx, ev.ChatID, "list_builders.csv", []byte(strings.Join(lines, "\n")))
	return nil
}

func (b *Bot) cmdGetChatMembersCount(ctx context.Context, ev Update) error {
	b.reply(ctx, ev.ChatID, promptMemberCount)
	b.states.Set(ev.Actor.ID, StageMemberCount)
	return nil
}

// stageMemberCount looks up a chat by its exact title and reports its live
// member count.
func (b *Bot) stageMemberCount(ctx context.Context, ev Update) error {
	chat, err := b.store.FindChatByTitle(ctx, strings.TrimSpace(ev.Text))
	if errors.Is(err, ledger.ErrNotFound) {
		b.reply(ctx, ev.ChatID, msgChatNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find chat: %w", err)
	}
	count, err := b.gw.MemberCount(ctx, chat.ID)
	if err != nil {
		return fmt.Errorf("member count: %w", err)
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("The number of members in the chat is %d", count))
	return nil
}
