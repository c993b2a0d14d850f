package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ninetyeight/builderbot/internal/logger"
)

// actorLocks serializes event handling per actor so that two events for the
// same actor never race on conversation state or ledger writes.
type actorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (a *actorLocks) lock(id string) func() {
	a.mu.Lock()
	if a.locks == nil {
		a.locks = make(map[string]*sync.Mutex)
	}
	l, ok := a.locks[id]
	if !ok {
		l = &sync.Mutex{}
		a.locks[id] = l
	}
	a.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// HandleUpdate routes one normalized transport event. Membership changes go
// straight to the reconciler; exact command keywords pass the access gate;
// free text feeds a pending conversation stage; anything else is dropped.
func (b *Bot) HandleUpdate(ctx context.Context, ev Update) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	log := b.log.With(slog.String("event_id", ev.EventID), slog.String("actor_id", ev.Actor.ID))
	ctx = logger.WithContext(ctx, log)

	unlock := b.locks.lock(ev.Actor.ID)
	defer unlock()

	switch {
	case ev.Self != nil:
		b.runHandler(ctx, b.handleSelfChange, ev)
	case len(ev.Joined) > 0:
		b.runHandler(ctx, b.handleMembersJoined, ev)
	case ev.Left != nil:
		b.runHandler(ctx, b.handleMemberLeft, ev)
	case ev.Command == "start":
		b.reply(ctx, ev.ChatID, msgStartWelcome)
	default:
		b.dispatchText(ctx, ev)
	}
}

func (b *Bot) dispatchText(ctx context.Context, ev Update) {
	if cmd, ok := b.byKeyword[ev.Command]; ok {
		ev.Role = b.resolveRole(ctx, ev.Actor.ID)
		if !cmd.allows(ev.Role) {
			b.reply(ctx, ev.ChatID, msgPermissionDenied)
			return
		}
		b.runHandler(ctx, cmd.handler, ev)
		return
	}

	// Unknown commands bypass the gate and count as free text.
	if stage, ok := b.states.Get(ev.Actor.ID); ok {
		handler, known := b.stages[stage]
		b.states.Clear(ev.Actor.ID)
		if known {
			b.runHandler(ctx, handler, ev)
		}
		return
	}

	if strings.TrimSpace(ev.Text) == "hi" {
		b.reply(ctx, ev.ChatID, msgHeyThere)
	}
}

// runHandler is the handler boundary: failures and panics are logged, the
// actor's stage is cleared, and the actor always gets a reply.
func (b *Bot) runHandler(ctx context.Context, handler handlerFunc, ev Update) {
	log := logger.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic", slog.Any("panic", r))
			b.states.Clear(ev.Actor.ID)
			b.reply(ctx, ev.ChatID, msgGenericFailure)
		}
	}()
	if err := handler(ctx, ev); err != nil {
		log.Error("handler failed", slog.Any("error", err))
		b.states.Clear(ev.Actor.ID)
		b.reply(ctx, ev.ChatID, msgGenericFailure)
	}
}

// reply sends a message, logging transport failures without failing the
// handler.
func (b *Bot) reply(ctx context.Context, chatID, text string) {
	if chatID == "" {
		return
	}
	if err := b.gw.Reply(ctx, chatID, text); err != nil {
		logger.FromContext(ctx).Error("send reply failed", slog.String("chat_id", chatID), slog.Any("error", err))
	}
}

func (b *Bot) replyDocument(ctx context.Context, chatID, name string, data []byte) {
	if err := b.gw.ReplyDocument(ctx, chatID, name, data); err != nil {
		logger.FromContext(ctx).Error("send document failed", slog.String("chat_id", chatID), slog.Any("error", err))
	}
}
