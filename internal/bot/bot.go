package bot

import (
	"log/slog"

	"github.com/ninetyeight/builderbot/internal/ledger"
)

// Options configures a Bot.
type Options struct {
	Store   ledger.Store
	Gateway Gateway
	// OwnerID is the configured super-admin, never stored in the ledger.
	OwnerID string
	// FanoutLimit bounds concurrent transport calls during bulk operations.
	FanoutLimit int
	Logger      *slog.Logger
}

// Bot is the command dispatch engine.
type Bot struct {
	store       ledger.Store
	gw          Gateway
	ownerID     string
	fanoutLimit int
	log         *slog.Logger

	table     []Command
	byKeyword map[string]Command
	states    *conversationStore
	stages    map[Stage]handlerFunc
	locks     actorLocks
}

func New(opts Options) *Bot {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	limit := opts.FanoutLimit
	if limit < 1 {
		limit = 1
	}
	b := &Bot{
		store:       opts.Store,
		gw:          opts.Gateway,
		ownerID:     opts.OwnerID,
		fanoutLimit: limit,
		log:         log.With(slog.String("component", "bot")),
		states:      newConversationStore(),
	}
	b.table = b.commandTable()
	b.byKeyword = make(map[string]Command, len(b.table))
	for _, cmd := range b.table {
		b.byKeyword[cmd.Keyword] = cmd
	}
	b.stages = map[Stage]handlerFunc{
		StageRemoveBuilder:  b.stageRemoveBuilder,
		StageAddBotAdmin:    b.stageAddBotAdmin,
		StageRemoveBotAdmin: b.stageRemoveBotAdmin,
		StageMemberCount:    b.stageMemberCount,
	}
	return b
}
