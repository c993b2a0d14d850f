package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninetyeight/builderbot/internal/ledger"
)

type sentMessage struct {
	ChatID string
	Text   string
}

type sentDocument struct {
	ChatID   string
	Filename string
	Data     []byte
}

type banCall struct {
	ChatID string
	UserID string
}

// fakeGateway records outbound transport calls and lets tests inject
// per-chat failures.
type fakeGateway struct {
	mu        sync.Mutex
	replies   []sentMessage
	documents []sentDocument
	bans      []banCall
	menu      []MenuCommand

	banErr  map[string]error
	links   map[string]string
	linkErr map[string]error
	counts  map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		banErr:  make(map[string]error),
		links:   make(map[string]string),
		linkErr: make(map[string]error),
		counts:  make(map[string]int),
	}
}

func (g *fakeGateway) Reply(_ context.Context, chatID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (g *fakeGateway) ReplyDocument(_ context.Context, chatID, filename string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.documents = append(g.documents, sentDocument{ChatID: chatID, Filename: filename, Data: data})
	return nil
}

func (g *fakeGateway) ExportInviteLink(_ context.Context, chatID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.linkErr[chatID]; ok {
		return "", err
	}
	link, ok := g.links[chatID]
	if !ok {
		return "", fmt.Errorf("no link for chat %s", chatID)
	}
	return link, nil
}

func (g *fakeGateway) BanMember(_ context.Context, chatID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.banErr[chatID]; ok {
		return err
	}
	g.bans = append(g.bans, banCall{ChatID: chatID, UserID: userID})
	return nil
}

func (g *fakeGateway) MemberCount(_ context.Context, chatID string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.counts[chatID]
	if !ok {
		return 0, fmt.Errorf("chat %s unavailable", chatID)
	}
	return n, nil
}

func (g *fakeGateway) SetCommandMenu(_ context.Context, commands []MenuCommand) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.menu = commands
	return nil
}

func (g *fakeGateway) lastReply() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.replies) == 0 {
		return sentMessage{}
	}
	return g.replies[len(g.replies)-1]
}

func newTestBot(t *testing.T, ownerID string) (*Bot, *ledger.MemoryStore, *fakeGateway) {
	t.Helper()
	store := ledger.NewMemoryStore()
	gw := newFakeGateway()
	b := New(Options{
		Store:       store,
		Gateway:     gw,
		OwnerID:     ownerID,
		FanoutLimit: 4,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return b, store, gw
}

func command(actorID, chatID, keyword string) Update {
	return Update{
		Actor:   Person{ID: actorID, Username: "u" + actorID},
		ChatID:  chatID,
		Command: keyword,
		Text:    "/" + keyword,
	}
}

func text(actorID, chatID, body string) Update {
	return Update{
		Actor:  Person{ID: actorID, Username: "u" + actorID},
		ChatID: chatID,
		Text:   body,
	}
}

func TestIAmBuilderJoinsAllChats(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c1", Title: "General"}))
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c2", Title: "Random"}))

	b.HandleUpdate(ctx, Update{
		Actor:   Person{ID: "500", Username: "newbie", FirstName: "New"},
		ChatID:  "c1",
		Command: CmdIAmBuilder,
	})

	u, err := store.FindUser(ctx, "500")
	require.NoError(t, err)
	assert.Equal(t, ledger.UserEnabled, u.Status)

	ms, err := store.ListMemberships(ctx, "500")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	for _, m := range ms {
		assert.Equal(t, ledger.MemberJoined, m.Status)
	}

	// Welcome goes to the actor's private chat, not the group.
	assert.Equal(t, sentMessage{ChatID: "500", Text: "Welcome to Ninety Eight, have a great time!"}, gw.lastReply())
}

func TestIAmBuilderIsIdempotent(t *testing.T) {
	b, store, _ := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c1", Title: "General"}))

	first := Update{Actor: Person{ID: "500", FirstName: "Ann"}, ChatID: "c1", Command: CmdIAmBuilder}
	b.HandleUpdate(ctx, first)

	// Second registration with different profile fields must not clobber
	// the original row or duplicate memberships.
	second := Update{Actor: Person{ID: "500", FirstName: "Other"}, ChatID: "c1", Command: CmdIAmBuilder}
	b.HandleUpdate(ctx, second)

	u, err := store.FindUser(ctx, "500")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)

	ms, err := store.ListMemberships(ctx, "500")
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}

func TestRemoveBuilderFanout(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "500", Username: "target", Status: ledger.UserEnabled}))
	for i := 1; i <= 5; i++ {
		chatID := fmt.Sprintf("c%d", i)
		require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: chatID, Title: chatID}))
		require.NoError(t, store.EnsureMembership(ctx, "500", chatID, ledger.MemberJoined))
	}
	gw.banErr["c3"] = fmt.Errorf("forbidden")

	b.HandleUpdate(ctx, command("111", "private", CmdRemoveBuilder))
	assert.Equal(t, promptRemoveBuilder, gw.lastReply().Text)

	b.HandleUpdate(ctx, text("111", "private", "500"))

	// One chat failing must not stop the other four.
	assert.Len(t, gw.bans, 4)
	for _, ban := range gw.bans {
		assert.Equal(t, "500", ban.UserID)
		assert.NotEqual(t, "c3", ban.ChatID)
	}

	ms, err := store.ListMemberships(ctx, "500")
	require.NoError(t, err)
	assert.Empty(t, ms)

	u, err := store.FindUser(ctx, "500")
	require.NoError(t, err)
	assert.Equal(t, ledger.UserDisabled, u.Status)

	assert.Equal(t, "Builder @target has been removed from all channels and groups", gw.lastReply().Text)
}

func TestRemoveBuilderUnknownTarget(t *testing.T) {
	b, _, gw := newTestBot(t, "111")
	ctx := context.Background()

	b.HandleUpdate(ctx, command("111", "private", CmdRemoveBuilder))
	b.HandleUpdate(ctx, text("111", "private", "999"))

	assert.Equal(t, msgBuilderNotFound, gw.lastReply().Text)
	assert.Empty(t, gw.bans)
}

func TestAddBotAdminFlow(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "222", Username: "hranna", Status: ledger.UserEnabled}))

	b.HandleUpdate(ctx, command("111", "private", CmdAddBotAdmin))
	assert.Equal(t, promptAddBotAdmin, gw.lastReply().Text)

	b.HandleUpdate(ctx, text("111", "private", "222 hr"))
	assert.Equal(t, "User @hranna has been added as hr", gw.lastReply().Text)

	u, err := store.FindUser(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, ledger.RoleHR, u.Role)
}

func TestAddBotAdminRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"missing role", "222", msgInvalidIDRole},
		{"unknown role", "222 boss", msgInvalidIDRole},
		{"builder role not assignable", "222 builder", msgInvalidIDRole},
		{"unknown user", "999 hr", msgUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, store, gw := newTestBot(t, "111")
			ctx := context.Background()
			require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "222", Username: "hranna"}))

			b.HandleUpdate(ctx, command("111", "private", CmdAddBotAdmin))
			b.HandleUpdate(ctx, text("111", "private", tc.input))
			assert.Equal(t, tc.want, gw.lastReply().Text)
		})
	}
}

func TestRemoveBotAdmin(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "222", Username: "hranna", Role: ledger.RoleHR}))

	b.HandleUpdate(ctx, command("111", "private", CmdRemoveBotAdmin))
	assert.Equal(t, promptRemoveBotAdmin, gw.lastReply().Text)

	b.HandleUpdate(ctx, text("111", "private", "222"))
	assert.Equal(t, "User @hranna has been removed as bot admin", gw.lastReply().Text)

	u, err := store.FindUser(ctx, "222")
	require.NoError(t, err)
	assert.False(t, u.Role.Elevated())
}

func TestRemoveBotAdminProtectsOwner(t *testing.T) {
	b, _, gw := newTestBot(t, "111")
	ctx := context.Background()

	b.HandleUpdate(ctx, command("111", "private", CmdRemoveBotAdmin))
	b.HandleUpdate(ctx, text("111", "private", "111"))

	assert.Equal(t, msgCannotRemoveOwner, gw.lastReply().Text)
}

func TestRemoveBotAdminNotAnAdmin(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "333", Username: "plain"}))

	b.HandleUpdate(ctx, command("111", "private", CmdRemoveBotAdmin))
	b.HandleUpdate(ctx, text("111", "private", "333"))

	assert.Equal(t, msgNoBotAdminFound, gw.lastReply().Text)
}

func TestGetBotAdminsEmpty(t *testing.T) {
	b, _, gw := newTestBot(t, "111")

	b.HandleUpdate(context.Background(), command("111", "private", CmdGetBotAdmins))
	assert.Equal(t, msgNoBotAdmins, gw.lastReply().Text)
}

func TestGetBotAdminsLabelsOwner(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "111", Username: "boss", FirstName: "Big", LastName: "Boss", Role: ledger.RoleAdmin}))
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "222", Username: "hranna", FirstName: "Ann", LastName: "H", Role: ledger.RoleHR}))

	b.HandleUpdate(ctx, command("111", "private", CmdGetBotAdmins))

	want := "1/ @boss: Big Boss - ID: 111 - Role: OWNER\n" +
		"2/ @hranna: Ann H - ID: 222 - Role: HR\n"
	assert.Equal(t, want, gw.lastReply().Text)
}

func TestGetListBuildersCSV(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "1", Username: "a", FirstName: "Ann"}))
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "2", FirstName: "Bo", LastName: "X"}))
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "3", Username: "bot", IsBot: true}))

	b.HandleUpdate(ctx, command("111", "private", CmdGetListBuildersCSV))

	require.Len(t, gw.documents, 1)
	doc := gw.documents[0]
	assert.Equal(t, "list_builders.csv", doc.Filename)
	assert.Equal(t, "ID,User Name,First Name,Last Name\n1,@a,Ann,\n2,@,Bo,X", string(doc.Data))
}

func TestGetListBuilders(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "1", Username: "a", FirstName: "Ann", LastName: "W"}))
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "3", Username: "robo", IsBot: true}))

	b.HandleUpdate(ctx, command("111", "private", CmdGetListBuilders))
	assert.Equal(t, "Builders:\n\n1/ @a: Ann W - ID: 1\n", gw.lastReply().Text)
}

func TestGetListChannels(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c1", Title: "General"}))
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c2", Title: "Random"}))

	b.HandleUpdate(ctx, command("111", "private", CmdGetListChannels))
	assert.Equal(t, "Channels:\n\n1/ General\n2/ Random\n", gw.lastReply().Text)
}

func TestGetInviteLinksReusesCache(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c1", Title: "General"}))
	require.NoError(t, store.SetChatInviteLink(ctx, "c1", "https://t.me/+cached"))
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c2", Title: "Random"}))
	gw.links["c2"] = "https://t.me/+fresh"

	b.HandleUpdate(ctx, command("111", "private", CmdGetInviteLinks))

	want := "Open the following links to join the channels:\n" +
		" 1/ General: https://t.me/+cached\n" +
		" 2/ Random: https://t.me/+fresh\n"
	assert.Equal(t, want, gw.lastReply().Text)

	// The exported link is cached for next time.
	chat, err := store.FindChatByTitle(ctx, "Random")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+fresh", chat.InviteLink)
}

func TestGetInviteLinksSkipsFailedChats(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c1", Title: "General"}))
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c2", Title: "Random"}))
	gw.linkErr["c1"] = fmt.Errorf("forbidden")
	gw.links["c2"] = "https://t.me/+ok"

	b.HandleUpdate(ctx, command("111", "private", CmdGetInviteLinks))

	want := "Open the following links to join the channels:\n" +
		" 1/ Random: https://t.me/+ok\n"
	assert.Equal(t, want, gw.lastReply().Text)
}

func TestGetChatMembersCount(t *testing.T) {
	b, store, gw := newTestBot(t, "111")
	ctx := context.Background()
	require.NoError(t, store.CreateChat(ctx, ledger.Chat{ID: "c1", Title: "General"}))
	gw.counts["c1"] = 42

	b.HandleUpdate(ctx, command("111", "private", CmdGetChatMembersCount))
	assert.Equal(t, promptMemberCount, gw.lastReply().Text)

	b.HandleUpdate(ctx, text("111", "private", "General"))
	assert.Equal(t, "The number of members in the chat is 42", gw.lastReply().Text)
}

func TestGetChatMembersCountUnknownChat(t *testing.T) {
	b, _, gw := newTestBot(t, "111")
	ctx := context.Background()

	b.HandleUpdate(ctx, command("111", "private", CmdGetChatMembersCount))
	b.HandleUpdate(ctx, text("111", "private", "Nowhere"))

	assert.Equal(t, msgChatNotFound, gw.lastReply().Text)
}

func TestHelpListsOnlyPermittedCommands(t *testing.T) {
	b, _, gw := newTestBot(t, "111")
	ctx := context.Background()

	b.HandleUpdate(ctx, command("500", "private", CmdHelp))
	builderHelp := gw.lastReply().Text
	assert.Contains(t, builderHelp, "/"+CmdIAmBuilder)
	assert.Contains(t, builderHelp, "/"+CmdHelp)
	assert.NotContains(t, builderHelp, "/"+CmdRemoveBuilder)
	assert.NotContains(t, builderHelp, "/"+CmdAddBotAdmin)

	b.HandleUpdate(ctx, command("111", "private", CmdHelp))
	assert.Contains(t, gw.lastReply().Text, "/"+CmdAddBotAdmin)
}

func TestMenuCommandsMatchTable(t *testing.T) {
	b, _, _ := newTestBot(t, "111")
	menu := b.MenuCommands()
	require.Len(t, menu, 11)
	assert.Equal(t, CmdIAmBuilder, menu[0].Command)
	for _, m := range menu {
		assert.NotEmpty(t, m.Description)
	}
}
