package bot

import "context"

// MenuCommand is an entry of the transport's command menu.
type MenuCommand struct {
	Command     string
	Description string
}

// Gateway is the chat transport the bot sends through. Implementations are
// best-effort single-shot: no retries, and every call carries its own
// timeout.
type Gateway interface {
	Reply(ctx context.Context, chatID, text string) error
	ReplyDocument(ctx context.Context, chatID, filename string, data []byte) error
	ExportInviteLink(ctx context.Context, chatID string) (string, error)
	BanMember(ctx context.Context, chatID, userID string) error
	MemberCount(ctx context.Context, chatID string) (int, error)
	SetCommandMenu(ctx context.Context, commands []MenuCommand) error
}
