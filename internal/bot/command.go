package bot

import (
	"context"

	"github.com/ninetyeight/builderbot/internal/ledger"
)

// Command keywords.
const (
	CmdHelp                = "help"
	CmdIAmBuilder          = "iambuilder"
	CmdGetInviteLinks      = "getinvitelinks"
	CmdGetListChannels     = "getlistchannels"
	CmdGetListBuilders     = "getlistbuilders"
	CmdGetListBuildersCSV  = "getlistbuilderscsv"
	CmdRemoveBuilder       = "removebuilder"
	CmdAddBotAdmin         = "addbotadmin"
	CmdGetBotAdmins        = "getbotadmins"
	CmdRemoveBotAdmin      = "removebotadmin"
	CmdGetChatMembersCount = "getchatmemberscount"
)

// Fixed user-facing messages.
const (
	msgPermissionDenied  = "Sorry, you do not have permission to access this command."
	msgGenericFailure    = "Sorry, an error occurred. Please try again later."
	msgStartWelcome      = "Welcome"
	msgHeyThere          = "Hey there"
	msgBuilderWelcome    = "Welcome to Ninety Eight, have a great time!"
	msgBuilderNotFound   = "Builder not found"
	msgUserNotFound      = "User not found"
	msgNoBotAdmins       = "There are no bot admins. Let's add some!"
	msgNoBotAdminFound   = "No bot admin found"
	msgCannotRemoveOwner = "You cannot remove the bot owner"
	msgChatNotFound      = "Chat not found"
	msgInvalidIDRole     = "Invalid user ID or role"
	msgInvalidID         = "Invalid user ID"

	promptRemoveBuilder  = "Please enter the ID of the builder you want to remove"
	promptAddBotAdmin    = "Please enter the ID and role (hr, admin) of the user you want to add as bot admin\n\nExample: 123456789 hr"
	promptRemoveBotAdmin = "Please enter the ID of the user you want to remove as bot admin"
	promptMemberCount    = "Please enter the group name"
)

type handlerFunc func(ctx context.Context, ev Update) error

// Command binds a keyword to its permitted roles and handler. The same
// table drives dispatch, /help output, and the transport command menu.
type Command struct {
	Keyword     string
	Description string
	Roles       []ledger.Role
	handler     handlerFunc
}

func (c Command) allows(role ledger.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	everyone   = []ledger.Role{ledger.RoleBuilder, ledger.RoleHR, ledger.RoleAdmin}
	hrAndAdmin = []ledger.Role{ledger.RoleHR, ledger.RoleAdmin}
	adminOnly  = []ledger.Role{ledger.RoleAdmin}
)

func (b *Bot) commandTable() []Command {
	return []Command{
		{CmdIAmBuilder, "Join all builder channels", everyone, b.cmdIAmBuilder},
		{CmdHelp, "Get list of commands", everyone, b.cmdHelp},
		{CmdGetInviteLinks, "Get invite links of all channels", adminOnly, b.cmdGetInviteLinks},
		{CmdGetListChannels, "Get list of all channels", adminOnly, b.cmdGetListChannels},
		{CmdGetListBuilders, "Get list of all builders", hrAndAdmin, b.cmdGetListBuilders},
		{CmdRemoveBuilder, "Remove builder from all channels and groups", hrAndAdmin, b.cmdRemoveBuilder},
		{CmdGetListBuildersCSV, "Get list of all builders in CSV format", hrAndAdmin, b.cmdGetListBuildersCSV},
		{CmdAddBotAdmin, "Add a bot admin", adminOnly, b.cmdAddBotAdmin},
		{CmdGetBotAdmins, "Get list of bot admins", adminOnly, b.cmdGetBotAdmins},
		{CmdRemoveBotAdmin, "Remove a bot admin", adminOnly, b.cmdRemoveBotAdmin},
		{CmdGetChatMembersCount, "Get the number of members in a chat", adminOnly, b.cmdGetChatMembersCount},
	}
}

// MenuCommands returns the command menu registered with the transport at
// startup.
func (b *Bot) MenuCommands() []MenuCommand {
	menu := make([]MenuCommand, 0, len(b.table))
	for _, cmd := range b.table {
		menu = append(menu, MenuCommand{Command: cmd.Keyword, Description: cmd.Description})
	}
	return menu
}
