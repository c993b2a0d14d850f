package ledger

import (
	"context"
	"errors"
)

// Sentinel errors shared by store implementations.
var (
	// ErrNotFound is returned when a user or chat does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrDuplicate is returned when creating a record whose id already
	// exists. Callers that need idempotent creation swallow it.
	ErrDuplicate = errors.New("ledger: duplicate id")
)

// Store is the durable ledger of users, chats, and memberships.
type Store interface {
	// CreateUser inserts a user, returning ErrDuplicate when the id exists.
	CreateUser(ctx context.Context, u User) error
	// FindUser returns the user with the given id, or ErrNotFound.
	FindUser(ctx context.Context, id string) (User, error)
	// ListBuilders returns all non-bot users.
	ListBuilders(ctx context.Context) ([]User, error)
	// ListAdmins returns users holding an elevated role.
	ListAdmins(ctx context.Context) ([]User, error)
	// SetUserRole sets or clears (role "") the user's role. ErrNotFound
	// when the user does not exist.
	SetUserRole(ctx context.Context, id string, role Role) error
	// DisableUser marks the user disabled and clears its role.
	DisableUser(ctx context.Context, id string) error

	// CreateChat inserts a chat, returning ErrDuplicate when the id exists.
	CreateChat(ctx context.Context, c Chat) error
	// DeleteChat removes the chat row. Memberships referencing it are left
	// as-is.
	DeleteChat(ctx context.Context, id string) error
	// ListChats returns all chats in creation order.
	ListChats(ctx context.Context) ([]Chat, error)
	// FindChatByTitle returns the first chat with the exact title, or
	// ErrNotFound.
	FindChatByTitle(ctx context.Context, title string) (Chat, error)
	// SetChatInviteLink persists a cached invite link for the chat.
	SetChatInviteLink(ctx context.Context, id, link string) error

	// EnsureMembership records that the user belongs to the chat with the
	// given status, updating an existing row or inserting one.
	EnsureMembership(ctx context.Context, userID, chatID string, status MembershipStatus) error
	// UpdateMembershipStatus updates existing rows for (user, chat) only;
	// it is a no-op when none exist.
	UpdateMembershipStatus(ctx context.Context, userID, chatID string, status MembershipStatus) error
	// DeleteMemberships removes all rows for (user, chat).
	DeleteMemberships(ctx context.Context, userID, chatID string) error
	// ListMemberships returns all membership rows for the user.
	ListMemberships(ctx context.Context, userID string) ([]Membership, error)
}
