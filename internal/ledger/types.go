// Package ledger defines the durable record of users, chats, and memberships
// and the store interface the bot mutates through.
package ledger

import "time"

// Role is an elevated role stored on a user. The zero value means the user
// is a plain builder.
type Role string

const (
	RoleBuilder Role = "builder"
	RoleHR      Role = "hr"
	RoleAdmin   Role = "admin"
)

// Elevated reports whether the role grants bot-admin rights.
func (r Role) Elevated() bool {
	return r == RoleHR || r == RoleAdmin
}

// ParseRole validates a role keyword entered by an operator. Only elevated
// roles can be assigned.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleHR, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// UserStatus marks whether a user is active in the community.
type UserStatus string

const (
	UserEnabled  UserStatus = "enabled"
	UserDisabled UserStatus = "disabled"
)

// MembershipStatus reflects the latest known membership event for a
// (user, chat) pair.
type MembershipStatus string

const (
	MemberJoined  MembershipStatus = "joined"
	MemberRemoved MembershipStatus = "removed"
)

// User is a community member keyed by its platform-assigned id.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
	Role      Role
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chat is a channel or group the bot has been added to.
type Chat struct {
	ID         string
	Title      string
	Type       string
	InviteLink string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Membership links a user to a chat. Composite identity is (UserID, ChatID);
// multiple historical rows are tolerated.
type Membership struct {
	UserID    string
	ChatID    string
	Status    MembershipStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
