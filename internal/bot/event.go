// Package bot implements the command dispatch engine: role-based access
// control, the per-actor conversation state machine, and the membership
// reconciliation that keeps the ledger consistent with transport events.
package bot

import "github.com/ninetyeight/builderbot/internal/ledger"

// Person identifies a chat user as seen by the transport.
type Person struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// ChatInfo identifies a chat as seen by the transport.
type ChatInfo struct {
	ID    string
	Title string
	Type  string
}

// Bot membership statuses reported by the transport.
const (
	SelfStatusMember = "member"
	SelfStatusLeft   = "left"
	SelfStatusKicked = "kicked"
)

// SelfChange describes a change of the bot's own membership in a chat.
type SelfChange struct {
	Chat   ChatInfo
	Status string
}

// Update is a normalized transport event delivered to the dispatcher.
// Exactly one of Self, Joined, Left, or the Command/Text pair is relevant.
type Update struct {
	EventID string
	Actor   Person
	ChatID  string
	Command string
	Text    string
	Joined  []Person
	Left    *Person
	Self    *SelfChange

	// Role is the actor's resolved role, filled by the dispatcher before a
	// gated handler runs.
	Role ledger.Role
}
