package bot

import (
	"context"

	"github.com/ninetyeight/builderbot/internal/ledger"
)

// resolveRole resolves an actor's role: the configured owner is always an
// admin; otherwise the stored role applies when elevated; everyone else is
// a builder. A missing user record resolves to builder without creating a
// row.
func (b *Bot) resolveRole(ctx context.Context, actorID string) ledger.Role {
	if actorID == b.ownerID {
		return ledger.RoleAdmin
	}
	u, err := b.store.FindUser(ctx, actorID)
	if err == nil && u.Role.Elevated() {
		return u.Role
	}
	return ledger.RoleBuilder
}
