package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ninetyeight/builderbot/internal/db"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = "id, first_name, last_name, username, is_bot, role, status, created_at, updated_at"

func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, first_name, last_name, username, is_bot, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID,
		db.TextFromString(u.FirstName),
		db.TextFromString(u.LastName),
		db.TextFromString(u.Username),
		u.IsBot,
		db.TextFromString(string(u.Role)),
		db.TextFromString(string(u.Status)),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.ID, ErrDuplicate)
		}
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}

func (s *PostgresStore) FindUser(ctx context.Context, id string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("find user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) ListBuilders(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE is_bot = FALSE ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list builders: %w", err)
	}
	return collectUsers(rows)
}

func (s *PostgresStore) ListAdmins(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role IN ('hr', 'admin') ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return collectUsers(rows)
}

func (s *PostgresStore) SetUserRole(ctx context.Context, id string, role Role) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`,
		id, db.TextFromString(string(role)))
	if err != nil {
		return fmt.Errorf("set role for user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set role for user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DisableUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET status = $2, role = NULL, updated_at = now() WHERE id = $1`,
		id, string(UserDisabled))
	if err != nil {
		return fmt.Errorf("disable user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("disable user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateChat(ctx context.Context, c Chat) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chats (id, title, type, invite_link) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Title, c.Type, db.TextFromString(c.InviteLink))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("create chat %s: %w", c.ID, ErrDuplicate)
		}
		return fmt.Errorf("create chat %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteChat(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete chat %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) ListChats(ctx context.Context) ([]Chat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, type, invite_link, created_at, updated_at
		 FROM chats ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *PostgresStore) FindChatByTitle(ctx context.Context, title string) (Chat, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, type, invite_link, created_at, updated_at
		 FROM chats WHERE title = $1 ORDER BY created_at, id LIMIT 1`, title)
	c, err := scanChat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Chat{}, fmt.Errorf("find chat by title %q: %w", title, ErrNotFound)
	}
	if err != nil {
		return Chat{}, fmt.Errorf("find chat by title %q: %w", title, err)
	}
	return c, nil
}

func (s *PostgresStore) SetChatInviteLink(ctx context.Context, id, link string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chats SET invite_link = $2, updated_at = now() WHERE id = $1`,
		id, db.TextFromString(link))
	if err != nil {
		return fmt.Errorf("set invite link for chat %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set invite link for chat %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) EnsureMembership(ctx context.Context, userID, chatID string, status MembershipStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chat_members SET status = $3, updated_at = now()
		 WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID, string(status))
	if err != nil {
		return fmt.Errorf("ensure membership (%s, %s): %w", userID, chatID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO chat_members (user_id, chat_id, status) VALUES ($1, $2, $3)`,
		userID, chatID, string(status))
	if err != nil {
		return fmt.Errorf("ensure membership (%s, %s): %w", userID, chatID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateMembershipStatus(ctx context.Context, userID, chatID string, status MembershipStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE chat_members SET status = $3, updated_at = now()
		 WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID, string(status))
	if err != nil {
		return fmt.Errorf("update membership (%s, %s): %w", userID, chatID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteMemberships(ctx context.Context, userID, chatID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM chat_members WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID)
	if err != nil {
		return fmt.Errorf("delete memberships (%s, %s): %w", userID, chatID, err)
	}
	return nil
}

func (s *PostgresStore) ListMemberships(ctx context.Context, userID string) ([]Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, chat_id, status, created_at, updated_at
		 FROM chat_members WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships for user %s: %w", userID, err)
	}
	defer rows.Close()

	var items []Membership
	for rows.Next() {
		var m Membership
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&m.UserID, &m.ChatID, &m.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.CreatedAt = db.TimeFromPg(createdAt)
		m.UpdatedAt = db.TimeFromPg(updatedAt)
		items = append(items, m)
	}
	return items, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var firstName, lastName, username, role, status pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&u.ID, &firstName, &lastName, &username, &u.IsBot, &role, &status, &createdAt, &updatedAt); err != nil {
		return User{}, err
	}
	u.FirstName = db.TextToString(firstName)
	u.LastName = db.TextToString(lastName)
	u.Username = db.TextToString(username)
	u.Role = Role(db.TextToString(role))
	u.Status = UserStatus(db.TextToString(status))
	u.CreatedAt = db.TimeFromPg(createdAt)
	u.UpdatedAt = db.TimeFromPg(updatedAt)
	return u, nil
}

func scanChat(row pgx.Row) (Chat, error) {
	var c Chat
	var inviteLink pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.Title, &c.Type, &inviteLink, &createdAt, &updatedAt); err != nil {
		return Chat{}, err
	}
	c.InviteLink = db.TextToString(inviteLink)
	c.CreatedAt = db.TimeFromPg(createdAt)
	c.UpdatedAt = db.TimeFromPg(updatedAt)
	return c, nil
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
