package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. It backs the core tests and keeps the
// same semantics as the Postgres store: duplicate creates fail with
// ErrDuplicate, membership rows are not deduplicated.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[string]*User
	userOrder   []string
	chats       map[string]*Chat
	chatOrder   []string
	memberships []*Membership
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
		chats: make(map[string]*Chat),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("create user %s: %w", u.ID, ErrDuplicate)
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = &u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("find user %s: %w", id, ErrNotFound)
	}
	return *u, nil
}

func (s *MemoryStore) ListBuilders(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []User
	for _, id := range s.userOrder {
		if u := s.users[id]; u != nil && !u.IsBot {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *MemoryStore) ListAdmins(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []User
	for _, id := range s.userOrder {
		if u := s.users[id]; u != nil && u.Role.Elevated() {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *MemoryStore) SetUserRole(_ context.Context, id string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("set role for user %s: %w", id, ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DisableUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("disable user %s: %w", id, ErrNotFound)
	}
	u.Status = UserDisabled
	u.Role = ""
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateChat(_ context.Context, c Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[c.ID]; ok {
		return fmt.Errorf("create chat %s: %w", c.ID, ErrDuplicate)
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.chats[c.ID] = &c
	s.chatOrder = append(s.chatOrder, c.ID)
	return nil
}

func (s *MemoryStore) DeleteChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return nil
	}
	delete(s.chats, id)
	for i, cid := range s.chatOrder {
		if cid == id {
			s.chatOrder = append(s.chatOrder[:i], s.chatOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) ListChats(_ context.Context) ([]Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chats []Chat
	for _, id := range s.chatOrder {
		if c := s.chats[id]; c != nil {
			chats = append(chats, *c)
		}
	}
	return chats, nil
}

func (s *MemoryStore) FindChatByTitle(_ context.Context, title string) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.chatOrder {
		if c := s.chats[id]; c != nil && c.Title == title {
			return *c, nil
		}
	}
	return Chat{}, fmt.Errorf("find chat by title %q: %w", title, ErrNotFound)
}

func (s *MemoryStore) SetChatInviteLink(_ context.Context, id, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return fmt.Errorf("set invite link for chat %s: %w", id, ErrNotFound)
	}
	c.InviteLink = link
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) EnsureMembership(_ context.Context, userID, chatID string, status MembershipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := false
	for _, m := range s.memberships {
		if m.UserID == userID && m.ChatID == chatID {
			m.Status = status
			m.UpdatedAt = time.Now()
			updated = true
		}
	}
	if !updated {
		now := time.Now()
		s.memberships = append(s.memberships, &Membership{
			UserID:    userID,
			ChatID:    chatID,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return nil
}

func (s *MemoryStore) UpdateMembershipStatus(_ context.Context, userID, chatID string, status MembershipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.UserID == userID && m.ChatID == chatID {
			m.Status = status
			m.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (s *MemoryStore) DeleteMemberships(_ context.Context, userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.memberships[:0]
	for _, m := range s.memberships {
		if m.UserID == userID && m.ChatID == chatID {
			continue
		}
		kept = append(kept, m)
	}
	s.memberships = kept
	return nil
}

func (s *MemoryStore) ListMemberships(_ context.Context, userID string) ([]Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			items = append(items, *m)
		}
	}
	return items, nil
}
