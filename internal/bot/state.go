package bot

import "sync"

// Stage identifies which command is waiting for a follow-up message from an
// actor. Stage tags reuse the command keywords.
type Stage string

const (
	StageRemoveBuilder  Stage = CmdRemoveBuilder
	StageAddBotAdmin    Stage = CmdAddBotAdmin
	StageRemoveBotAdmin Stage = CmdRemoveBotAdmin
	StageMemberCount    Stage = CmdGetChatMembersCount
)

// conversationStore holds at most one pending stage per actor. Absent means
// idle. Setting a stage while one is pending overwrites it: last command
// wins.
type conversationStore struct {
	mu     sync.Mutex
	stages map[string]Stage
}

func newConversationStore() *conversationStore {
	return &conversationStore{stages: make(map[string]Stage)}
}

func (c *conversationStore) Set(actorID string, s Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[actorID] = s
}

func (c *conversationStore) Get(actorID string) (Stage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stages[actorID]
	return s, ok
}

func (c *conversationStore) Clear(actorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stages, actorID)
}
