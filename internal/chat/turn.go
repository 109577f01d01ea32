// Package chat implements the per-visitor conversation state and its turn quota.
package chat

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a visitor message.
	RoleUser Role = "user"
	// RoleAssistant marks a model reply.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the conversation roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is a single message in the visible conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn builds a visitor turn.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn builds a reply turn.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// State is the persisted shape of a session.
type State struct {
	Turns         []Turn `json:"messages"`
	UserTurnCount int    `json:"messageCount"`
	Expired       bool   `json:"isExpired"`
}

// DefaultMaxUserTurns is the number of visitor messages allowed per session.
const DefaultMaxUserTurns = 10

// DefaultKey is the storage key a session persists under.
const DefaultKey = "portfolio_chat_session"

// Limits bounds a session.
type Limits struct {
	MaxUserTurns int
}

// DefaultLimits returns the product defaults.
func DefaultLimits() Limits {
	return Limits{MaxUserTurns: DefaultMaxUserTurns}
}

func (l Limits) normalize() Limits {
	if l.MaxUserTurns <= 0 {
		l.MaxUserTurns = DefaultMaxUserTurns
	}
	return l
}
