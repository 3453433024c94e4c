package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	ID        string    `json:"id"` // UUID
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        string    `json:"id"` // UUID
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Mode      string    `json:"mode,omitempty"` // "rag" or "llm" for assistant messages
	Advisory  *string   `json:"advisory,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
