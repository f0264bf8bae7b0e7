package model

import "time"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Toggled returns the opposite status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskStatusCompleted {
		return TaskStatusPending
	}
	return TaskStatusCompleted
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Message is one discussion entry under a task. Replies nest to arbitrary
// depth; reply order is insertion order and is never re-sorted.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp string    `json:"timestamp"` // ISO-8601, client-set at compose time
	ParentID  *string   `json:"parentId"`
	Replies   []Message `json:"replies"`
}

type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         TaskStatus `json:"status"`
	Messages       []Message  `json:"messages"`
	CreatedAt      time.Time  `json:"created_at"`
	MentionedUsers []string   `json:"mentioned_users,omitempty"`
}

type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Note struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Members     []Member  `json:"members"`
	Notes       []Note    `json:"notes"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DirectMessage is a one-to-one message outside any task discussion.
type DirectMessage struct {
	ID         string    `json:"_id,omitempty"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation identifies the other party of a DM exchange.
type Conversation struct {
	UserID string `json:"_id"`
	Name   string `json:"name"`
}

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one exchange in an assistant conversation.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Message string   `json:"message"`
}
