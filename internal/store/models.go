package store

import (
	"fmt"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// File processing statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Attachment is a denormalized snapshot of a File record taken at attach time,
// embedded in the message so history stays stable if the File changes later.
type Attachment struct {
	FileName      string `bson:"fileName" json:"fileName"`
	FileURL       string `bson:"fileUrl" json:"fileUrl"`
	FileType      string `bson:"fileType" json:"fileType"`
	ExtractedText string `bson:"extractedText,omitempty" json:"extractedText,omitempty"`
}

// Edit is one prior revision of an edited message.
type Edit struct {
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Message is a single entry in a conversation. Insertion order is significant.
type Message struct {
	ID          string       `bson:"id" json:"id"`
	Role        string       `bson:"role" json:"role"`
	Content     string       `bson:"content" json:"content"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
	Edited      bool         `bson:"edited" json:"edited"`
	EditHistory []Edit       `bson:"editHistory,omitempty" json:"editHistory,omitempty"`
	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
}

// Conversation is a titled, ordered message thread owned by one user.
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId" json:"-"`
	Title     string    `bson:"title" json:"title"`
	Model     string    `bson:"model" json:"model"`
	Messages  []Message `bson:"messages" json:"messages"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Local marks a conversation that exists only client-side (the backing
	// store was unreachable when it was created). Never persisted.
	Local bool `bson:"-" json:"local,omitempty"`
}

// File is an uploaded-file record with an independent lifecycle from any
// conversation it may be attached to.
type File struct {
	ID               string                 `bson:"_id" json:"id"`
	UserID           string                 `bson:"userId" json:"-"`
	FileName         string                 `bson:"fileName" json:"fileName"`
	OriginalName     string                 `bson:"originalName" json:"originalName"`
	FileType         string                 `bson:"fileType" json:"fileType"`
	FileSize         int64                  `bson:"fileSize" json:"fileSize"`
	SourceURL        string                 `bson:"sourceUrl" json:"sourceUrl"`
	CDNURL           string                 `bson:"cdnUrl,omitempty" json:"cdnUrl,omitempty"`
	ExtractedText    string                 `bson:"extractedText,omitempty" json:"extractedText,omitempty"`
	Summary          string                 `bson:"summary,omitempty" json:"summary,omitempty"`
	ProcessingStatus string                 `bson:"processingStatus" json:"processingStatus"`
	ErrorMessage     string                 `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	Metadata         map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt        time.Time              `bson:"createdAt" json:"createdAt"`
}

const titleLimit = 30

// DeriveTitle builds a conversation title from the first user message:
// the first 30 characters plus an ellipsis when truncated.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return content
}

// Append adds msg to the conversation, bumps UpdatedAt, and re-derives the
// title when this is the first user message.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp

	if msg.Role == RoleUser && c.countUserMessages() == 1 {
		c.Title = DeriveTitle(msg.Content)
	}
}

func (c *Conversation) countUserMessages() int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// ApplyEdit rewrites the message with the given id, pushing the previous
// content onto its edit history, and truncates the conversation so the edited
// message is the last one. Everything after the edit point is discarded so
// the thread can be regenerated from there.
func (c *Conversation) ApplyEdit(messageID, newContent string, now time.Time) error {
	idx := -1
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("message not found: %s", messageID)
	}

	m := &c.Messages[idx]
	m.EditHistory = append(m.EditHistory, Edit{Content: m.Content, Timestamp: m.Timestamp})
	m.Content = newContent
	m.Edited = true
	m.Timestamp = now

	c.Messages = c.Messages[:idx+1]
	c.UpdatedAt = now
	return nil
}
