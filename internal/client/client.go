// Package client is the chat-side state manager. It keeps an in-memory
// conversation list that responds to user actions immediately, then
// reconciles with the server in the background: optimistic mutations are
// applied synchronously before any network call starts, so the local view
// always reflects the most recent user action regardless of network latency.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatforge/internal/store"
)

// ErrNoConversation is returned by manager operations that target a
// conversation which does not exist locally.
var ErrNoConversation = errors.New("no such conversation")

// SyncState is the per-conversation synchronization lifecycle.
// The back-edge syncing -> local-only happens on create failure; the
// conversation is retained and stays usable, never discarded.
type SyncState int

const (
	SyncSyncing SyncState = iota
	SyncSynced
	SyncLocalOnly
)

const defaultModel = "llama3-8b"

// API is the remote conversation store as seen by the manager. The HTTP
// implementation lives in httpapi.go; tests substitute a fake.
type API interface {
	List(ctx context.Context) ([]store.Conversation, error)
	Create(ctx context.Context, title, model string) (*store.Conversation, error)
	AppendMessage(ctx context.Context, convID string, msg store.Message) (*store.Conversation, error)
	EditMessage(ctx context.Context, convID, messageID, newContent string) (*store.Conversation, error)
	Delete(ctx context.Context, convID string) error
	Rename(ctx context.Context, convID, title string) (*store.Conversation, error)
}

// Conversation is the client-side mirror of a conversation. Local marks a
// record that only exists here; PendingSync marks appended messages whose
// persistence has not been confirmed yet.
type Conversation struct {
	ID          string
	Title       string
	Model       string
	Messages    []store.Message
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Local       bool
	PendingSync bool

	state SyncState
	ready chan struct{} // closed once the create request settles
}

// State reports the conversation's sync lifecycle stage.
func (c *Conversation) State() SyncState { return c.state }

// WaitSync blocks until the conversation's create request has settled
// (either with a server id or as local-only) or ctx expires. Conversations
// that never had an in-flight create settle immediately.
func (c *Conversation) WaitSync(ctx context.Context) error {
	if c.ready == nil {
		return nil
	}
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Manager holds the conversation list and the current-conversation pointer.
// All optimistic mutations happen under one mutex, which serializes
// operations per conversation.
type Manager struct {
	mu            sync.Mutex
	api           API
	conversations []*Conversation
	current       *Conversation
}

func New(api API) *Manager {
	return &Manager{api: api}
}

// Load replaces the local list with the server's. Called once at startup;
// local-only conversations do not exist yet at that point.
func (m *Manager) Load(ctx context.Context) error {
	convs, err := m.api.List(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = nil
	for i := range convs {
		m.conversations = append(m.conversations, fromRecord(&convs[i]))
	}
	if len(m.conversations) > 0 {
		m.current = m.conversations[0]
	} else {
		m.current = nil
	}
	return nil
}

// Conversations returns the list head-first (most recent first).
func (m *Manager) Conversations() []*Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Conversation, len(m.conversations))
	copy(out, m.conversations)
	return out
}

// Current returns the current conversation, or nil.
func (m *Manager) Current() *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Select makes the conversation with the given id current.
func (m *Manager) Select(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.ID == id {
			m.current = c
			return true
		}
	}
	return false
}

// CreateConversation inserts a new conversation at the head of the list and
// makes it current, synchronously and immediately visible. The create
// request runs in the background; on success the temporary id is replaced
// in place by the server's, on failure the conversation is kept local-only.
// The returned conversation's WaitSync reports when the request settled.
func (m *Manager) CreateConversation(model string) *Conversation {
	if model == "" {
		model = defaultModel
	}
	now := time.Now()
	conv := &Conversation{
		ID:        "local-" + uuid.NewString(),
		Title:     "New Chat",
		Model:     model,
		Messages:  []store.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		state:     SyncSyncing,
		ready:     make(chan struct{}),
	}

	m.mu.Lock()
	m.conversations = append([]*Conversation{conv}, m.conversations...)
	m.current = conv
	m.mu.Unlock()

	go m.syncCreate(conv)
	return conv
}

func (m *Manager) syncCreate(conv *Conversation) {
	defer close(conv.ready)

	created, err := m.api.Create(context.Background(), conv.Title, conv.Model)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		// Keep the conversation; it stays usable offline.
		conv.Local = true
		conv.state = SyncLocalOnly
		return
	}
	conv.ID = created.ID
	conv.CreatedAt = created.CreatedAt
	conv.state = SyncSynced
}

// AddMessage appends a message to the current conversation, creating one
// first if none exists. The optimistic append is immediate; persistence is
// best-effort. A failed persist keeps the message and marks the
// conversation PendingSync; outbound content is never silently lost.
func (m *Manager) AddMessage(ctx context.Context, content, role string, attachments []store.Attachment) (*store.Message, error) {
	m.mu.Lock()
	conv := m.current
	m.mu.Unlock()

	if conv == nil {
		conv = m.CreateConversation(defaultModel)
	}
	// A dependent append must not race the create: wait for the create to
	// settle (and the id to be assigned) rather than on a timer. If the
	// caller gives up waiting, the message still lands locally.
	waitErr := conv.WaitSync(ctx)

	m.mu.Lock()
	msg := store.Message{
		ID:          uuid.NewString(),
		Role:        role,
		Content:     content,
		Timestamp:   time.Now(),
		Attachments: attachments,
	}
	conv.append(msg)
	offline := conv.state == SyncLocalOnly || waitErr != nil
	if waitErr != nil {
		conv.PendingSync = true
	}
	m.mu.Unlock()

	if offline {
		return &msg, nil
	}

	updated, err := m.api.AppendMessage(ctx, conv.ID, msg)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		conv.PendingSync = true
		return &msg, nil
	}
	// Cardinality guard: a slow response must not clobber newer optimistic
	// state, so the server's canonical list only wins when it is at least
	// as long as ours.
	if len(updated.Messages) >= len(conv.Messages) {
		conv.Messages = updated.Messages
		conv.Title = updated.Title
		conv.UpdatedAt = updated.UpdatedAt
		conv.PendingSync = false
	}
	return &msg, nil
}

// EditMessage optimistically rewrites a message and truncates everything
// after it. Unlike AddMessage, a failed persist reverts the edit in full:
// the prior state is still valid, so rolling back is safe.
func (m *Manager) EditMessage(ctx context.Context, messageID, newContent string) error {
	m.mu.Lock()
	conv := m.current
	if conv == nil {
		m.mu.Unlock()
		return ErrNoConversation
	}

	snapshot := snapshotMessages(conv.Messages)
	prevUpdated := conv.UpdatedAt

	sc := store.Conversation{Messages: conv.Messages}
	if err := sc.ApplyEdit(messageID, newContent, time.Now()); err != nil {
		m.mu.Unlock()
		return err
	}
	conv.Messages = sc.Messages
	conv.UpdatedAt = sc.UpdatedAt
	offline := conv.state == SyncLocalOnly
	m.mu.Unlock()

	if offline {
		return nil
	}

	updated, err := m.api.EditMessage(ctx, conv.ID, messageID, newContent)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		conv.Messages = snapshot
		conv.UpdatedAt = prevUpdated
		return err
	}
	if len(updated.Messages) >= len(conv.Messages) {
		conv.Messages = updated.Messages
		conv.UpdatedAt = updated.UpdatedAt
	}
	return nil
}

// DeleteConversation optimistically removes the conversation; if it was
// current, the head of the remaining list becomes current. A failed remote
// delete restores the prior list and current pointer.
func (m *Manager) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	idx := -1
	for i, c := range m.conversations {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return ErrNoConversation
	}

	prevList := make([]*Conversation, len(m.conversations))
	copy(prevList, m.conversations)
	prevCurrent := m.current

	conv := m.conversations[idx]
	m.conversations = append(m.conversations[:idx:idx], m.conversations[idx+1:]...)
	if m.current == conv {
		if len(m.conversations) > 0 {
			m.current = m.conversations[0]
		} else {
			m.current = nil
		}
	}
	offline := conv.Local
	m.mu.Unlock()

	if offline {
		return nil
	}

	if err := m.api.Delete(ctx, id); err != nil {
		m.mu.Lock()
		m.conversations = prevList
		m.current = prevCurrent
		m.mu.Unlock()
		return err
	}
	return nil
}

// RenameConversation optimistically renames with the same revert-on-failure
// discipline as delete.
func (m *Manager) RenameConversation(ctx context.Context, id, title string) error {
	m.mu.Lock()
	var conv *Conversation
	for _, c := range m.conversations {
		if c.ID == id {
			conv = c
			break
		}
	}
	if conv == nil {
		m.mu.Unlock()
		return ErrNoConversation
	}

	prevTitle := conv.Title
	conv.Title = title
	offline := conv.Local
	m.mu.Unlock()

	if offline {
		return nil
	}

	updated, err := m.api.Rename(ctx, id, title)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		conv.Title = prevTitle
		return err
	}
	conv.Title = updated.Title
	return nil
}

// append adds msg and re-derives the title for the first user message.
// Caller holds the manager mutex.
func (c *Conversation) append(msg store.Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp

	if msg.Role == store.RoleUser {
		users := 0
		for _, m := range c.Messages {
			if m.Role == store.RoleUser {
				users++
			}
		}
		if users == 1 {
			c.Title = store.DeriveTitle(msg.Content)
		}
	}
}

func fromRecord(rec *store.Conversation) *Conversation {
	return &Conversation{
		ID:        rec.ID,
		Title:     rec.Title,
		Model:     rec.Model,
		Messages:  rec.Messages,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		state:     SyncSynced,
	}
}

func snapshotMessages(msgs []store.Message) []store.Message {
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if len(out[i].EditHistory) > 0 {
			hist := make([]store.Edit, len(out[i].EditHistory))
			copy(hist, out[i].EditHistory)
			out[i].EditHistory = hist
		}
	}
	return out
}
