package store

import (
	"strings"
	"testing"
	"time"
)

func msg(id, role, content string) Message {
	return Message{ID: id, Role: role, Content: content, Timestamp: time.Now()}
}

// ========== DeriveTitle ==========

func TestDeriveTitle_Short(t *testing.T) {
	if got := DeriveTitle("Hello"); got != "Hello" {
		t.Errorf("title = %q, want 'Hello'", got)
	}
}

func TestDeriveTitle_Truncated(t *testing.T) {
	long := strings.Repeat("a", 50)
	got := DeriveTitle(long)
	if got != strings.Repeat("a", 30)+"..." {
		t.Errorf("title = %q, want 30 chars + ellipsis", got)
	}
}

func TestDeriveTitle_ExactLimit(t *testing.T) {
	exact := strings.Repeat("b", 30)
	if got := DeriveTitle(exact); got != exact {
		t.Errorf("title = %q, want unmodified %q", got, exact)
	}
}

// ========== Append ==========

func TestAppend_FirstUserMessageSetsTitle(t *testing.T) {
	conv := &Conversation{Title: "New Chat"}
	conv.Append(msg("m1", RoleUser, "What is the capital of France?"))

	if len(conv.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conv.Messages))
	}
	if conv.Title != "What is the capital of France?" {
		t.Errorf("title = %q, want derived from first user message", conv.Title)
	}
}

func TestAppend_AssistantMessageKeepsTitle(t *testing.T) {
	conv := &Conversation{Title: "New Chat"}
	conv.Append(msg("m1", RoleAssistant, "Hello, how can I help?"))

	if conv.Title != "New Chat" {
		t.Errorf("title = %q, assistant message must not retitle", conv.Title)
	}
}

func TestAppend_SecondUserMessageKeepsTitle(t *testing.T) {
	conv := &Conversation{Title: "New Chat"}
	conv.Append(msg("m1", RoleUser, "first"))
	conv.Append(msg("m2", RoleAssistant, "reply"))
	conv.Append(msg("m3", RoleUser, "second"))

	if conv.Title != "first" {
		t.Errorf("title = %q, want 'first'", conv.Title)
	}
}

func TestAppend_BumpsUpdatedAt(t *testing.T) {
	conv := &Conversation{}
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	conv.Append(Message{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: ts})

	if !conv.UpdatedAt.Equal(ts) {
		t.Errorf("updatedAt = %v, want %v", conv.UpdatedAt, ts)
	}
}

// ========== ApplyEdit ==========

func TestApplyEdit_TruncatesAfterEditPoint(t *testing.T) {
	conv := &Conversation{Messages: []Message{
		msg("m1", RoleUser, "one"),
		msg("m2", RoleAssistant, "two"),
		msg("m3", RoleUser, "three"),
	}}

	if err := conv.ApplyEdit("m2", "X", time.Now()); err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}

	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages after edit, got %d", len(conv.Messages))
	}
	last := conv.Messages[1]
	if last.ID != "m2" || last.Content != "X" {
		t.Errorf("last message = %+v, want m2 with content X", last)
	}
	if !last.Edited {
		t.Error("expected edited=true")
	}
}

func TestApplyEdit_RecordsEditHistory(t *testing.T) {
	conv := &Conversation{Messages: []Message{msg("m1", RoleUser, "original")}}

	if err := conv.ApplyEdit("m1", "revised", time.Now()); err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}
	hist := conv.Messages[0].EditHistory
	if len(hist) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist))
	}
	if hist[0].Content != "original" {
		t.Errorf("history content = %q, want 'original'", hist[0].Content)
	}

	// Second edit appends, never overwrites.
	if err := conv.ApplyEdit("m1", "revised again", time.Now()); err != nil {
		t.Fatalf("second ApplyEdit failed: %v", err)
	}
	hist = conv.Messages[0].EditHistory
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[1].Content != "revised" {
		t.Errorf("history[1] = %q, want 'revised'", hist[1].Content)
	}
}

func TestApplyEdit_UnknownMessage(t *testing.T) {
	conv := &Conversation{Messages: []Message{msg("m1", RoleUser, "one")}}
	if err := conv.ApplyEdit("nope", "X", time.Now()); err == nil {
		t.Error("expected error for unknown message id")
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Content != "one" {
		t.Error("failed edit must not mutate the conversation")
	}
}

func TestApplyEdit_LastMessage(t *testing.T) {
	conv := &Conversation{Messages: []Message{
		msg("m1", RoleUser, "one"),
		msg("m2", RoleAssistant, "two"),
	}}
	if err := conv.ApplyEdit("m2", "rewritten", time.Now()); err != nil {
		t.Fatalf("ApplyEdit failed: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Errorf("editing the last message must not drop anything, got %d messages", len(conv.Messages))
	}
}
