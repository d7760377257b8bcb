package search

import (
	"path/filepath"
	"testing"
	"time"

	"chatforge/internal/store"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "search.bleve"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func msg(id, role, content string) store.Message {
	return store.Message{ID: id, Role: role, Content: content, Timestamp: time.Now()}
}

func TestSearch_FindsOwnMessages(t *testing.T) {
	idx := openTestIndex(t)

	if err := idx.IndexMessage("u1", "c1", msg("m1", store.RoleUser, "how do goroutines work")); err != nil {
		t.Fatalf("IndexMessage: %v", err)
	}
	if err := idx.IndexMessage("u1", "c1", msg("m2", store.RoleAssistant, "a goroutine is a lightweight thread")); err != nil {
		t.Fatalf("IndexMessage: %v", err)
	}

	hits, err := idx.Search("u1", "goroutine", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].ConversationID != "c1" {
		t.Errorf("conversationId = %q, want c1", hits[0].ConversationID)
	}
}

func TestSearch_ScopedToUser(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexMessage("u1", "c1", msg("m1", store.RoleUser, "secret project details"))
	idx.IndexMessage("u2", "c2", msg("m2", store.RoleUser, "secret recipe details"))

	hits, err := idx.Search("u1", "secret", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ConversationID != "c1" {
			t.Errorf("hit leaked from another user's conversation: %+v", h)
		}
	}
}

func TestSearch_MessageIDRecovered(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexMessage("u1", "c1", msg("m42", store.RoleUser, "remember the milk"))

	hits, err := idx.Search("u1", "milk", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].MessageID != "m42" {
		t.Fatalf("hits = %+v, want messageId m42", hits)
	}
}

func TestIndexConversation_AllMessagesSearchable(t *testing.T) {
	idx := openTestIndex(t)

	conv := &store.Conversation{
		ID: "c1",
		Messages: []store.Message{
			msg("m1", store.RoleUser, "tell me about kubernetes"),
			msg("m2", store.RoleAssistant, "kubernetes orchestrates containers"),
			msg("m3", store.RoleUser, ""),
		},
	}
	if err := idx.IndexConversation("u1", conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	hits, err := idx.Search("u1", "kubernetes", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("hits = %d, want 2", len(hits))
	}
}

func TestRemoveConversation(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexMessage("u1", "c1", msg("m1", store.RoleUser, "ephemeral topic"))
	idx.IndexMessage("u1", "c2", msg("m2", store.RoleUser, "ephemeral topic elsewhere"))

	if err := idx.RemoveConversation("c1"); err != nil {
		t.Fatalf("RemoveConversation: %v", err)
	}

	hits, err := idx.Search("u1", "ephemeral", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ConversationID != "c2" {
		t.Errorf("hits = %+v, want only c2", hits)
	}
}

func TestSearch_ReindexedEditOverwrites(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexMessage("u1", "c1", msg("m1", store.RoleUser, "original wording"))
	idx.IndexMessage("u1", "c1", msg("m1", store.RoleUser, "revised wording"))

	hits, err := idx.Search("u1", "wording", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("edited message must replace the prior version, got %d hits", len(hits))
	}
}
