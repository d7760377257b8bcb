// Package search maintains a full-text index over conversation messages so
// users can find past exchanges by keyword. The index is derivative state;
// every write is best-effort and the document store stays authoritative.
package search

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"chatforge/internal/store"
)

// messageDoc is the indexed shape of one message. User and conversation ids
// are keyword fields (exact match only); content is analyzed text.
type messageDoc struct {
	User    string `json:"user"`
	Conv    string `json:"conv"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Hit is one search result: the message plus a highlighted fragment.
type Hit struct {
	ConversationID string  `json:"conversationId"`
	MessageID      string  `json:"messageId"`
	Fragment       string  `json:"fragment"`
	Score          float64 `json:"score"`
}

type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it on first run.
func Open(path string) (*Index, error) {
	var idx bleve.Index
	var err error
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		idx, err = bleve.New(path, buildMapping())
	} else {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()
	text := bleve.NewTextFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("user", keyword)
	doc.AddFieldMappingsAt("conv", keyword)
	doc.AddFieldMappingsAt("role", keyword)
	doc.AddFieldMappingsAt("content", text)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// IndexMessage indexes one message. Document ids are convID:msgID so a
// re-index of an edited message overwrites the prior version.
func (s *Index) IndexMessage(userID, convID string, msg store.Message) error {
	if msg.Content == "" {
		return nil
	}
	return s.idx.Index(convID+":"+msg.ID, messageDoc{
		User:    userID,
		Conv:    convID,
		Role:    msg.Role,
		Content: msg.Content,
	})
}

// IndexConversation indexes every message in the conversation.
func (s *Index) IndexConversation(userID string, conv *store.Conversation) error {
	batch := s.idx.NewBatch()
	for _, msg := range conv.Messages {
		if msg.Content == "" {
			continue
		}
		err := batch.Index(conv.ID+":"+msg.ID, messageDoc{
			User:    userID,
			Conv:    conv.ID,
			Role:    msg.Role,
			Content: msg.Content,
		})
		if err != nil {
			return err
		}
	}
	return s.idx.Batch(batch)
}

// RemoveConversation deletes all indexed messages for the conversation.
// Called when the conversation itself is deleted.
func (s *Index) RemoveConversation(convID string) error {
	q := bleve.NewTermQuery(convID)
	q.SetField("conv")
	req := bleve.NewSearchRequest(q)
	req.Size = 1000
	res, err := s.idx.Search(req)
	if err != nil {
		return err
	}
	batch := s.idx.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return s.idx.Batch(batch)
}

// Search finds the user's messages matching the query, best first.
func (s *Index) Search(userID, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	match := bleve.NewMatchQuery(query)
	match.SetField("content")
	owner := bleve.NewTermQuery(userID)
	owner.SetField("user")

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(match, owner))
	req.Size = limit
	req.Fields = []string{"conv"}
	req.Highlight = bleve.NewHighlight()
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []Hit
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		if conv, ok := h.Fields["conv"].(string); ok {
			hit.ConversationID = conv
			hit.MessageID = h.ID[len(conv)+1:]
		}
		if frags, ok := h.Fragments["content"]; ok && len(frags) > 0 {
			hit.Fragment = frags[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Index) Close() error { return s.idx.Close() }
