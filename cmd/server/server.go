package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chatforge/internal/auth"
	"chatforge/internal/cache"
	"chatforge/internal/gateway"
	"chatforge/internal/ingest"
	"chatforge/internal/search"
	"chatforge/internal/store"
)

// ConversationStore is the persistence surface the handlers depend on.
// Implemented by *store.Conversations; tests substitute a fake.
type ConversationStore interface {
	List(ctx context.Context, userID string) ([]store.Conversation, error)
	Create(ctx context.Context, userID, title, model string, messages []store.Message) (*store.Conversation, error)
	Get(ctx context.Context, userID, id string) (*store.Conversation, error)
	Rename(ctx context.Context, userID, id, title string) (*store.Conversation, error)
	Delete(ctx context.Context, userID, id string) error
	AppendMessage(ctx context.Context, userID, id string, msg store.Message) (*store.Conversation, error)
	EditMessage(ctx context.Context, userID, id, messageID, newContent string) (*store.Conversation, error)
}

// FileProcessor runs the upload ingestion pipeline.
type FileProcessor interface {
	Process(ctx context.Context, userID string, req ingest.Request) (*ingest.Result, error)
}

// Completer produces a streamed completion. It never fails; the gateway
// degrades to a placeholder stream when no provider is available.
type Completer interface {
	Complete(ctx context.Context, messages []gateway.Message, modelID string) gateway.TokenStream
}

// Searcher is the message search index. Index writes are best-effort.
type Searcher interface {
	IndexConversation(userID string, conv *store.Conversation) error
	IndexMessage(userID, convID string, msg store.Message) error
	RemoveConversation(convID string) error
	Search(userID, query string, limit int) ([]search.Hit, error)
}

// Server holds all shared state.
type Server struct {
	conversations ConversationStore
	files         FileProcessor
	gateway       Completer
	searcher      Searcher // nil when the index failed to open
	cache         cache.Cache
	jwtSecret     string

	// dbState reports the document-store circuit for the health endpoint.
	dbState func() string
}

func newServer(conversations ConversationStore, files FileProcessor, gw Completer, searcher Searcher, c cache.Cache, jwtSecret string) *Server {
	if c == nil {
		c = cache.NewMemory()
	}
	return &Server{
		conversations: conversations,
		files:         files,
		gateway:       gw,
		searcher:      searcher,
		cache:         c,
		jwtSecret:     jwtSecret,
		dbState:       func() string { return "unknown" },
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	r.GET("/api/health", s.handleHealth)
	// The websocket endpoint authenticates inside the handler; browsers
	// cannot set headers on a socket upgrade.
	r.GET("/api/chat/ws", s.handleChatSocket)

	api := r.Group("/api", auth.Middleware(s.jwtSecret))
	{
		api.GET("/conversations", s.handleListConversations)
		api.POST("/conversations", s.handleCreateConversation)
		api.GET("/conversations/:id", s.handleGetConversation)
		api.PUT("/conversations/:id", s.handleRenameConversation)
		api.DELETE("/conversations/:id", s.handleDeleteConversation)
		api.POST("/conversations/:id/messages", s.handleAppendMessage)
		api.PUT("/conversations/:id/messages", s.handleEditMessage)

		api.POST("/chat", s.handleChat)
		api.POST("/files/process", s.handleProcessFile)
		api.GET("/search", s.handleSearch)
	}
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "App is running successfully",
		"database":  s.dbState(),
	})
}
