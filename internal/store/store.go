package store

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrOffline is returned by every repository call once the backing store has
// been determined unreachable. Callers degrade to local/offline responses
// instead of failing the request.
var ErrOffline = errors.New("store: offline")

// ErrNotFound is returned when a record does not exist or is owned by a
// different user.
var ErrNotFound = errors.New("store: not found")

// ConnState is the lifecycle of the shared Mongo connection.
type ConnState int

const (
	StateUnattempted ConnState = iota
	StateConnected
	StateFailed
)

const connectTimeout = 5 * time.Second

// Manager owns the process-wide Mongo connection. The first call to Database
// attempts to connect; the outcome is memoized so a sustained outage does not
// pay the connection timeout on every request.
type Manager struct {
	mu     sync.Mutex
	uri    string
	dbName string
	client *mongo.Client
	state  ConnState
}

func NewManager(uri, dbName string) *Manager {
	if dbName == "" {
		dbName = "chatforge"
	}
	return &Manager{uri: uri, dbName: dbName}
}

// Database returns the application database, connecting on first use.
// Once a connection attempt fails the manager short-circuits to ErrOffline.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnected:
		return m.client.Database(m.dbName), nil
	case StateFailed:
		return nil, ErrOffline
	}

	if m.uri == "" {
		log.Printf("MONGODB_URI not set, running offline")
		m.state = StateFailed
		return nil, ErrOffline
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(m.uri).
		SetMaxPoolSize(10).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(cctx, opts)
	if err == nil {
		err = client.Ping(cctx, nil)
	}
	if err != nil {
		log.Printf("MongoDB connection failed, degrading to offline: %v", err)
		m.state = StateFailed
		return nil, ErrOffline
	}

	log.Printf("MongoDB connected")
	m.client = client
	m.state = StateConnected
	return m.client.Database(m.dbName), nil
}

// State reports the current connection lifecycle stage.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close disconnects the underlying client if one was established.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
