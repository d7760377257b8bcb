package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

func dialTestConn(t *testing.T) *Connection {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return NewConnection("u1", ws)
}

func TestSend_AfterCloseReturnsError(t *testing.T) {
	conn := dialTestConn(t)
	conn.Start()
	conn.Close(websocket.CloseNormalClosure, "done")

	if err := conn.Send([]byte("late")); err == nil {
		t.Error("Send after Close must return an error")
	}
}

func TestSend_ConcurrentWithCloseDoesNotPanic(t *testing.T) {
	conn := dialTestConn(t)
	conn.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = conn.Send([]byte("payload"))
			}
		}()
	}
	conn.Close(websocket.CloseNormalClosure, "racing close")
	wg.Wait()
}

func TestClose_Idempotent(t *testing.T) {
	conn := dialTestConn(t)
	conn.Start()
	conn.Close(websocket.CloseNormalClosure, "first")
	conn.Close(websocket.CloseNormalClosure, "second")
}
