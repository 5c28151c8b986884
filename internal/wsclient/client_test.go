package wsclient

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBackoffDelaySequence(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt); got != tc.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestNewRewritesHTTPScheme(t *testing.T) {
	c, err := New("http://example.com/ws", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.HasPrefix(c.url, "ws://") {
		t.Fatalf("url = %q, want ws:// prefix", c.url)
	}
}

func TestNewRejectsUnsupportedScheme(t *testing.T) {
	if _, err := New("ftp://example.com", nil); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestRunStreamsFramesUntilServerCloses(t *testing.T) {
	var upgrader websocket.Upgrader
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"n":1}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"n":2}`))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, err := New(wsURL, log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var mu sync.Mutex
	var received []string
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Run(ctx, func(raw []byte) {
		mu.Lock()
		received = append(received, string(raw))
		done := len(received) >= 2
		mu.Unlock()
		if done {
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d frames, want 2: %v", len(received), received)
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
