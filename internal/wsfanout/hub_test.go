package wsfanout

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/fleetcore/internal/telemetry"
)

type fakeDeviceCounter int

func (f fakeDeviceCounter) Size() int { return int(f) }

func TestHelloFrameThenBroadcast(t *testing.T) {
	hub := NewHub(fakeDeviceCounter(3))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, helloBytes, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var hello telemetry.Hello
	if err := json.Unmarshal(helloBytes, &hello); err != nil {
		t.Fatalf("unmarshal hello: %v", err)
	}
	if hello.Type != telemetry.EventHello || hello.DeviceCount != 3 {
		t.Fatalf("unexpected hello: %+v", hello)
	}

	// Give the dispatcher a moment to process the registration before
	// broadcasting, since Handler sends hello and registers
	// asynchronously relative to Run's select loop.
	time.Sleep(50 * time.Millisecond)

	event := telemetry.HeartbeatEvent{
		Event:     telemetry.Event{Type: telemetry.EventHeartbeat, TS: telemetry.NowTS()},
		DeviceID:  "dev-1",
		LatencyMs: 12.5,
	}
	hub.BroadcastJSON(event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frameBytes, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var got telemetry.HeartbeatEvent
	if err := json.Unmarshal(frameBytes, &got); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if got.DeviceID != "dev-1" || got.Type != telemetry.EventHeartbeat {
		t.Fatalf("unexpected broadcast event: %+v", got)
	}
}
