package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterReplacesSilently(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	first := NewConnection(nil, "u1", "Alice", zerolog.Nop())
	second := NewConnection(nil, "u1", "Alice", zerolog.Nop())

	hub.Register("u1", first)
	hub.Register("u1", second)

	got, ok := hub.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, second, got, "last writer wins")
}

func TestUnregisterGuardsAgainstStaleConnection(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	first := NewConnection(nil, "u1", "Alice", zerolog.Nop())
	second := NewConnection(nil, "u1", "Alice", zerolog.Nop())

	hub.Register("u1", first)
	hub.Register("u1", second)

	assert.False(t, hub.Unregister("u1", first), "stale connection must not evict the newer session")
	assert.True(t, hub.IsOnline("u1"))

	assert.True(t, hub.Unregister("u1", second))
	assert.False(t, hub.IsOnline("u1"))
}

func TestUnregisterUnknownUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	conn := NewConnection(nil, "u1", "Alice", zerolog.Nop())
	assert.False(t, hub.Unregister("u1", conn))
}

// A client that sends no data frames but answers pings must outlive the read
// deadline; the write pump's pings are what keep the deadline moving.
func TestKeepAliveOutlivesReadDeadline(t *testing.T) {
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewConnection(raw, "u1", "Alice", zerolog.Nop())
		c.pongWait = 150 * time.Millisecond
		c.pingPeriod = 50 * time.Millisecond
		go c.WritePump()
		c.ReadPump(func(Message) error { return nil })
		close(done)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	// The default ping handler pongs back, but only while the client reads.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
		t.Fatal("server dropped a quiet but responsive client")
	case <-time.After(500 * time.Millisecond):
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not exit after the client closed")
	}
}
