package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitewatch/sitewatch/pkg/types"
	"github.com/sitewatch/sitewatch/server/internal/api"
	"github.com/sitewatch/sitewatch/server/internal/store"
	wsHub "github.com/sitewatch/sitewatch/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore(urls ...string) *store.Store {
	st := store.New(0)
	if len(urls) > 0 {
		st.Put(snap(urls...))
	}
	return st
}

func snap(urls ...string) *types.Snapshot {
	s := &types.Snapshot{GeneratedAt: time.Now().UTC()}
	for _, u := range urls {
		s.Sites = append(s.Sites, types.SiteCheck{
			URL: u, DNSOk: true, TLSOk: true, HTTPOk: true, PageOk: true,
			SSLState: types.SSLStateOK,
		})
	}
	return s
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cancel function.
func startHub(t *testing.T, st *store.Store, interval time.Duration) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, interval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads and decodes one message from conn with a deadline.
func readMessage(t *testing.T, conn *websocket.Conn, within time.Duration) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(within))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore("https://a.example/"), time.Hour)

	m := readMessage(t, dial(t, wsURL), 2*time.Second)
	if m.Event != "snapshot" {
		t.Errorf("event: got %q, want snapshot", m.Event)
	}
	if m.Data.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
	if len(m.Data.Sites) != 1 || m.Data.Sites[0].Badge != "OK" {
		t.Errorf("sites: %+v", m.Data.Sites)
	}
}

func TestHub_EmptyStore_EmptySites(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(), time.Hour)

	m := readMessage(t, dial(t, wsURL), 2*time.Second)
	if m.Data.Sites == nil || len(m.Data.Sites) != 0 {
		t.Errorf("sites: got %v, want empty list", m.Data.Sites)
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(), time.Hour)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i], 2*time.Second) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}

	conns[0].Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close
	if n := hub.Count(); n != 2 {
		t.Errorf("Count after disconnect: got %d, want 2", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := newStore()
	wsURL, _, _ := startHub(t, st, testInterval)

	conn := dial(t, wsURL)
	readMessage(t, conn, 2*time.Second) // consume immediate snapshot (empty store)

	st.Put(snap("https://new.example/"))

	// Ticks may deliver the empty view before Put lands; read until it shows up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn, 2*time.Second)
		if len(m.Data.Sites) == 1 && m.Data.Sites[0].URL == "https://new.example/" {
			return
		}
	}
	t.Fatal("tick broadcast never carried the new site")
}

func TestHub_NotifyBroadcastsImmediately(t *testing.T) {
	st := newStore("https://a.example/")
	wsURL, hub, _ := startHub(t, st, time.Hour) // no ticks during the test

	conn := dial(t, wsURL)
	readMessage(t, conn, 2*time.Second)

	st.Put(snap("https://a.example/", "https://b.example/"))
	hub.Notify()

	m := readMessage(t, conn, time.Second)
	if len(m.Data.Sites) != 2 {
		t.Errorf("sites after Notify: got %d, want 2", len(m.Data.Sites))
	}
}

func TestHub_NotifyCoalesces(t *testing.T) {
	hub := wsHub.New(newStore(), time.Hour)
	// Without a running loop, repeated calls must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Notify()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked")
	}
}

func TestHub_MessageMatchesRESTView(t *testing.T) {
	st := newStore("https://a.example/")
	wsURL, _, _ := startHub(t, st, time.Hour)

	m := readMessage(t, dial(t, wsURL), 2*time.Second)
	want := api.BuildSnapshot(st)
	if m.Data.GeneratedAt != want.GeneratedAt || len(m.Data.Sites) != len(want.Sites) {
		t.Errorf("ws data %+v differs from REST view %+v", m.Data, want)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore(), time.Hour)

	conn := dial(t, wsURL)
	readMessage(t, conn, 2*time.Second)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without upgrade headers.
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
