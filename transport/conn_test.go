package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
)

// testServer accepts websocket upgrades, optionally greets each client,
// and forwards inbound frames. Accepted conns are handed to the test
// for scripted closes.
type testServer struct {
	srv     *httptest.Server
	accepts atomic.Int32
	conns   chan *websocket.Conn
	inbound chan []byte
}

func newTestServer(t *testing.T, greeting []byte) *testServer {
	t.Helper()
	ts := &testServer{
		conns:   make(chan *websocket.Conn, 4),
		inbound: make(chan []byte, 4),
	}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ts.accepts.Add(1)
		ts.conns <- ws
		if greeting != nil {
			if err := ws.Write(r.Context(), websocket.MessageText, greeting); err != nil {
				return
			}
		}
		for {
			_, data, err := ws.Read(r.Context())
			if err != nil {
				return
			}
			ts.inbound <- data
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) takeConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-ts.conns:
		return ws
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the server to accept")
		return nil
	}
}

func recvNotice(t *testing.T, c *Conn) Notice {
	t.Helper()
	select {
	case n := <-c.Notices():
		return n
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a notice")
		return Notice{}
	}
}

func TestConnLifecycleAndFrames(t *testing.T) {
	greeting := []byte(`{"type":"status","message":"Planning actions..."}`)
	ts := newTestServer(t, greeting)

	conn := New(Config{URL: ts.url(), RetryDelay: 3 * time.Second})
	conn.Start(context.Background())
	defer conn.Teardown()

	if n := recvNotice(t, conn); n.Kind != NoticeOpen {
		t.Fatalf("first notice kind = %v, want NoticeOpen", n.Kind)
	}

	n := recvNotice(t, conn)
	if n.Kind != NoticeFrame || string(n.Data) != string(greeting) {
		t.Fatalf("second notice = %v %q, want the greeting frame", n.Kind, n.Data)
	}

	// Outbound path round-trips through the open connection.
	payload := []byte(`{"instruction":"find pizza places"}`)
	if err := conn.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case got := <-ts.inbound:
		if string(got) != string(payload) {
			t.Fatalf("server received %q, want %q", got, payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server never received the payload")
	}

	// A server-side close surfaces as exactly one NoticeClosed.
	ws := ts.takeConn(t)
	_ = ws.Close(websocket.StatusNormalClosure, "done")
	if n := recvNotice(t, conn); n.Kind != NoticeClosed {
		t.Fatalf("notice after close = %v, want NoticeClosed", n.Kind)
	}
}

func TestConnReconnectsAfterFixedDelayOnly(t *testing.T) {
	ts := newTestServer(t, nil)
	fc := clockwork.NewFakeClock()

	conn := New(Config{URL: ts.url(), RetryDelay: 3 * time.Second, Clock: fc})
	conn.Start(context.Background())
	defer conn.Teardown()

	if n := recvNotice(t, conn); n.Kind != NoticeOpen {
		t.Fatalf("first notice kind = %v, want NoticeOpen", n.Kind)
	}

	ws := ts.takeConn(t)
	_ = ws.Close(websocket.StatusNormalClosure, "bye")
	if n := recvNotice(t, conn); n.Kind != NoticeClosed {
		t.Fatalf("notice after close = %v, want NoticeClosed", n.Kind)
	}

	// The run loop is now parked on the single retry wait. No redial
	// happens until the fixed delay elapses.
	fc.BlockUntil(1)
	if got := ts.accepts.Load(); got != 1 {
		t.Fatalf("server saw %d dials before the delay elapsed, want 1", got)
	}

	fc.Advance(3 * time.Second)
	if n := recvNotice(t, conn); n.Kind != NoticeOpen {
		t.Fatalf("notice after delay = %v, want NoticeOpen from the redial", n.Kind)
	}
	ts.takeConn(t)
	if got := ts.accepts.Load(); got != 2 {
		t.Fatalf("server saw %d dials, want exactly 2 (one timer, one redial)", got)
	}
}

func TestTeardownCancelsPendingRetry(t *testing.T) {
	// A plain HTTP handler rejects the upgrade, so every dial fails and
	// the loop sits in the retry wait.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	defer srv.Close()

	fc := clockwork.NewFakeClock()
	conn := New(Config{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		RetryDelay: 3 * time.Second,
		Clock:      fc,
	})
	conn.Start(context.Background())

	if n := recvNotice(t, conn); n.Kind != NoticeClosed {
		t.Fatalf("notice after failed dial = %v, want NoticeClosed", n.Kind)
	}

	fc.BlockUntil(1)
	done := make(chan struct{})
	go func() {
		conn.Teardown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Teardown() did not cancel the pending retry")
	}

	// No further notices arrive once torn down.
	select {
	case n := <-conn.Notices():
		t.Fatalf("got notice %v after teardown", n.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendWhileDisconnectedIsRejected(t *testing.T) {
	conn := New(Config{URL: "ws://127.0.0.1:0", RetryDelay: 3 * time.Second})

	err := conn.Send(context.Background(), []byte(`{"instruction":"hi"}`))
	if err != ErrNotConnected {
		t.Fatalf("Send() error = %v, want ErrNotConnected", err)
	}
}
