package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/fedistream/internal/metrics"
	"github.com/rickgao/fedistream/internal/router"
)

const statusPayload = `{"id":"110","uri":"https://example.social/objects/110",` +
	`"account":{"id":"9xYz","acct":"alice"},"content":"<p>hi</p>",` +
	`"created_at":"2024-01-15T12:00:00Z","visibility":"public"}`

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// wireMessage builds a streaming text frame.
func wireMessage(tag, payload string) []byte {
	data, _ := json.Marshal(map[string]string{"event": tag, "payload": payload})
	return data
}

// sendClose writes a close frame and waits for the peer to acknowledge it.
func sendClose(conn *websocket.Conn, code int) {
	var msg []byte
	if code != websocket.CloseNoStatusReceived {
		msg = websocket.FormatCloseMessage(code, "")
	}
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	drain(conn)
}

// drain reads until the connection fails, keeping it open until the client
// goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// recorder is a Sink that records events.
type recorder struct {
	mu     sync.Mutex
	events []router.Event
}

func (r *recorder) Handle(ev router.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []router.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]router.Event(nil), r.events...)
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		HandshakeTimeout: time.Second,
		ReadTimeout:      2 * time.Second,
		WriteTimeout:     time.Second,
	}
}

func TestSession_DeliversEventsInOrder(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, wireMessage("update", statusPayload))
		conn.WriteMessage(websocket.TextMessage, wireMessage("delete", "123"))
		conn.WriteMessage(websocket.TextMessage, wireMessage("notification",
			`{"id":"n1","type":"mention","created_at":"2024-01-15T12:00:00Z"}`))
		sendClose(conn, websocket.CloseNormalClosure)
	})
	defer server.Close()

	rec := &recorder{}
	s := NewSession(testSessionConfig(), "user", nil, nil)

	out := s.Run(context.Background(), wsURL(server), rec)
	if !out.CleanStop() {
		t.Fatalf("outcome = %v (%v), want clean stop", out, out.Err)
	}
	if out.CloseCode != websocket.CloseNormalClosure {
		t.Errorf("CloseCode = %d, want %d", out.CloseCode, websocket.CloseNormalClosure)
	}
	if !out.Connected {
		t.Error("Connected = false, want true")
	}

	events := rec.Events()
	if len(events) != 3 {
		t.Fatalf("received %d events, want 3", len(events))
	}
	if upd, ok := events[0].(router.Update); !ok || upd.Status.ID != "110" {
		t.Errorf("events[0] = %#v, want Update(110)", events[0])
	}
	if events[1] != (router.Delete{ID: "123"}) {
		t.Errorf("events[1] = %#v, want Delete(123)", events[1])
	}
	if _, ok := events[2].(router.Notification); !ok {
		t.Errorf("events[2] = %T, want Notification", events[2])
	}
}

func TestSession_PingRepliesPongAndYieldsHeartbeat(t *testing.T) {
	gotPong := make(chan string, 1)

	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.SetPongHandler(func(data string) error {
			gotPong <- data
			return nil
		})
		go drain(conn)

		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}

		select {
		case <-gotPong:
		case <-time.After(time.Second):
			t.Error("timeout waiting for pong")
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	rec := &recorder{}
	s := NewSession(testSessionConfig(), "user", nil, nil)

	out := s.Run(context.Background(), wsURL(server), rec)
	if !out.CleanStop() {
		t.Fatalf("outcome = %v (%v), want clean stop", out, out.Err)
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("received %d events, want 1", len(events))
	}
	if _, ok := events[0].(router.Heartbeat); !ok {
		t.Errorf("events[0] = %T, want Heartbeat", events[0])
	}
}

func TestSession_CloseCodes(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		wantClean   bool
		wantFailure FailureKind
	}{
		{"normal", websocket.CloseNormalClosure, true, 0},
		{"no status", websocket.CloseNoStatusReceived, true, 0},
		{"internal error", websocket.CloseInternalServerErr, false, AbnormalClose},
		{"going away", websocket.CloseGoingAway, false, AbnormalClose},
		{"application code", 4000, false, AbnormalClose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockWSServer(t, func(conn *websocket.Conn) {
				sendClose(conn, tt.code)
			})
			defer server.Close()

			s := NewSession(testSessionConfig(), "user", nil, nil)
			out := s.Run(context.Background(), wsURL(server), &recorder{})

			if out.CleanStop() != tt.wantClean {
				t.Fatalf("CleanStop() = %v, want %v (outcome %v, err %v)", out.CleanStop(), tt.wantClean, out, out.Err)
			}
			if out.Failure != tt.wantFailure {
				t.Errorf("Failure = %v, want %v", out.Failure, tt.wantFailure)
			}
			if !tt.wantClean && out.CloseCode != tt.code {
				t.Errorf("CloseCode = %d, want %d", out.CloseCode, tt.code)
			}
		})
	}
}

func TestSession_ReadTimeout(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	cfg := testSessionConfig()
	cfg.ReadTimeout = 100 * time.Millisecond
	s := NewSession(cfg, "user", nil, nil)

	start := time.Now()
	out := s.Run(context.Background(), wsURL(server), &recorder{})

	if out.Failure != ReadTimeout {
		t.Fatalf("Failure = %v (%v), want %v", out.Failure, out.Err, ReadTimeout)
	}
	if elapsed := time.Since(start); elapsed < cfg.ReadTimeout {
		t.Errorf("returned after %v, before the %v timeout", elapsed, cfg.ReadTimeout)
	}
}

func TestSession_FramesResetReadTimeout(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Five pings 50ms apart outlast a single 150ms window.
		for i := 0; i < 5; i++ {
			time.Sleep(50 * time.Millisecond)
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
		sendClose(conn, websocket.CloseNormalClosure)
	})
	defer server.Close()

	cfg := testSessionConfig()
	cfg.ReadTimeout = 150 * time.Millisecond
	rec := &recorder{}
	s := NewSession(cfg, "user", nil, nil)

	out := s.Run(context.Background(), wsURL(server), rec)
	if !out.CleanStop() {
		t.Fatalf("outcome = %v (%v), want clean stop", out, out.Err)
	}
	if n := len(rec.Events()); n != 5 {
		t.Errorf("received %d heartbeats, want 5", n)
	}
}

func TestSession_ConnectionFailure(t *testing.T) {
	t.Run("server gone", func(t *testing.T) {
		server := mockWSServer(t, drain)
		url := wsURL(server)
		server.Close()

		s := NewSession(testSessionConfig(), "user", nil, nil)
		out := s.Run(context.Background(), url, &recorder{})

		if out.Failure != ConnectionFailure {
			t.Errorf("Failure = %v, want %v", out.Failure, ConnectionFailure)
		}
		if out.Connected {
			t.Error("Connected = true, want false")
		}
	})

	t.Run("not a websocket", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
		defer server.Close()

		s := NewSession(testSessionConfig(), "user", nil, nil)
		out := s.Run(context.Background(), wsURL(server), &recorder{})

		if out.Failure != ConnectionFailure {
			t.Errorf("Failure = %v, want %v", out.Failure, ConnectionFailure)
		}
		if !errors.Is(out.Err, websocket.ErrBadHandshake) {
			t.Errorf("Err = %v, want ErrBadHandshake", out.Err)
		}
	})
}

func TestSession_ReadFailure(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Drop the TCP connection without a close frame.
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	s := NewSession(testSessionConfig(), "user", nil, nil)
	out := s.Run(context.Background(), wsURL(server), &recorder{})

	if out.Failure != ReadFailure {
		t.Errorf("Failure = %v (%v), want %v", out.Failure, out.Err, ReadFailure)
	}
}

func TestSession_DecodeFailuresAreNotFatal(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, wireMessage("update", `{"id":`))
		conn.WriteMessage(websocket.TextMessage, wireMessage("bogus", "x"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"update"}`))
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02})
		conn.WriteMessage(websocket.TextMessage, wireMessage("update", statusPayload))
		sendClose(conn, websocket.CloseNormalClosure)
	})
	defer server.Close()

	reg := prometheus.NewRegistry()
	rec := &recorder{}
	s := NewSession(testSessionConfig(), "user", metrics.New(reg), nil)

	out := s.Run(context.Background(), wsURL(server), rec)
	if !out.CleanStop() {
		t.Fatalf("outcome = %v (%v), want clean stop", out, out.Err)
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("received %d events, want 1", len(events))
	}
	if upd, ok := events[0].(router.Update); !ok || upd.Status.ID != "110" {
		t.Errorf("events[0] = %#v, want Update(110)", events[0])
	}

	if got := counterSum(t, reg, "fedistream_decode_failures_total"); got != 4 {
		t.Errorf("decode failures = %v, want 4", got)
	}
}

func TestSession_EmptyFrameIsSkipped(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, nil)
		conn.WriteMessage(websocket.TextMessage, wireMessage("delete", "42"))
		sendClose(conn, websocket.CloseNormalClosure)
	})
	defer server.Close()

	rec := &recorder{}
	s := NewSession(testSessionConfig(), "user", nil, nil)

	out := s.Run(context.Background(), wsURL(server), rec)
	if !out.CleanStop() {
		t.Fatalf("outcome = %v (%v), want clean stop", out, out.Err)
	}

	events := rec.Events()
	if len(events) != 1 || events[0] != (router.Delete{ID: "42"}) {
		t.Errorf("events = %#v, want [Delete(42)]", events)
	}
}

func TestSession_SinkBackpressure(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 3; i++ {
			conn.WriteMessage(websocket.TextMessage, wireMessage("delete", string(rune('a'+i))))
		}
		sendClose(conn, websocket.CloseNormalClosure)
	})
	defer server.Close()

	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
		ids      []string
	)
	sink := SinkFunc(func(ev router.Event) {
		mu.Lock()
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		ids = append(ids, router.EntityID(ev))
		mu.Unlock()
	})

	s := NewSession(testSessionConfig(), "user", nil, nil)
	if out := s.Run(context.Background(), wsURL(server), sink); !out.CleanStop() {
		t.Fatalf("outcome = %v (%v), want clean stop", out, out.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxSeen != 1 {
		t.Errorf("max concurrent sink calls = %d, want 1", maxSeen)
	}
	if strings.Join(ids, ",") != "a,b,c" {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
}

func TestSession_SendsHandshakeHeaders(t *testing.T) {
	gotAgent := make(chan string, 1)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent <- r.Header.Get("User-Agent")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		sendClose(conn, websocket.CloseNormalClosure)
	}))
	defer server.Close()

	cfg := testSessionConfig()
	cfg.Header = http.Header{"User-Agent": []string{"fedistream-test"}}
	s := NewSession(cfg, "user", nil, nil)
	s.Run(context.Background(), wsURL(server), &recorder{})

	if agent := <-gotAgent; agent != "fedistream-test" {
		t.Errorf("User-Agent = %q, want %q", agent, "fedistream-test")
	}
}

func TestSession_ContextCancel(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(testSessionConfig(), "user", nil, nil)

	done := make(chan Outcome, 1)
	go func() {
		done <- s.Run(ctx, wsURL(server), &recorder{})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		if out.CleanStop() {
			t.Error("cancelled session reported clean stop")
		}
		if !errors.Is(out.Err, context.Canceled) {
			t.Errorf("Err = %v, want context.Canceled", out.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		out  Outcome
		want string
	}{
		{Outcome{}, "clean_stop"},
		{Outcome{Failure: ConnectionFailure}, "connection_failure"},
		{Outcome{Failure: ReadFailure}, "read_failure"},
		{Outcome{Failure: ReadTimeout}, "read_timeout"},
		{Outcome{Failure: AbnormalClose}, "abnormal_close"},
	}
	for _, tt := range tests {
		if got := tt.out.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// counterSum sums the counter named name across all label values.
func counterSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
