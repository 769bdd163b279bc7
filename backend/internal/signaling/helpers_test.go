package signaling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/Keydrop/backend/internal/useragent"
)

// fakeConn records everything sent to a peer.
type fakeConn struct {
	mu         sync.Mutex
	sent       [][]byte
	terminated bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return ErrConnClosed
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Terminate() {
	c.mu.Lock()
	c.terminated = true
	c.mu.Unlock()
}

func (c *fakeConn) isTerminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.sent))
	for _, raw := range c.sent {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("sent invalid JSON %q: %v", raw, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// fixedClock is a manually advanced clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testUserAgent(string) useragent.Info {
	return useragent.Info{OS: "Linux", Browser: "Firefox"}
}

// newTestRouter returns a router whose keepalive never fires on its own.
func newTestRouter(t *testing.T, clock *fixedClock) *Router {
	t.Helper()
	if clock == nil {
		clock = newFixedClock()
	}
	return NewRouter(Config{
		KeepaliveInterval: time.Hour,
		KeepaliveTimeout:  60 * time.Second,
		KeyRoomTTL:        time.Hour,
		TrustForwardedFor: true,
		ParseUserAgent:    testUserAgent,
		Now:               clock.Now,
	}, nil, nil)
}

func sessionRequest(path, query string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path+"?"+query, nil)
	r.RemoteAddr = "192.0.2.10:51000"
	return r
}

// connect admits a peer and returns it with its recording transport.
func connect(t *testing.T, r *Router, query string) (*Peer, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	p, err := r.Connect(conn, sessionRequest("/ws", query))
	if err != nil {
		t.Fatalf("Connect(%q): %v", query, err)
	}
	return p, conn
}

func peerIDs(t *testing.T, msg map[string]any) []string {
	t.Helper()
	list, ok := msg["peers"].([]any)
	if !ok {
		t.Fatalf("peers field is %T, want array", msg["peers"])
	}
	ids := make([]string, 0, len(list))
	for _, entry := range list {
		ids = append(ids, entry.(map[string]any)["id"].(string))
	}
	return ids
}
