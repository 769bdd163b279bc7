package signaling

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
)

func TestClientSendReportsDropReason(t *testing.T) {
	c := NewClient(nil, 0, 1)

	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := c.Send([]byte("b")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Send on full queue = %v, want ErrQueueFull", err)
	}

	c.Terminate()
	c.Terminate()
	if err := c.Send([]byte("c")); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("Send after Terminate = %v, want ErrConnClosed", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after Terminate")
	}
}

func TestSendAfterTerminateCountsClosed(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	conn := &fakeConn{}
	p, err := NewPeer(conn, sessionRequest("/ws", "peerid=a&roomid=lab"), PeerOptions{
		ParseUserAgent: testUserAgent,
		Metrics:        m,
	})
	if err != nil {
		t.Fatalf("NewPeer: %v", err)
	}

	p.terminate()
	p.sendRaw([]byte(`{"type":"ping"}`))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if want := `keydrop_dropped_messages_total{reason="closed"} 1`; !strings.Contains(string(body), want) {
		t.Fatalf("metrics output missing %q:\n%s", want, body)
	}
	if strings.Contains(string(body), `reason="queue_full"`) {
		t.Fatalf("closed connection counted as queue_full:\n%s", body)
	}
}

// A member whose socket never drains must not hold its room lock while it
// is being removed.
func TestLeaveDoesNotWaitOnStalledReader(t *testing.T) {
	r := newTestRouter(t, nil)
	connect(t, r, "peerid=b&roomid=lab")

	upgrader := websocket.Upgrader{}
	clients := make(chan *Client, 1)
	peers := make(chan *Peer, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		c := NewClient(ws, 0, 4)
		go c.WritePump()
		p, err := r.Connect(c, req)
		if err != nil {
			c.Terminate()
			return
		}
		clients <- c
		peers <- p
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?peerid=a&roomid=lab"
	stalled, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = stalled.Close() })

	var (
		c *Client
		p *Peer
	)
	select {
	case c = <-clients:
		p = <-peers
	case <-time.After(3 * time.Second):
		t.Fatal("server never admitted the peer")
	}

	// Fill the socket buffers so WritePump blocks inside a write.
	big := bytes.Repeat([]byte("x"), 1<<20)
	fill := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(fill) {
		p.sendRaw(big)
		time.Sleep(5 * time.Millisecond)
	}

	left := make(chan bool, 1)
	members := make(chan []PeerInfo, 1)
	go func() { left <- r.Rooms().Leave(p) }()
	go func() { members <- r.Rooms().Members("lab") }()

	deadline := time.After(time.Second)
	select {
	case ok := <-left:
		if !ok {
			t.Fatal("Leave reported the peer was not a member")
		}
	case <-deadline:
		t.Fatal("Leave blocked on a stalled connection")
	}
	select {
	case <-members:
	case <-deadline:
		t.Fatal("Members blocked behind Leave")
	}

	select {
	case <-c.Done():
	default:
		t.Fatal("client not terminated by Leave")
	}
	if got := r.Rooms().Members("lab"); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("members after leave = %+v, want only b", got)
	}
}
