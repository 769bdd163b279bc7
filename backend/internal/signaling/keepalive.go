package signaling

import (
	"sync"
	"time"
)

const (
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultKeepaliveTimeout  = 2 * DefaultKeepaliveInterval
)

// Keepalive probes one peer with ping messages and hands it to onTimeout
// once no pong has arrived for longer than the timeout.
//
// Stop is final: once it returns, no tick sends a ping or times the peer out.
type Keepalive struct {
	peer      *Peer
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	onTimeout func(*Peer)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newKeepalive(p *Peer, interval, timeout time.Duration, now func() time.Time, onTimeout func(*Peer)) *Keepalive {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	if timeout <= 0 {
		timeout = 2 * interval
	}
	if now == nil {
		now = time.Now
	}
	return &Keepalive{
		peer:      p,
		interval:  interval,
		timeout:   timeout,
		now:       now,
		onTimeout: onTimeout,
	}
}

// Start runs the first tick right away.
func (k *Keepalive) Start() {
	k.tick()
}

func (k *Keepalive) tick() {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return
	}

	if k.now().Sub(k.peer.LastBeat()) > k.timeout {
		k.stopped = true
		k.mu.Unlock()
		// onTimeout stops the keepalive again; that must not deadlock.
		k.onTimeout(k.peer)
		return
	}

	k.peer.send(PingMessage{Type: TypePing})
	k.timer = time.AfterFunc(k.interval, k.tick)
	k.mu.Unlock()
}

// Stop cancels the pending tick. It is safe to call more than once.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	if k.timer != nil {
		k.timer.Stop()
		k.timer = nil
	}
}

// Stopped reports whether the keepalive has been cancelled or timed out.
func (k *Keepalive) Stopped() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stopped
}
