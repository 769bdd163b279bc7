package transfer

import (
	"sync"
	"sync/atomic"

	pion "github.com/pion/webrtc/v4"
)

// pipeChannel is one end of an in-memory, ordered data channel.
type pipeChannel struct {
	mu       sync.Mutex
	inbox    chan []byte
	peer     *pipeChannel
	state    pion.DataChannelState
	buffered atomic.Uint64
	lowFn    func()
	sent     [][]byte
}

// newPipe returns two connected ends. Frames sent on one end are handed
// to the other end's handler in order.
func newPipe() (*pipeChannel, *pipeChannel) {
	a := &pipeChannel{inbox: make(chan []byte, 4096), state: pion.DataChannelStateOpen}
	b := &pipeChannel{inbox: make(chan []byte, 4096), state: pion.DataChannelStateOpen}
	a.peer, b.peer = b, a
	return a, b
}

// serve delivers frames arriving at c to handle until c is closed.
func (c *pipeChannel) serve(handle func([]byte)) {
	go func() {
		for data := range c.inbox {
			handle(data)
		}
	}()
}

func (c *pipeChannel) Send(data []byte) error {
	c.mu.Lock()
	if c.state != pion.DataChannelStateOpen {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.sent = append(c.sent, data)
	c.mu.Unlock()

	if c.peer != nil {
		c.peer.inbox <- append([]byte(nil), data...)
	}
	return nil
}

func (c *pipeChannel) BufferedAmount() uint64 { return c.buffered.Load() }

func (c *pipeChannel) SetBufferedAmountLowThreshold(uint64) {}

func (c *pipeChannel) OnBufferedAmountLow(f func()) {
	c.mu.Lock()
	c.lowFn = f
	c.mu.Unlock()
}

func (c *pipeChannel) ReadyState() pion.DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *pipeChannel) close() {
	c.mu.Lock()
	c.state = pion.DataChannelStateClosed
	c.mu.Unlock()
}

// drain simulates the transport emptying the buffer.
func (c *pipeChannel) drain() {
	c.buffered.Store(0)
	c.mu.Lock()
	f := c.lowFn
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

func (c *pipeChannel) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// recordingProgress remembers the last update per file.
type recordingProgress struct {
	mu       sync.Mutex
	current  map[int]int64
	complete map[int]bool
	failed   map[int]string
}

func newRecordingProgress() *recordingProgress {
	return &recordingProgress{current: map[int]int64{}, complete: map[int]bool{}, failed: map[int]string{}}
}

func (p *recordingProgress) UpdateProgress(i int, n int64) {
	p.mu.Lock()
	p.current[i] = n
	p.mu.Unlock()
}

func (p *recordingProgress) MarkComplete(i int) {
	p.mu.Lock()
	p.complete[i] = true
	p.mu.Unlock()
}

func (p *recordingProgress) MarkFailed(i int, msg string) {
	p.mu.Lock()
	p.failed[i] = msg
	p.mu.Unlock()
}
