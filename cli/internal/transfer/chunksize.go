package transfer

import (
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/utils"
)

const (
	// sampleWindow is how long throughput is measured before resizing.
	sampleWindow = 250 * time.Millisecond

	// chunkBudget is the amount of link time one chunk should take.
	chunkBudget = 20 * time.Millisecond
)

// chunkSizer picks the read size for the next chunk. The size stays a power
// of two between utils.MinChunkSize and utils.MaxChunkSize and moves by at
// most one step per window. Not safe for concurrent use.
type chunkSizer struct {
	now   func() time.Time
	size  int
	start time.Time
	sent  int64
	rate  float64
}

func newChunkSizer(now func() time.Time) *chunkSizer {
	return &chunkSizer{now: now, size: utils.DefaultChunkSize, start: now()}
}

func (c *chunkSizer) Size() int { return c.size }

// Rate is the smoothed throughput in bytes per second, zero before the
// first full window.
func (c *chunkSizer) Rate() float64 { return c.rate }

// Sent records n bytes handed to the channel.
func (c *chunkSizer) Sent(n int) {
	c.sent += int64(n)

	now := c.now()
	elapsed := now.Sub(c.start)
	if elapsed < sampleWindow {
		return
	}

	sample := float64(c.sent) / elapsed.Seconds()
	if c.rate == 0 {
		c.rate = sample
	} else {
		c.rate = (c.rate + sample) / 2
	}
	c.sent, c.start = 0, now

	want := int(c.rate * chunkBudget.Seconds())
	switch {
	case want >= 2*c.size && c.size < utils.MaxChunkSize:
		c.size *= 2
	case 2*want < c.size && c.size > utils.MinChunkSize:
		c.size /= 2
	}
}
