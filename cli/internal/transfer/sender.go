package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/files"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc"
	pion "github.com/pion/webrtc/v4"
)

// Buffering limits. Variables so tests can shrink them.
var (
	HighWaterMark  uint64 = utils.HighWaterMark
	LowWaterMark   uint64 = utils.LowWaterMark
	SendTimeout           = utils.SendTimeout
	DrainTimeout          = utils.DrainTimeout
	ConfirmTimeout        = 10 * time.Second
)

// ChunkSender writes frames while keeping the channel's buffered amount
// under HighWaterMark.
type ChunkSender struct {
	channel    Channel
	sizer      *chunkSizer
	buffer     []byte
	low        chan struct{}
}

func NewChunkSender(ch Channel) *ChunkSender {
	s := &ChunkSender{
		channel:    ch,
		sizer:      newChunkSizer(time.Now),
		buffer:     make([]byte, utils.MaxChunkSize),
		low:        make(chan struct{}, 1),
	}
	ch.SetBufferedAmountLowThreshold(LowWaterMark)
	ch.OnBufferedAmountLow(func() {
		select {
		case s.low <- struct{}{}:
		default:
		}
	})
	return s
}

// WaitForWindow blocks while the channel is above HighWaterMark. A buffer
// that shrank during SendTimeout counts as progress.
func (s *ChunkSender) WaitForWindow(ctx context.Context) error {
	buffered := s.channel.BufferedAmount()
	if buffered < HighWaterMark {
		return nil
	}

	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()

	select {
	case <-s.low:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if s.channel.BufferedAmount() < buffered {
			return nil
		}
		return WrapError("send", ErrBufferTimeout, "buffer not draining")
	}
}

// WaitForDrain waits until everything queued has left, the channel closes
// or DrainTimeout passes.
func (s *ChunkSender) WaitForDrain(ctx context.Context) {
	deadline := time.Now().Add(DrainTimeout)
	for s.channel.BufferedAmount() > 0 && time.Now().Before(deadline) {
		if !s.IsOpen() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (s *ChunkSender) IsOpen() bool {
	return s.channel.ReadyState() == pion.DataChannelStateOpen
}

// SendFile streams r from offset as chunk frames named name.
// onProgress receives the absolute offset after every chunk.
func (s *ChunkSender) SendFile(ctx context.Context, r io.Reader, name string, size, offset uint64, onProgress func(uint64)) error {
	current := offset
	for {
		if !s.IsOpen() {
			return NewFileError("send", name, ErrChannelClosed)
		}
		if err := s.WaitForWindow(ctx); err != nil {
			return NewFileError("send", name, err)
		}

		n, readErr := io.ReadFull(r, s.buffer[:s.sizer.Size()])
		if n > 0 || current >= size {
			next := current + uint64(n)
			data, err := webrtc.Encode(webrtc.MessageTypeChunk, webrtc.ChunkPayload{
				FileName: name,
				Offset:   current,
				Bytes:    s.buffer[:n],
				Final:    next >= size,
			})
			if err != nil {
				return NewFileError("encode chunk", name, err)
			}
			if err := s.channel.Send(data); err != nil {
				return NewFileError("send", name, err)
			}
			current = next
			s.sizer.Sent(n)
			if onProgress != nil {
				onProgress(current)
			}
			if current >= size {
				return nil
			}
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return NewFileError("send", name, io.ErrUnexpectedEOF)
		default:
			return NewFileError("read", name, readErr)
		}
	}
}

// Sender drives the sending half of the data channel protocol: announce the
// files, then stream each one the receiver asks for.
type Sender struct {
	channel Channel
	chunks  *ChunkSender
	files   []files.FileInfo

	ready    chan webrtc.ReadyToReceivePayload
	device   chan webrtc.DeviceInfoPayload
	declined chan struct{}
	done     chan struct{}
}

func NewSender(ch Channel, list []files.FileInfo) *Sender {
	return &Sender{
		channel:  ch,
		chunks:   NewChunkSender(ch),
		files:    list,
		ready:    make(chan webrtc.ReadyToReceivePayload, len(list)+1),
		device:   make(chan webrtc.DeviceInfoPayload, 1),
		declined: make(chan struct{}, 1),
		done:     make(chan struct{}, 1),
	}
}

// SendMetadata announces the files. Call it once the channel is open.
func (s *Sender) SendMetadata() error {
	meta := make([]webrtc.FileMetadata, len(s.files))
	for i, f := range s.files {
		meta[i] = webrtc.FileMetadata{Name: f.Name, Size: uint64(f.Size), Type: f.Type}
	}
	return SendFilesMetadata(s.channel, meta)
}

// HandleMessage consumes one frame from the receiver.
func (s *Sender) HandleMessage(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		slog.Warn("dropping frame", "err", err)
		return
	}

	switch msg.Type {
	case webrtc.MessageTypeReadyToReceive:
		var ready webrtc.ReadyToReceivePayload
		if err := msg.DecodePayload(&ready); err != nil {
			slog.Warn("bad ready_to_receive", "err", err)
			return
		}
		select {
		case s.ready <- ready:
		default:
			slog.Warn("ignoring extra ready_to_receive", "file", ready.FileName)
		}

	case webrtc.MessageTypeDeviceInfo:
		var info webrtc.DeviceInfoPayload
		if err := msg.DecodePayload(&info); err == nil {
			signalOnce(s.device, info)
		}

	case webrtc.MessageTypeDeclineReceive:
		signalOnce(s.declined, struct{}{})

	case webrtc.MessageTypeDownloadingDone:
		signalOnce(s.done, struct{}{})
	}
}

func signalOnce[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func (s *Sender) Files() []files.FileInfo {
	return s.files
}

// Device returns the receiver's device info, if it sent one.
func (s *Sender) Device() (webrtc.DeviceInfoPayload, bool) {
	select {
	case d := <-s.device:
		s.device <- d
		return d, true
	default:
		return webrtc.DeviceInfoPayload{}, false
	}
}

// WaitForConsent blocks until the receiver asks for the first file or
// declines.
func (s *Sender) WaitForConsent(ctx context.Context) (webrtc.ReadyToReceivePayload, error) {
	select {
	case ready := <-s.ready:
		return ready, nil
	case <-s.declined:
		return webrtc.ReadyToReceivePayload{}, ErrTransferDeclined
	case <-ctx.Done():
		return webrtc.ReadyToReceivePayload{}, ctx.Err()
	}
}

// Run streams files as the receiver requests them, starting with first.
func (s *Sender) Run(ctx context.Context, first webrtc.ReadyToReceivePayload, progress Progress) error {
	if progress == nil {
		progress = NopProgress{}
	}

	index := make(map[string]int, len(s.files))
	for i, f := range s.files {
		index[f.Name] = i
	}

	ready := first
	for sent := 0; sent < len(s.files); sent++ {
		if sent > 0 {
			select {
			case ready = <-s.ready:
			case <-s.declined:
				return ErrTransferDeclined
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		i, ok := index[ready.FileName]
		if !ok {
			return NewFileError("send", ready.FileName, ErrUnknownFile)
		}
		if err := s.sendOne(ctx, i, ready.Offset, progress); err != nil {
			progress.MarkFailed(i, err.Error())
			return err
		}
		progress.MarkComplete(i)
	}

	s.chunks.WaitForDrain(ctx)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(ConfirmTimeout):
		slog.Warn("receiver did not confirm completion")
		return nil
	}
}

func (s *Sender) sendOne(ctx context.Context, i int, offset uint64, progress Progress) error {
	f := s.files[i]
	file, err := os.Open(f.Path)
	if err != nil {
		return NewFileError("open", f.Name, err)
	}
	defer file.Close()

	if _, err := file.Seek(int64(offset), io.SeekStart); err != nil {
		return NewFileError("seek", f.Name, err)
	}

	return s.chunks.SendFile(ctx, file, f.Name, uint64(f.Size), offset, func(n uint64) {
		progress.UpdateProgress(i, int64(n))
	})
}
