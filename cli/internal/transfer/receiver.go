package transfer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc"
)

// FileWriter writes one incoming file. Names from the peer are reduced to a
// bare file name and made unique inside the output directory.
type FileWriter struct {
	File          *os.File
	Path          string
	Metadata      webrtc.FileMetadata
	ReceivedBytes uint64
	Index         int
}

func NewFileWriter(meta webrtc.FileMetadata, index int, opts *TransferOptions) (*FileWriter, error) {
	dir := "."
	if opts != nil && opts.OutputDir != "" {
		dir = opts.OutputDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewFileError("create directory", dir, err)
		}
	}

	path := utils.GetUniqueFilename(filepath.Join(dir, utils.SafeFilename(meta.Name)))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, NewFileError("create file", meta.Name, err)
	}

	return &FileWriter{File: file, Path: path, Metadata: meta, Index: index}, nil
}

// WriteChunk writes data at offset, seeking when the chunk is not the next
// expected one.
func (w *FileWriter) WriteChunk(data []byte, offset uint64) error {
	if offset != w.ReceivedBytes {
		if _, err := w.File.Seek(int64(offset), 0); err != nil {
			return NewFileError("seek", w.Metadata.Name, err)
		}
		w.ReceivedBytes = offset
	}
	n, err := w.File.Write(data)
	w.ReceivedBytes += uint64(n)
	if err != nil {
		return NewFileError("write", w.Metadata.Name, err)
	}
	return nil
}

func (w *FileWriter) IsComplete() bool {
	return w.ReceivedBytes >= w.Metadata.Size
}

func (w *FileWriter) Close() error {
	return w.File.Close()
}

// Receiver drives the receiving half of the data channel protocol.
type Receiver struct {
	channel  Channel
	metadata chan []webrtc.FileMetadata
	chunks   chan webrtc.ChunkPayload
	closed   chan struct{}
}

func NewReceiver(ch Channel) *Receiver {
	return &Receiver{
		channel:  ch,
		metadata: make(chan []webrtc.FileMetadata, 1),
		chunks:   make(chan webrtc.ChunkPayload, 64),
		closed:   make(chan struct{}),
	}
}

// HandleMessage consumes one frame from the sender. Chunks block until
// Receive takes them, which pushes back on the channel.
func (r *Receiver) HandleMessage(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		slog.Warn("dropping frame", "err", err)
		return
	}

	switch msg.Type {
	case webrtc.MessageTypeFilesMetadata:
		var meta []webrtc.FileMetadata
		if err := msg.DecodePayload(&meta); err != nil {
			slog.Warn("bad files_metadata", "err", err)
			return
		}
		signalOnce(r.metadata, meta)

	case webrtc.MessageTypeChunk:
		var chunk webrtc.ChunkPayload
		if err := msg.DecodePayload(&chunk); err != nil {
			slog.Warn("bad chunk", "err", err)
			return
		}
		select {
		case r.chunks <- chunk:
		case <-r.closed:
		}
	}
}

// Close releases a HandleMessage blocked on a chunk nobody will read.
func (r *Receiver) Close() {
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
}

// Hello announces this device to the sender.
func (r *Receiver) Hello() error {
	return SendDeviceInfo(r.channel)
}

func (r *Receiver) WaitForMetadata(ctx context.Context) ([]webrtc.FileMetadata, error) {
	select {
	case meta := <-r.metadata:
		return meta, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Receiver) Decline() error {
	return SendSimpleMessage(r.channel, webrtc.MessageTypeDeclineReceive)
}

// Receive requests each file in turn and writes it under opts. It returns
// the paths written.
func (r *Receiver) Receive(ctx context.Context, metas []webrtc.FileMetadata, opts *TransferOptions, progress Progress) ([]string, error) {
	if progress == nil {
		progress = NopProgress{}
	}

	paths := make([]string, 0, len(metas))
	for i, meta := range metas {
		path, err := r.receiveOne(ctx, i, meta, opts, progress)
		if err != nil {
			progress.MarkFailed(i, err.Error())
			return paths, err
		}
		progress.MarkComplete(i)
		paths = append(paths, path)
	}

	if err := SendSimpleMessage(r.channel, webrtc.MessageTypeDownloadingDone); err != nil {
		slog.Warn("failed to confirm completion", "err", err)
	}
	return paths, nil
}

func (r *Receiver) receiveOne(ctx context.Context, i int, meta webrtc.FileMetadata, opts *TransferOptions, progress Progress) (string, error) {
	w, err := NewFileWriter(meta, i, opts)
	if err != nil {
		return "", err
	}
	defer w.Close()

	if err := SendReadyToReceive(r.channel, meta.Name, 0); err != nil {
		return "", NewFileError("request", meta.Name, err)
	}

	for {
		select {
		case chunk := <-r.chunks:
			if chunk.FileName != meta.Name {
				return "", WrapError("receive", ErrFilenameMismatch, chunk.FileName)
			}
			if err := w.WriteChunk(chunk.Bytes, chunk.Offset); err != nil {
				return "", err
			}
			progress.UpdateProgress(i, int64(w.ReceivedBytes))
			if chunk.Final || w.IsComplete() {
				return w.Path, nil
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
