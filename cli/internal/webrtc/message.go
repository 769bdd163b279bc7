// Package webrtc defines the frames exchanged over the file transfer data
// channel. Frames are msgpack maps so browser clients can decode them.
package webrtc

import "github.com/vmihailenco/msgpack/v5"

// DataChannelLabel names the single ordered channel carrying a transfer.
const DataChannelLabel = "file-transfer"

// Frame types.
const (
	MessageTypeFilesMetadata   = "files_metadata"
	MessageTypeDeviceInfo      = "device_info"
	MessageTypeReadyToReceive  = "ready_to_receive"
	MessageTypeChunk           = "chunk"
	MessageTypeDownloadingDone = "downloading_done"
	MessageTypeDeclineReceive  = "decline_receive"
)

type FileMetadata struct {
	Name string `msgpack:"name"`
	Size uint64 `msgpack:"size"`
	Type string `msgpack:"type"`
}

// Message is the envelope of every frame. Payload stays encoded until the
// handler knows which type to decode it into.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// DeviceInfoPayload is sent by the receiver when the channel opens.
type DeviceInfoPayload struct {
	DeviceName    string `msgpack:"deviceName"`
	DeviceVersion string `msgpack:"deviceVersion"`
}

// ReadyToReceivePayload asks the sender to stream one file from Offset.
type ReadyToReceivePayload struct {
	FileName string `msgpack:"fileName"`
	Offset   uint64 `msgpack:"offset"`
}

type ChunkPayload struct {
	FileName string `msgpack:"fileName"`
	Offset   uint64 `msgpack:"offset"`
	Bytes    []byte `msgpack:"bytes"`
	Final    bool   `msgpack:"final"`
}

func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage encodes payload into a frame of type t. A nil payload yields
// a bare frame.
func NewMessage(t string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: t}, nil
	}
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// Encode builds and marshals a frame in one step.
func Encode(t string, payload any) ([]byte, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

func Decode(data []byte) (Message, error) {
	var msg Message
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}
