package transfer

import (
	"strings"

	"github.com/BioHazard786/Keydrop/cli/internal/version"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc"
	pion "github.com/pion/webrtc/v4"
)

// Channel is the part of a pion data channel a transfer needs.
type Channel interface {
	Send(data []byte) error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnBufferedAmountLow(f func())
	ReadyState() pion.DataChannelState
}

var _ Channel = (*pion.DataChannel)(nil)

// TransferOptions controls where received files land.
type TransferOptions struct {
	OutputDir string
	ZipMode   bool
}

func SendTypedMessage(ch Channel, msgType string, payload any) error {
	if ch == nil {
		return ErrChannelNotOpen
	}
	data, err := webrtc.Encode(msgType, payload)
	if err != nil {
		return NewError("encode "+msgType, err)
	}
	return ch.Send(data)
}

func SendSimpleMessage(ch Channel, msgType string) error {
	return SendTypedMessage(ch, msgType, nil)
}

func SendDeviceInfo(ch Channel) error {
	return SendTypedMessage(ch, webrtc.MessageTypeDeviceInfo, webrtc.DeviceInfoPayload{
		DeviceName:    "CLI",
		DeviceVersion: strings.TrimPrefix(version.Version, "v"),
	})
}

func SendReadyToReceive(ch Channel, fileName string, offset uint64) error {
	return SendTypedMessage(ch, webrtc.MessageTypeReadyToReceive, webrtc.ReadyToReceivePayload{
		FileName: fileName,
		Offset:   offset,
	})
}

func SendFilesMetadata(ch Channel, metadata []webrtc.FileMetadata) error {
	return SendTypedMessage(ch, webrtc.MessageTypeFilesMetadata, metadata)
}

func ParseMessage(data []byte) (*webrtc.Message, error) {
	msg, err := webrtc.Decode(data)
	if err != nil {
		return nil, NewError("parse message", err)
	}
	return &msg, nil
}
