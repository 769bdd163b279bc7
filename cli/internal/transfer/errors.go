package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrSignalingClosed  = errors.New("signaling connection closed")
	ErrTimeout          = errors.New("timeout")
	ErrChannelClosed    = errors.New("channel closed")
	ErrChannelNotOpen   = errors.New("channel not open")
	ErrTransferDeclined = errors.New("receiver declined the transfer")
	ErrBufferTimeout    = errors.New("buffer drain timeout")
	ErrUnknownFile      = errors.New("unknown file requested")
	ErrFilenameMismatch = errors.New("filename mismatch")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrConnectionFailed = errors.New("connection failed")
	ErrNoRecipient      = errors.New("no recipient")
	ErrInvalidRoomKey   = errors.New("invalid pairing key")
	ErrRoomFull         = errors.New("pairing key already used")
	ErrPairingExpired   = errors.New("pairing key expired")
)

// TransferError attaches the failed operation, and the file when there is
// one, to an underlying error.
type TransferError struct {
	Op      string
	File    string
	Err     error
	Details string
}

func (e *TransferError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
	case e.Details != "":
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *TransferError {
	return &TransferError{Op: op, Err: err}
}

func NewFileError(op, file string, err error) *TransferError {
	return &TransferError{Op: op, File: file, Err: err}
}

func WrapError(op string, err error, details string) *TransferError {
	return &TransferError{Op: op, Err: err, Details: details}
}
