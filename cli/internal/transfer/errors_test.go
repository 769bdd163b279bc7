package transfer

import (
	"errors"
	"testing"
)

func TestTransferErrorFormatting(t *testing.T) {
	tests := []struct {
		err  *TransferError
		want string
	}{
		{NewError("connect", ErrTimeout), "connect: timeout"},
		{NewFileError("write", "a.txt", ErrChannelClosed), "write a.txt: channel closed"},
		{WrapError("wait", ErrTimeout, "no answer"), "wait: timeout (no answer)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestTransferErrorUnwrap(t *testing.T) {
	var err error = NewError("send files", NewFileError("send", "a", ErrTransferDeclined))
	if !errors.Is(err, ErrTransferDeclined) {
		t.Fatal("errors.Is lost the sentinel")
	}
	var te *TransferError
	if !errors.As(err, &te) || te.Op != "send files" {
		t.Fatalf("errors.As = %+v", te)
	}
}
