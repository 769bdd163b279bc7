package cmd

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
)

func TestParseRoomKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "123456", want: "123456"},
		{in: "123 456", want: "123456"},
		{in: "123-456", want: "123456"},
		{in: "000001", want: "000001"},
		{in: "12345", wantErr: true},
		{in: "1234567", wantErr: true},
		{in: "12a456", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRoomKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, transfer.ErrInvalidRoomKey) {
					t.Fatalf("parseRoomKey(%q) err = %v, want ErrInvalidRoomKey", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRoomKey(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseRoomKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewRoomKey(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]{6}$`)
	for range 50 {
		key, err := newRoomKey()
		if err != nil {
			t.Fatal(err)
		}
		if !digits.MatchString(key) {
			t.Fatalf("key %q is not six digits", key)
		}
		if _, err := parseRoomKey(key); err != nil {
			t.Fatalf("generated key %q does not parse: %v", key, err)
		}
	}
}

func TestMatchPeer(t *testing.T) {
	otter := signaling.Peer{
		ID:           "id-otter",
		Name:         signaling.Name{DisplayName: "Brave Otter", DeviceName: "Mac Chrome"},
		RTCSupported: true,
	}
	heron := signaling.Peer{
		ID:   "id-heron",
		Name: signaling.Name{DisplayName: "Calm Heron", DeviceName: "Linux"},
	}

	tests := []struct {
		target string
		peer   signaling.Peer
		want   bool
	}{
		{"", otter, true},
		{"", heron, false},
		{"id-heron", heron, true},
		{"brave otter", otter, true},
		{"linux", heron, true},
		{"Brave Otter", heron, false},
	}
	for _, tt := range tests {
		if got := matchPeer(tt.target)(tt.peer); got != tt.want {
			t.Errorf("matchPeer(%q)(%s) = %v, want %v", tt.target, tt.peer.ID, got, tt.want)
		}
	}
}

func TestAcceptSender(t *testing.T) {
	h := signaling.NewHandler(nil)

	if acceptSender(h, "") != nil {
		t.Error("empty --from should accept any sender")
	}

	accept := acceptSender(h, "id-otter")
	if !accept("id-otter") {
		t.Error("sender named by id rejected")
	}
	if accept("id-heron") {
		t.Error("unknown sender accepted")
	}
}

func TestKeyRoomError(t *testing.T) {
	tests := map[string]error{
		signaling.TypeKeyRoomInvalidRoomKey: transfer.ErrInvalidRoomKey,
		signaling.TypeKeyRoomFull:           transfer.ErrRoomFull,
		signaling.TypeKeyRoomDeleted:        transfer.ErrPairingExpired,
		signaling.TypeKeyRoomCreated:        nil,
		signaling.TypeKeyRoomRoomID:         nil,
	}
	for typ, want := range tests {
		if got := keyRoomError(signaling.KeyRoomEvent{Type: typ}); !errors.Is(got, want) {
			t.Errorf("keyRoomError(%s) = %v, want %v", typ, got, want)
		}
	}
}

func TestNewSessionKeepsCode(t *testing.T) {
	first := newSession("", "", "")
	if first.Code == "" || first.PeerID == "" {
		t.Fatalf("session not filled in: %+v", first)
	}

	second := newSession(first.Code, "room-1", "123456")
	if second.Code != first.Code {
		t.Errorf("code changed across reconnect: %q -> %q", first.Code, second.Code)
	}
	if second.PeerID == first.PeerID {
		t.Error("peer id reused")
	}
	if second.RoomID != "room-1" || second.RoomKey != "123456" {
		t.Errorf("room fields = %+v", second)
	}
}

func TestPeerTable(t *testing.T) {
	items := peerTable([]signaling.Peer{
		{ID: "a", Name: signaling.Name{DisplayName: "Brave Otter", DeviceName: "Mac"}, RTCSupported: true},
		{ID: "b", Name: signaling.Name{DeviceName: "Linux"}},
	})
	if len(items) != 2 {
		t.Fatalf("len = %d", len(items))
	}
	if items[0].Index != 1 || items[0].DisplayName != "Brave Otter" || !items[0].RTCSupported {
		t.Errorf("row 0 = %+v", items[0])
	}
	if items[1].DisplayName != "Linux" {
		t.Errorf("row 1 falls back to device name, got %+v", items[1])
	}
}

func TestPrepareTransferOptionsZip(t *testing.T) {
	opts, tempDir, cleanup, err := prepareTransferOptions(true, "")
	if err != nil {
		t.Fatal(err)
	}
	if opts.OutputDir != tempDir || !opts.ZipMode {
		t.Fatalf("opts = %+v, temp %q", opts, tempDir)
	}
	if _, err := os.Stat(tempDir); err != nil {
		t.Fatalf("temp dir missing: %v", err)
	}
	cleanup()
	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Errorf("temp dir survived cleanup: %v", err)
	}

	opts, tempDir, cleanup, err = prepareTransferOptions(false, "out")
	if err != nil || tempDir != "" || cleanup != nil || opts.OutputDir != "out" {
		t.Errorf("plain mode = %+v %q %v %v", opts, tempDir, cleanup != nil, err)
	}
}

func TestFinalizeTransferZips(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "downloads")

	if err := finalizeTransfer(out, src); err != nil {
		t.Fatal(err)
	}

	matches, err := filepath.Glob(filepath.Join(out, "keydrop-download-*.zip"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("zip not written: %v %v", matches, err)
	}
	zr, err := zip.OpenReader(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "a.txt" {
		t.Errorf("zip entries = %v", names)
	}
}
