package signaling

import (
	"testing"
	"time"
)

func TestKeyRoomCreateThenFull(t *testing.T) {
	r := newTestRouter(t, nil)

	creator, creatorConn := connect(t, r, "peerid=a&roomid=lab&roomkey=123456")
	if got := creatorConn.ofType(t, TypeKeyRoomCreated); len(got) != 1 || got[0]["roomKey"] != "123456" {
		t.Fatalf("creator replies = %v, want key-room-created", got)
	}

	_, rivalConn := connect(t, r, "peerid=b&roomid=other&roomkey=123456")
	if got := rivalConn.ofType(t, TypeKeyRoomFull); len(got) != 1 || got[0]["roomKey"] != "123456" {
		t.Fatalf("rival replies = %v, want key-room-full", got)
	}
	if n := len(rivalConn.ofType(t, TypeKeyRoomCreated)); n != 0 {
		t.Fatalf("rival got %d key-room-created", n)
	}

	r.HandleMessage(creator, []byte(`{"type":"disconnect"}`))
	if r.KeyRooms().Exists("123456") {
		t.Fatal("key room survived its creator")
	}

	_, retryConn := connect(t, r, "peerid=c&roomid=third&roomkey=123456")
	if n := len(retryConn.ofType(t, TypeKeyRoomCreated)); n != 1 {
		t.Fatalf("retry got %d key-room-created, want 1", n)
	}
}

func TestKeyRoomInvalidKey(t *testing.T) {
	r := newTestRouter(t, nil)

	_, conn := connect(t, r, "peerid=a&roomid=null&roomkey=999999")
	got := conn.ofType(t, TypeKeyRoomInvalidRoomKey)
	if len(got) != 1 || got[0]["roomKey"] != "999999" {
		t.Fatalf("replies = %v, want key-room-invalid-room-key", got)
	}
	if r.KeyRooms().Len() != 0 {
		t.Fatal("a joiner created a key room")
	}
}

func TestKeyRoomHandOff(t *testing.T) {
	r := newTestRouter(t, nil)

	_, creatorConn := connect(t, r, "peerid=a&roomid=f00d-room&roomkey=424242")
	_, joinerConn := connect(t, r, "peerid=b&roomid=null&roomkey=42-42-42")
	_, secondConn := connect(t, r, "peerid=c&roomid=null&roomkey=424242")

	for _, conn := range []*fakeConn{joinerConn, secondConn} {
		got := conn.ofType(t, TypeKeyRoomRoomID)
		if len(got) != 1 || got[0]["roomId"] != "f00d-room" {
			t.Fatalf("joiner replies = %v, want the creator's room id", got)
		}
	}

	acks := creatorConn.ofType(t, TypeKeyRoomRoomIDReceived)
	if len(acks) != 2 || acks[0]["roomKey"] != "424242" {
		t.Fatalf("creator acks = %v, want two", acks)
	}
}

func TestKeyRoomJoinerLeaveIsNoop(t *testing.T) {
	r := newTestRouter(t, nil)

	connect(t, r, "peerid=a&roomid=lab&roomkey=555555")
	joiner, _ := connect(t, r, "peerid=b&roomid=null&roomkey=555555")

	if r.KeyRooms().Leave(joiner) {
		t.Fatal("joiner was a key room member")
	}
	if !r.KeyRooms().Exists("555555") {
		t.Fatal("joiner leaving deleted the key room")
	}
}

func TestKeyRoomExpires(t *testing.T) {
	reg := NewKeyRoomRegistry(20*time.Millisecond, nil)
	conn := &fakeConn{}
	creator := &Peer{ID: "a", RoomID: "lab", RoomKey: "123456", conn: conn}

	reg.Join(creator)

	deadline := time.Now().Add(2 * time.Second)
	for reg.Exists("123456") {
		if time.Now().After(deadline) {
			t.Fatal("key room never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := conn.ofType(t, TypeKeyRoomDeleted)
	if len(got) != 1 || got[0]["roomKey"] != "123456" {
		t.Fatalf("creator replies = %v, want one key-room-deleted", got)
	}
	if reg.Leave(creator) {
		t.Fatal("leave after expiry should be a no-op")
	}
}

func TestStaleExpiryKeepsNewKeyRoom(t *testing.T) {
	reg := NewKeyRoomRegistry(time.Hour, nil)
	first := &Peer{ID: "a", RoomID: "lab", RoomKey: "123456", conn: &fakeConn{}}
	reg.Join(first)

	reg.mu.Lock()
	old := reg.rooms["123456"]
	reg.mu.Unlock()

	reg.Leave(first)
	second := &Peer{ID: "b", RoomID: "lab", RoomKey: "123456", conn: &fakeConn{}}
	reg.Join(second)

	// A late fire for the first generation must not touch the second.
	reg.expire(old)
	if !reg.Exists("123456") {
		t.Fatal("stale expiry deleted the new key room")
	}
}

func TestKeyRoomLeaveCancelsExpiry(t *testing.T) {
	reg := NewKeyRoomRegistry(time.Hour, nil)
	creator := &Peer{ID: "a", RoomID: "lab", RoomKey: "123456", conn: &fakeConn{}}
	reg.Join(creator)

	reg.mu.Lock()
	room := reg.rooms["123456"]
	reg.mu.Unlock()

	reg.Leave(creator)
	if room.expiry.Stop() {
		t.Fatal("expiry timer was still pending after the key room was deleted")
	}
}
