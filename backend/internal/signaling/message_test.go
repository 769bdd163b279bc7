package signaling

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Inbound
	}{
		{"disconnect", `{"type":"disconnect"}`, Disconnect{}},
		{"pong", `{"type":"pong"}`, Pong{}},
		{"no recipient", `{"type":"offer","sdp":"x"}`, Ignored{Type: "offer"}},
		{"empty recipient", `{"type":"offer","to":""}`, Ignored{Type: "offer"}},
		{"numeric recipient", `{"type":"offer","to":7}`, Ignored{Type: "offer"}},
		{"untyped", `{"hello":1}`, Ignored{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInbound([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseInbound: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseInboundMalformed(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[1,2]`, `"text"`, `null`, `{"type":`} {
		if _, err := ParseInbound([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseInbound(%q) err = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestRelayStamp(t *testing.T) {
	msg, err := ParseInbound([]byte(`{"type":"signal","to":"b","sender":"spoofed","ice":{"candidate":"c"}}`))
	if err != nil {
		t.Fatalf("ParseInbound: %v", err)
	}
	relay, ok := msg.(Relay)
	if !ok {
		t.Fatalf("got %T, want Relay", msg)
	}
	if relay.To != "b" {
		t.Fatalf("To = %q", relay.To)
	}

	data, err := relay.Stamp("a")
	if err != nil {
		t.Fatalf("Stamp: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"type":   "signal",
		"sender": "a",
		"ice":    map[string]any{"candidate": "c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("stamped = %v, want %v", got, want)
	}
}
