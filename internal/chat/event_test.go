package chat

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeInbound_Message(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"message","message":"hi there","message_type":"image","attachment_url":"https://cdn.example/rex.jpg"}`))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if in.Type != FrameMessage || in.Message == nil || in.Typing != nil || in.Status != nil {
		t.Fatalf("wrong variant: %+v", in)
	}
	if in.Message.Body != "hi there" || in.Message.Type != "image" || in.Message.AttachmentURL != "https://cdn.example/rex.jpg" {
		t.Fatalf("payload mismatch: %+v", in.Message)
	}
}

func TestDecodeInbound_Typing(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"typing","typing":true}`))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if in.Type != FrameTyping || in.Typing == nil || !in.Typing.Typing {
		t.Fatalf("wrong variant: %+v", in)
	}
}

func TestDecodeInbound_Status(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"type":"message_status","message_id":"m1","status":" READ "}`))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	if in.Type != FrameStatus || in.Status == nil {
		t.Fatalf("wrong variant: %+v", in)
	}
	if in.Status.MessageID != "m1" || in.Status.Status != "read" {
		t.Fatalf("status not normalized: %+v", in.Status)
	}
}

func TestDecodeInbound_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `not json at all`},
		{"unknown type", `{"type":"selfdestruct"}`},
		{"missing type", `{"message":"hi"}`},
		{"status without id", `{"type":"message_status","status":"read"}`},
		{"status with bad value", `{"type":"message_status","message_id":"m1","status":"vanished"}`},
		{"status sent is not a client transition", `{"type":"message_status","message_id":"m1","status":"sent"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeInbound([]byte(tc.data)); !errors.Is(err, ErrMalformedFrame) {
				t.Fatalf("expected ErrMalformedFrame, got %v", err)
			}
		})
	}
}

func TestServerFrames_WireShape(t *testing.T) {
	raw, err := json.Marshal(NewConnectionEstablished("req-1", "u1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "connection_established" || m["conversation_id"] != "req-1" || m["user_id"] != "u1" {
		t.Fatalf("unexpected shape: %v", m)
	}

	raw, _ = json.Marshal(NewError("bad_thing", "it broke"))
	m = map[string]any{}
	_ = json.Unmarshal(raw, &m)
	if m["type"] != "error" || m["code"] != "bad_thing" || m["message"] != "it broke" {
		t.Fatalf("unexpected error frame: %v", m)
	}
}
