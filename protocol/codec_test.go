package protocol

import (
	"encoding/json"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestDecodeUserInput(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"userInput","data":{"isMovingUp":true,"isMovingDown":false}}`))
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Event != EvUserInput {
		t.Fatalf("event = %q, want %q", env.Event, EvUserInput)
	}
	in, err := DecodePayload[UserInput](env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !in.IsMovingUp || in.IsMovingDown {
		t.Fatalf("payload = %+v", in)
	}
}

func TestDecodeRejectsBadMessages(t *testing.T) {
	for _, raw := range []string{"", "{", `{"data":{}}`} {
		if _, err := DecodeEnvelope([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestEmptyPayloadIsZeroValue(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"userLoaded"}`))
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if _, err := DecodePayload[struct{}](env); err != nil {
		t.Fatalf("decode empty payload: %v", err)
	}
}

func TestEncodeAllCodecs(t *testing.T) {
	payload := QueueUpdate{Type: "classicPong", Queued: true}

	b, err := Encode(CodecJSON, EvQueueUpdate, payload)
	if err != nil {
		t.Fatalf("json encode: %v", err)
	}
	var js struct {
		Event string      `json:"event"`
		Data  QueueUpdate `json:"data"`
	}
	if err := json.Unmarshal(b, &js); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if js.Event != EvQueueUpdate || js.Data != payload {
		t.Fatalf("json roundtrip gave %+v", js)
	}

	b, err = Encode(CodecMsgPack, EvQueueUpdate, payload)
	if err != nil {
		t.Fatalf("msgpack encode: %v", err)
	}
	var mp struct {
		Event string      `msgpack:"event"`
		Data  QueueUpdate `msgpack:"data"`
	}
	if err := msgpack.Unmarshal(b, &mp); err != nil {
		t.Fatalf("msgpack decode: %v", err)
	}
	if mp.Event != EvQueueUpdate || mp.Data != payload {
		t.Fatalf("msgpack roundtrip gave %+v", mp)
	}

	b, err = Encode(CodecProtobuf, EvQueueUpdate, payload)
	if err != nil {
		t.Fatalf("protobuf encode: %v", err)
	}
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		t.Fatalf("protobuf decode: %v", err)
	}
	m := s.AsMap()
	if m["event"] != EvQueueUpdate {
		t.Fatalf("protobuf event = %v", m["event"])
	}
	data, ok := m["data"].(map[string]any)
	if !ok || data["type"] != "classicPong" || data["queued"] != true {
		t.Fatalf("protobuf data = %v", m["data"])
	}
}

func TestEncodeNeedsEventName(t *testing.T) {
	if _, err := Encode(CodecJSON, "", nil); err == nil {
		t.Fatalf("expected error for missing event name")
	}
}

func TestParseCodec(t *testing.T) {
	tests := map[string]Codec{
		"":         CodecJSON,
		"json":     CodecJSON,
		"msgpack":  CodecMsgPack,
		"protobuf": CodecProtobuf,
		"xml":      CodecJSON,
	}
	for in, want := range tests {
		if got := ParseCodec(in); got != want {
			t.Fatalf("ParseCodec(%q) = %q, want %q", in, got, want)
		}
	}
	if CodecJSON.Binary() || !CodecMsgPack.Binary() {
		t.Fatalf("binary flags wrong")
	}
}
