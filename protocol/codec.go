package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Codec selects how outbound messages are serialized for one connection.
// Inbound messages are always JSON text.
type Codec string

const (
	CodecJSON     Codec = "json"
	CodecMsgPack  Codec = "msgpack"
	CodecProtobuf Codec = "protobuf"
)

// ParseCodec maps a query value to a codec, defaulting to JSON.
func ParseCodec(s string) Codec {
	switch Codec(s) {
	case CodecMsgPack:
		return CodecMsgPack
	case CodecProtobuf:
		return CodecProtobuf
	}
	return CodecJSON
}

// Binary reports whether frames must be sent as binary websocket messages.
func (c Codec) Binary() bool {
	return c != CodecJSON
}

type outbound struct {
	Event string `json:"event" msgpack:"event"`
	Data  any    `json:"data,omitempty" msgpack:"data,omitempty"`
}

func Encode(c Codec, event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("trying to encode message without event name")
	}
	msg := outbound{Event: event, Data: payload}
	switch c {
	case CodecMsgPack:
		return msgpack.Marshal(msg)
	case CodecProtobuf:
		return encodeProto(msg)
	default:
		return json.Marshal(msg)
	}
}

// encodeProto goes through JSON so the generic Struct sees only plain maps,
// slices and scalars.
func encodeProto(msg outbound) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("building protobuf struct: %w", err)
	}
	return proto.Marshal(s)
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("empty message")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	if e.Event == "" {
		return Envelope{}, fmt.Errorf("message has no event name")
	}
	return e, nil
}

// DecodePayload unpacks the envelope data into T. An empty payload yields
// the zero value, since several events carry none.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	err := json.Unmarshal(env.Data, &out)
	return out, err
}
