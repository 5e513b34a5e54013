// Package wire implements the UTF-8 JSON frame format exchanged between
// litep2p nodes: Message envelopes and the StateType payloads carried by
// State messages. Decoding never returns an error to the caller: a
// malformed frame collapses to a sentinel value, the way the rest of this
// tree treats transport failures as typed results rather than exceptions.
package wire

import (
	"encoding/json"
	"math/big"
)

// Kind is the tag of a Message's payload.
type Kind string

const (
	KindOk         Kind = "Ok"
	KindState      Kind = "State"
	KindDistribute Kind = "Distribute"
	KindError      Kind = "Error"
)

// IngressFrameLimit and OutboundFrameLimit bound how many bytes a single
// connection will read before giving up on decoding a frame.
const (
	IngressFrameLimit  = 4096
	OutboundFrameLimit = 2048
)

// Message is the single envelope type exchanged over the wire. ID is kept
// at 128-bit precision (via math/big.Int) even though every producer in
// this tree only ever emits nanosecond epoch timestamps or small result
// codes, both of which fit comfortably under 64 bits, because the membership
// hash exchange protocol promises 128-bit round-trip fidelity and a
// future sender is free to use the full range.
type Message struct {
	ID      *big.Int `json:"id"`
	Sender  string   `json:"sender"`
	Kind    Kind     `json:"kind"`
	Payload []byte   `json:"payload"`
}

// Well-known outbound-client result codes. These are stable and
// load-bearing: the prober branches on IDConnectFailed specifically.
var (
	IDConnectFailed = big.NewInt(5)
	IDWriteFailed   = big.NewInt(8)
	IDReadFailed    = big.NewInt(9)
	IDEmptyReply    = big.NewInt(77)
)

// ErrorMessage builds the sentinel Error message carrying one of the
// outbound-client result codes.
func ErrorMessage(id *big.Int) Message {
	return Message{ID: id, Sender: "", Kind: KindError, Payload: nil}
}

// OkMessage builds the ingress server's acknowledgement reply.
func OkMessage(sender string) Message {
	return Message{ID: big.NewInt(0), Sender: sender, Kind: KindOk, Payload: nil}
}

// Encode serializes a Message to its wire form. Encoding a well-formed
// Message never fails in practice; the error return exists for API
// symmetry with Decode and for the (theoretical) case of a payload that
// cannot round-trip through JSON.
func Encode(m Message) ([]byte, error) {
	if m.ID == nil {
		m.ID = big.NewInt(0)
	}
	return json.Marshal(m)
}

// Decode parses a wire frame into a Message. Any failure, truncated
// JSON, wrong field types, a frame that isn't a JSON object at all,
// collapses to a Kind: Error message rather than propagating an error.
func Decode(b []byte) Message {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return ErrorMessage(nil)
	}
	if m.ID == nil {
		m.ID = big.NewInt(0)
	}
	return m
}

// StateTag discriminates the variant carried by a StateType.
type StateTag string

const (
	StateUnknown           StateTag = "Unknown"
	StatePing              StateTag = "Ping"
	StateControlNodeStatus StateTag = "ControlNodeStatus"
	StateNodeList          StateTag = "NodeList"
)

// StateType is the payload of a Kind: State Message. It mirrors an
// externally-tagged sum type: the zero-data Unknown variant encodes as
// the bare JSON string "Unknown"; the others encode as a single-key
// object, e.g. {"Ping":"<hash>"}.
type StateType struct {
	Tag             StateTag
	PingHash        string
	ControlNodeAddr string
	NodeListAddrs   []string
}

func Ping(hash string) StateType {
	return StateType{Tag: StatePing, PingHash: hash}
}

func ControlNodeStatus(addr string) StateType {
	return StateType{Tag: StateControlNodeStatus, ControlNodeAddr: addr}
}

func NodeList(addrs []string) StateType {
	return StateType{Tag: StateNodeList, NodeListAddrs: addrs}
}

func UnknownState() StateType {
	return StateType{Tag: StateUnknown}
}

func (s StateType) MarshalJSON() ([]byte, error) {
	switch s.Tag {
	case StatePing:
		return json.Marshal(map[string]string{"Ping": s.PingHash})
	case StateControlNodeStatus:
		return json.Marshal(map[string]string{"ControlNodeStatus": s.ControlNodeAddr})
	case StateNodeList:
		return json.Marshal(map[string][]string{"NodeList": s.NodeListAddrs})
	default:
		return json.Marshal(string(StateUnknown))
	}
}

func (s *StateType) UnmarshalJSON(b []byte) error {
	var bare string
	if err := json.Unmarshal(b, &bare); err == nil {
		*s = UnknownState()
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil || len(obj) != 1 {
		*s = UnknownState()
		return nil
	}

	if raw, ok := obj["Ping"]; ok {
		var hash string
		if json.Unmarshal(raw, &hash) == nil {
			*s = Ping(hash)
			return nil
		}
	}
	if raw, ok := obj["ControlNodeStatus"]; ok {
		var addr string
		if json.Unmarshal(raw, &addr) == nil {
			*s = ControlNodeStatus(addr)
			return nil
		}
	}
	if raw, ok := obj["NodeList"]; ok {
		var addrs []string
		if json.Unmarshal(raw, &addrs) == nil {
			*s = NodeList(addrs)
			return nil
		}
	}
	*s = UnknownState()
	return nil
}

// EncodeState serializes a StateType for use as a Message payload.
func EncodeState(s StateType) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		return []byte(`"Unknown"`)
	}
	return b
}

// DecodeState parses a Message payload into a StateType, collapsing any
// decode failure to StateUnknown.
func DecodeState(b []byte) StateType {
	var s StateType
	if err := json.Unmarshal(b, &s); err != nil {
		return UnknownState()
	}
	return s
}
