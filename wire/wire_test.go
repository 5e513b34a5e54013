package wire

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{ID: big.NewInt(123456789), Sender: "127.0.0.1:7001", Kind: KindDistribute, Payload: []byte("hello")}

	b, err := Encode(m)
	require.NoError(t, err)

	got := Decode(b)
	require.Equal(t, m.Sender, got.Sender)
	require.Equal(t, m.Kind, got.Kind)
	require.Equal(t, m.Payload, got.Payload)
	require.Equal(t, 0, m.ID.Cmp(got.ID))
}

func TestEncodeDecodeRoundTripAt128BitPrecision(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 100) // well beyond 2^64
	m := Message{ID: huge, Sender: "127.0.0.1:7001", Kind: KindState, Payload: []byte("x")}

	b, err := Encode(m)
	require.NoError(t, err)

	got := Decode(b)
	require.Equal(t, 0, huge.Cmp(got.ID), "id must survive round-trip beyond 64-bit precision")
}

func TestDecodeMalformedNeverPanics(t *testing.T) {
	got := Decode([]byte("not json at all{{{"))
	require.Equal(t, KindError, got.Kind)
}

func TestDecodeTruncatedJSON(t *testing.T) {
	full, err := Encode(Message{ID: big.NewInt(1), Sender: "a", Kind: KindState, Payload: []byte("x")})
	require.NoError(t, err)

	truncated := full[:len(full)/2]
	got := Decode(truncated)
	require.Equal(t, KindError, got.Kind)
}

func TestStateTypeWireShapes(t *testing.T) {
	require.Equal(t, `{"Ping":"abcde"}`, string(EncodeState(Ping("abcde"))))
	require.Equal(t, `{"ControlNodeStatus":"127.0.0.1:7002"}`, string(EncodeState(ControlNodeStatus("127.0.0.1:7002"))))
	require.Equal(t, `{"NodeList":["a","b"]}`, string(EncodeState(NodeList([]string{"a", "b"}))))
	require.Equal(t, `"Unknown"`, string(EncodeState(UnknownState())))
}

func TestStateTypeRoundTrip(t *testing.T) {
	cases := []StateType{
		Ping("hash"),
		ControlNodeStatus("127.0.0.1:7003"),
		NodeList([]string{"127.0.0.1:7001", "127.0.0.1:7002"}),
		UnknownState(),
	}
	for _, c := range cases {
		got := DecodeState(EncodeState(c))
		require.Equal(t, c, got)
	}
}

func TestDecodeStateMalformedYieldsUnknown(t *testing.T) {
	got := DecodeState([]byte("{garbage"))
	require.Equal(t, StateUnknown, got.Tag)
}
