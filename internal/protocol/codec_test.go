package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	f, err := Encode(m)
	require.NoError(t, err)
	require.Equal(t, uint16(m.MessageTag()), f.Tag)

	// also exercise the full wire encode/decode, not just the payload codec
	wire := f.Encode()
	decodedFrame, n, err := DecodeFrame(wire)
	require.NoError(t, err)
	require.Equal(t, len(wire), n)

	decoded, err := Decode(decodedFrame)
	require.NoError(t, err)
	return decoded
}

func TestCodecFeaturesRoundTrip(t *testing.T) {
	m := Features{Label: "KK", Version: "7.10.0", BootloaderMode: true, VendorID: 0x2B24, ProductID: 2}
	got := roundTrip(t, m)
	require.Equal(t, m, got)
}

func TestCodecFailureRoundTrip(t *testing.T) {
	m := Failure{Code: FailureUnknownMessage, Message: "unknown"}
	got := roundTrip(t, m)
	require.Equal(t, m, got)
}

func TestCodecGetAddressRoundTrip(t *testing.T) {
	m := GetAddress{
		AddressNList: []uint32{0x8000002C, 0x80000000, 0x80000000, 0, 0},
		CoinName:     "Bitcoin",
		ScriptType:   "p2pkh",
		ShowDisplay:  true,
	}
	got := roundTrip(t, m)
	require.Equal(t, m, got)
}

func TestCodecSignTxRoundTrip(t *testing.T) {
	m := SignTx{CoinName: "Bitcoin", InputsCount: 1, OutputsCount: 2, Version: 1, LockTime: 0}
	got := roundTrip(t, m)
	require.Equal(t, m, got)
}

func TestCodecTxRequestRoundTrip(t *testing.T) {
	m := TxRequest{
		RequestType: TxRequestInput,
		Details: TxRequestDetails{
			RequestIndex: 0,
			TxHash:       "aabbcc",
		},
		Serialized: TxRequestSerialized{
			HasSerializedTx: true,
			SerializedTx:    []byte("aa"),
		},
	}
	got := roundTrip(t, m).(TxRequest)
	require.Equal(t, m.RequestType, got.RequestType)
	require.Equal(t, m.Details.RequestIndex, got.Details.RequestIndex)
	require.Equal(t, m.Details.TxHash, got.Details.TxHash)
	require.Equal(t, m.Serialized.SerializedTx, got.Serialized.SerializedTx)
}

func TestCodecTxAckRoundTrip(t *testing.T) {
	m := TxAck{
		Outputs: []TxOutput{{Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", Amount: 5000, ScriptType: "p2pkh"}},
	}
	got := roundTrip(t, m).(TxAck)
	require.Len(t, got.Outputs, 1)
	require.Equal(t, m.Outputs[0], got.Outputs[0])
}

func TestDecodeUnknownTagProducesFailure(t *testing.T) {
	f := Frame{Tag: 0xBEEF, Payload: nil}
	msg, err := Decode(f)
	require.NoError(t, err)
	failure, ok := msg.(Failure)
	require.True(t, ok, "unknown tag must decode to a synthetic Failure, got %T", msg)
	require.Equal(t, FailureOther, failure.Code)
	require.Contains(t, failure.Message, "unknown tag")
}

func TestRawMessagePassthrough(t *testing.T) {
	m := Raw{Tag: 999, Payload: []byte{1, 2, 3}}
	f, err := Encode(m)
	require.NoError(t, err)
	require.Equal(t, uint16(999), f.Tag)
	require.Equal(t, []byte{1, 2, 3}, f.Payload)
}
