package signing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/kkerr"
	"github.com/keepkey-host/kkcore/internal/protocol"
)

type scriptedTransport struct {
	inbound  []protocol.Message
	outbound []protocol.Message
}

func (s *scriptedTransport) Write(ctx context.Context, frame []byte) error {
	f, _, err := protocol.DecodeFrame(frame)
	if err != nil {
		return err
	}
	msg, err := protocol.Decode(f)
	if err != nil {
		return err
	}
	s.outbound = append(s.outbound, msg)
	return nil
}

func (s *scriptedTransport) Read(ctx context.Context) ([]byte, error) {
	if len(s.inbound) == 0 {
		return nil, context.DeadlineExceeded
	}
	next := s.inbound[0]
	s.inbound = s.inbound[1:]
	frame, err := protocol.Encode(next)
	if err != nil {
		return nil, err
	}
	return frame.Encode(), nil
}

func (s *scriptedTransport) Reset(ctx context.Context) error { return nil }
func (s *scriptedTransport) Close() error                    { return nil }

func buildSimplePrevTx() []byte {
	var buf []byte
	buf = append(buf, le32(1)...)
	buf = append(buf, 0x01) // 1 input
	buf = append(buf, make([]byte, 32)...)
	buf = append(buf, le32(0)...)
	buf = append(buf, 0x00)
	buf = append(buf, le32(0xFFFFFFFF)...)
	buf = append(buf, 0x01) // 1 output
	buf = append(buf, le64(9999)...)
	buf = append(buf, 0x00)
	buf = append(buf, le32(0)...)
	return buf
}

// TestDriveHappyPath reproduces the seed scenario: the device pulls
// TxMeta for the unsigned tx, TxInput for input 0, then TxMeta/TxInput/
// TxOutput for a previous transaction, then TxOutput for the unsigned
// tx, then emits serialized tx fragments and a signature before
// finishing.
func TestDriveHappyPath(t *testing.T) {
	prevTxID := "aa11000000000000000000000000000000000000000000000000000000000000"
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.TxRequest{RequestType: protocol.TxRequestMeta, Details: protocol.TxRequestDetails{TxHash: ""}},
		protocol.TxRequest{RequestType: protocol.TxRequestInput, Details: protocol.TxRequestDetails{TxHash: "", RequestIndex: 0}},
		protocol.TxRequest{RequestType: protocol.TxRequestMeta, Details: protocol.TxRequestDetails{TxHash: prevTxID}},
		protocol.TxRequest{RequestType: protocol.TxRequestInput, Details: protocol.TxRequestDetails{TxHash: prevTxID, RequestIndex: 0}},
		protocol.TxRequest{RequestType: protocol.TxRequestOutput, Details: protocol.TxRequestDetails{TxHash: prevTxID, RequestIndex: 0}},
		protocol.TxRequest{
			RequestType: protocol.TxRequestOutput,
			Details:     protocol.TxRequestDetails{TxHash: "", RequestIndex: 0},
			Serialized: protocol.TxRequestSerialized{
				HasSerializedTx: true,
				SerializedTx:    []byte{0xaa},
			},
		},
		protocol.TxRequest{
			RequestType: protocol.TxRequestFinished,
			Serialized: protocol.TxRequestSerialized{
				HasSignature:    true,
				SignatureIndex:  0,
				Signature:       []byte{0xcc},
				HasSerializedTx: true,
				SerializedTx:    []byte{0xbb},
			},
		},
	}}

	req := Request{
		CoinName: "Bitcoin",
		Inputs: []protocol.TxInput{
			{PrevHash: make([]byte, 32), PrevIndex: 0, Sequence: 0xFFFFFFFF},
		},
		Outputs: []protocol.TxOutput{
			{Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", Amount: 9000},
		},
		PrevTxs: map[string][]byte{prevTxID: buildSimplePrevTx()},
	}

	sessions := interactive.NewTable()
	result, err := Drive(context.Background(), tr, sessions, "dev-1", req, nil)
	require.NoError(t, err)
	require.Equal(t, "aabb", result.RawTxHex)
	require.Equal(t, []Signature{{InputIndex: 0, Signature: []byte{0xcc}}}, result.Signatures)
}

func TestDriveUnknownTxHashFails(t *testing.T) {
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.TxRequest{RequestType: protocol.TxRequestInput, Details: protocol.TxRequestDetails{TxHash: "deadbeef", RequestIndex: 0}},
	}}
	req := Request{
		Inputs:  []protocol.TxInput{{PrevHash: make([]byte, 32)}},
		Outputs: []protocol.TxOutput{{Address: "addr", Amount: 1}},
	}
	sessions := interactive.NewTable()
	_, err := Drive(context.Background(), tr, sessions, "dev-1", req, nil)
	require.Error(t, err)
}

func TestDriveDeviceFailureAborts(t *testing.T) {
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.Failure{Code: protocol.FailureSyntaxError, Message: "bad tx"},
	}}
	req := Request{
		Inputs:  []protocol.TxInput{{PrevHash: make([]byte, 32)}},
		Outputs: []protocol.TxOutput{{Address: "addr", Amount: 1}},
	}
	sessions := interactive.NewTable()
	_, err := Drive(context.Background(), tr, sessions, "dev-1", req, nil)
	require.Error(t, err)
	kind, ok := kkerr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kkerr.DeviceFailure, kind)
}
