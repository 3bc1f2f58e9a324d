package interactive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keepkey-host/kkcore/internal/protocol"
)

// scriptedTransport replays a fixed sequence of inbound messages and
// records every outbound message, enough to drive the Interactive
// Handler without a real device.
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

func TestExchangeButtonRequestAutoAcked(t *testing.T) {
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.ButtonRequest{Code: "confirm"},
		protocol.Features{Label: "KK"},
	}}
	sessions := NewTable()

	msg, err := Exchange(context.Background(), tr, sessions, "dev-1", protocol.GetFeatures{}, []protocol.Tag{protocol.TagFeatures}, false, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.Features{Label: "KK"}, msg)
	require.Equal(t, []protocol.Message{protocol.GetFeatures{}, protocol.ButtonAck{}}, tr.outbound)
}

func TestExchangePinPromptParksAndResumes(t *testing.T) {
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.PinMatrixRequest{Kind: protocol.PinCurrent},
		protocol.Address{Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"},
	}}
	sessions := NewTable()

	var captured PromptEvent
	emit := func(ev PromptEvent) { captured = ev }

	resultCh := make(chan protocol.Message, 1)
	errCh := make(chan error, 1)
	go func() {
		msg, err := Exchange(context.Background(), tr, sessions, "dev-1", protocol.GetAddress{}, []protocol.Tag{protocol.TagAddress}, false, emit)
		resultCh <- msg
		errCh <- err
	}()

	require.Eventually(t, func() bool { return captured.SessionID != "" }, time.Second, time.Millisecond)
	require.Equal(t, "dev-1", captured.DeviceID)
	require.Equal(t, KindPinCurrent, captured.Kind)

	ok := sessions.Answer(captured.SessionID, Answer{Text: "1234"})
	require.True(t, ok)

	msg := <-resultCh
	err := <-errCh
	require.NoError(t, err)
	require.Equal(t, protocol.Address{Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"}, msg)
	require.Equal(t, protocol.PinMatrixAck{EncodedPIN: "1234"}, tr.outbound[1])
}

func TestExchangePinPromptCancel(t *testing.T) {
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.PinMatrixRequest{Kind: protocol.PinCurrent},
	}}
	sessions := NewTable()

	var sessionID string
	emit := func(ev PromptEvent) { sessionID = ev.SessionID }

	resultCh := make(chan error, 1)
	go func() {
		_, err := Exchange(context.Background(), tr, sessions, "dev-1", protocol.GetAddress{}, []protocol.Tag{protocol.TagAddress}, false, emit)
		resultCh <- err
	}()

	require.Eventually(t, func() bool { return sessionID != "" }, time.Second, time.Millisecond)
	sessions.Cancel(sessionID)

	err := <-resultCh
	require.Error(t, err)
}

func TestExchangeBootloaderFallback(t *testing.T) {
	tr := &scriptedTransport{inbound: []protocol.Message{
		protocol.Failure{Code: protocol.FailureUnknownMessage},
		protocol.Features{Label: "KK", BootloaderMode: true, Version: "1.0.3"},
	}}
	sessions := NewTable()

	msg, err := Exchange(context.Background(), tr, sessions, "dev-1", protocol.GetFeatures{}, []protocol.Tag{protocol.TagFeatures}, true, nil)
	require.NoError(t, err)
	require.Equal(t, protocol.Features{Label: "KK", BootloaderMode: true, Version: "1.0.3"}, msg)
	require.Equal(t, protocol.Initialize{}, tr.outbound[1])
}
