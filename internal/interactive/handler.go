package interactive

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/keepkey-host/kkcore/internal/kkerr"
	"github.com/keepkey-host/kkcore/internal/protocol"
	"github.com/keepkey-host/kkcore/internal/transport"
)

// EmitFunc notifies the external UI collaborator that a Command has
// parked on an interactive prompt.
type EmitFunc func(PromptEvent)

// Exchange sends initial over t, then loops on the reply: button requests
// are acknowledged automatically, PIN/passphrase requests suspend the
// exchange and wait on the session table until the caller answers via
// Table.Answer or Table.Cancel, and any reply whose tag is in
// expectedTags is returned as the final result. allowBootloaderFallback
// enables the GetFeatures-on-old-bootloader special case: a
// Failure{UnknownMessage} reply to the very first message is retried
// once as Initialize.
func Exchange(ctx context.Context, t transport.Transport, sessions *Table, deviceID string, initial protocol.Message, expectedTags []protocol.Tag, allowBootloaderFallback bool, emit EmitFunc) (protocol.Message, error) {
	if err := Send(ctx, t, initial); err != nil {
		return nil, err
	}

	first := true
	for {
		msg, err := Receive(ctx, t)
		if err != nil {
			return nil, err
		}

		if handled, herr := TryHandleInteractive(ctx, t, sessions, deviceID, msg, emit); handled || herr != nil {
			if herr != nil {
				return nil, herr
			}
			first = false
			continue
		}

		switch m := msg.(type) {
		case protocol.Failure:
			if first && allowBootloaderFallback && m.Code == protocol.FailureUnknownMessage {
				first = false
				if err := Send(ctx, t, protocol.Initialize{}); err != nil {
					return nil, err
				}
				continue
			}
			return nil, failureToError(m)

		default:
			if tagExpected(msg.MessageTag(), expectedTags) {
				return msg, nil
			}
			return nil, kkerr.New(kkerr.ProtocolError, "unexpected reply variant from device")
		}
	}
}

// TryHandleInteractive resolves msg if it is one of the three interactive
// prompt variants (auto-acking a button request, or parking on the
// session table for PIN/passphrase and sending the resulting Ack), and
// reports whether it did. Callers that are not already looping through
// Exchange — the signing dialogue in particular, where prompts can arrive
// between TxRequests — call this directly to share the same parking
// logic.
func TryHandleInteractive(ctx context.Context, t transport.Transport, sessions *Table, deviceID string, msg protocol.Message, emit EmitFunc) (bool, error) {
	switch m := msg.(type) {
	case protocol.ButtonRequest:
		return true, Send(ctx, t, protocol.ButtonAck{})

	case protocol.PinMatrixRequest:
		ans, err := park(ctx, t, sessions, deviceID, kindForPin(m.Kind), emit)
		if err != nil {
			return true, err
		}
		return true, Send(ctx, t, protocol.PinMatrixAck{EncodedPIN: ans.Text})

	case protocol.PassphraseRequest:
		ans, err := park(ctx, t, sessions, deviceID, KindPassphrase, emit)
		if err != nil {
			return true, err
		}
		return true, Send(ctx, t, protocol.PassphraseAck{Text: ans.Text})

	default:
		return false, nil
	}
}

// park registers a pending session, emits the prompt event, and blocks
// until the caller answers or ctx is done. A context cancellation sends
// Cancel to the device and returns a Cancelled error, same as an explicit
// UI cancel.
func park(ctx context.Context, t transport.Transport, sessions *Table, deviceID string, kind Kind, emit EmitFunc) (Answer, error) {
	requestID := newRequestID()
	sessionID, answerCh := sessions.Register(deviceID, requestID, kind)
	if emit != nil {
		emit(PromptEvent{SessionID: sessionID, DeviceID: deviceID, RequestID: requestID, Kind: kind})
	}

	select {
	case ans := <-answerCh:
		if ans.Cancel {
			_ = Send(ctx, t, protocol.Cancel{})
			return Answer{}, kkerr.New(kkerr.Cancelled, "interactive prompt cancelled")
		}
		return ans, nil
	case <-ctx.Done():
		sessions.Destroy(sessionID)
		_ = Send(ctx, t, protocol.Cancel{})
		return Answer{}, kkerr.Wrap(kkerr.Cancelled, "interactive prompt context done", ctx.Err())
	}
}

// Send encodes and writes one message, wrapping encode errors in the
// ProtocolError kind. Errors from the transport's Write are returned as
// the transport reported them.
func Send(ctx context.Context, t transport.Transport, m protocol.Message) error {
	frame, err := protocol.Encode(m)
	if err != nil {
		return kkerr.Wrap(kkerr.ProtocolError, "encode message", err)
	}
	return t.Write(ctx, frame.Encode())
}

// Receive reads and decodes one message.
func Receive(ctx context.Context, t transport.Transport) (protocol.Message, error) {
	buf, err := t.Read(ctx)
	if err != nil {
		return nil, err
	}
	frame, _, err := protocol.DecodeFrame(buf)
	if err != nil {
		return nil, kkerr.Wrap(kkerr.ProtocolError, "decode frame", err)
	}
	msg, err := protocol.Decode(frame)
	if err != nil {
		return nil, kkerr.Wrap(kkerr.ProtocolError, "decode message", err)
	}
	return msg, nil
}

func failureToError(f protocol.Failure) error {
	switch f.Code {
	case protocol.FailureActionCancelled:
		return kkerr.New(kkerr.Cancelled, f.Message)
	default:
		return kkerr.DeviceFail(f.Code.String(), f.Message)
	}
}

// tagExpected reports whether tag is acceptable as Exchange's final
// result. An empty expected list means "any non-interactive,
// non-failure reply is acceptable" — used by SendRaw, which has no
// single canonical reply variant.
func tagExpected(tag protocol.Tag, expected []protocol.Tag) bool {
	if len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if tag == e {
			return true
		}
	}
	return false
}

func kindForPin(k protocol.PinMatrixRequestKind) Kind {
	switch k {
	case protocol.PinNewFirst:
		return KindPinNewFirst
	case protocol.PinNewSecond:
		return KindPinNewSecond
	default:
		return KindPinCurrent
	}
}

func newRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
