package signing

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/kkerr"
	"github.com/keepkey-host/kkcore/internal/protocol"
	"github.com/keepkey-host/kkcore/internal/transport"
)

// Signature is one (input_index, signature) pair harvested from the
// device's TxRequest stream.
type Signature struct {
	InputIndex int
	Signature  []byte
}

// Result is what a completed signing dialogue returns to the caller.
type Result struct {
	RawTxHex   string
	Signatures []Signature
}

// Request is the input to Drive: the SignTx parameters plus the
// previous transactions the device may ask to verify against.
type Request struct {
	CoinName string
	Inputs   []protocol.TxInput
	Outputs  []protocol.TxOutput
	PrevTxs  map[string][]byte // keyed by hex txid, raw tx bytes
	Version  uint32
	LockTime uint32
}

// Drive presents the device with the SignTx message, then answers its
// TxRequest pull dialogue until TxFinished, never volunteering data
// except in direct response to a request and never assuming the device's
// request indices are monotonic. Interactive prompts arriving between
// TxRequests are resolved via the same session table and parking logic
// the Interactive Handler uses.
func Drive(ctx context.Context, t transport.Transport, sessions *interactive.Table, deviceID string, req Request, emit interactive.EmitFunc) (Result, error) {
	txMap, err := NewTxMap(req.Version, req.LockTime, req.Inputs, req.Outputs, req.PrevTxs)
	if err != nil {
		return Result{}, err
	}

	signTx := protocol.SignTx{
		CoinName:     req.CoinName,
		InputsCount:  uint32(len(req.Inputs)),
		OutputsCount: uint32(len(req.Outputs)),
		Version:      req.Version,
		LockTime:     req.LockTime,
	}
	if err := interactive.Send(ctx, t, signTx); err != nil {
		return Result{}, err
	}

	var signatures []Signature
	var rawParts [][]byte

	for {
		msg, err := interactive.Receive(ctx, t)
		if err != nil {
			return Result{}, err
		}

		if handled, herr := interactive.TryHandleInteractive(ctx, t, sessions, deviceID, msg, emit); handled {
			if herr != nil {
				return Result{}, herr
			}
			continue
		}

		switch m := msg.(type) {
		case protocol.Failure:
			return Result{}, kkerr.DeviceFail(m.Code.String(), fmt.Sprintf("device reported failure during signing: %s", m.Message))

		case protocol.TxRequest:
			if m.Serialized.HasSignature {
				signatures = append(signatures, Signature{
					InputIndex: int(m.Serialized.SignatureIndex),
					Signature:  m.Serialized.Signature,
				})
			}
			if m.Serialized.HasSerializedTx {
				rawParts = append(rawParts, m.Serialized.SerializedTx)
			}

			if m.RequestType == protocol.TxRequestFinished {
				return Result{
					RawTxHex:   concatHex(rawParts),
					Signatures: signatures,
				}, nil
			}

			ack, err := answerRequest(txMap, m)
			if err != nil {
				return Result{}, err
			}
			if err := interactive.Send(ctx, t, ack); err != nil {
				return Result{}, err
			}

		default:
			return Result{}, kkerr.New(kkerr.ProtocolError, "unexpected reply variant during signing dialogue")
		}
	}
}

// answerRequest builds the TxAck for one TxRequest, pulling exactly the
// slice the device asked for out of the TxMap. The device's
// request_index is never assumed to be monotonic or in any particular
// order.
func answerRequest(txMap TxMap, req protocol.TxRequest) (protocol.TxAck, error) {
	key := KeyFor(req.Details.TxHash)
	skeleton, ok := txMap[key]
	if !ok {
		return protocol.TxAck{}, kkerr.New(kkerr.ProtocolError, fmt.Sprintf("signing: device requested unknown transaction %q", key))
	}
	idx := int(req.Details.RequestIndex)

	switch req.RequestType {
	case protocol.TxRequestInput:
		if idx < 0 || idx >= len(skeleton.Inputs) {
			return protocol.TxAck{}, kkerr.New(kkerr.ProtocolError, fmt.Sprintf("signing: input index %d out of range for %q", idx, key))
		}
		return protocol.TxAck{Inputs: []protocol.TxInput{skeleton.Inputs[idx]}}, nil

	case protocol.TxRequestOutput:
		if key == unsignedKey {
			if idx < 0 || idx >= len(skeleton.Outputs) {
				return protocol.TxAck{}, kkerr.New(kkerr.ProtocolError, fmt.Sprintf("signing: output index %d out of range for %q", idx, key))
			}
			return protocol.TxAck{Outputs: []protocol.TxOutput{skeleton.Outputs[idx]}}, nil
		}
		if idx < 0 || idx >= len(skeleton.BinOutputs) {
			return protocol.TxAck{}, kkerr.New(kkerr.ProtocolError, fmt.Sprintf("signing: bin output index %d out of range for %q", idx, key))
		}
		return protocol.TxAck{BinOutputs: []protocol.TxOutputBin{skeleton.BinOutputs[idx]}}, nil

	case protocol.TxRequestMeta:
		meta := skeleton.Meta()
		return protocol.TxAck{Meta: &meta}, nil

	case protocol.TxRequestExtraData:
		offset := int(req.Details.ExtraDataOffset)
		length := int(req.Details.ExtraDataLen)
		if offset < 0 || offset+length > len(skeleton.ExtraData) {
			return protocol.TxAck{}, kkerr.New(kkerr.ProtocolError, fmt.Sprintf("signing: extra data range [%d:%d) out of bounds for %q", offset, offset+length, key))
		}
		return protocol.TxAck{ExtraData: skeleton.ExtraData[offset : offset+length]}, nil

	default:
		return protocol.TxAck{}, kkerr.New(kkerr.ProtocolError, "signing: unknown tx request type")
	}
}

func concatHex(parts [][]byte) string {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return hex.EncodeToString(buf)
}
