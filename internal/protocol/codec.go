package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encode serializes a Message into a Frame-ready payload: tag + protobuf
// wire-encoded fields, equivalent to the schema the real device firmware
// speaks.
func Encode(m Message) (Frame, error) {
	if raw, ok := m.(Raw); ok {
		return Frame{Tag: uint16(raw.Tag), Payload: raw.Payload}, nil
	}
	payload, err := marshalPayload(m)
	if err != nil {
		return Frame{}, fmt.Errorf("protocol: encode %T: %w", m, err)
	}
	return Frame{Tag: uint16(m.MessageTag()), Payload: payload}, nil
}

// Decode dispatches a Frame to its typed Message by tag. An unknown tag
// produces a synthetic Failure with code FailureOther and a message naming
// the tag, rather than being silently dropped; that Failure carries no
// ProtocolError classification of its own.
func Decode(f Frame) (Message, error) {
	tag := Tag(f.Tag)
	switch tag {
	case TagInitialize:
		return Initialize{}, nil
	case TagGetFeatures:
		return GetFeatures{}, nil
	case TagFeatures:
		return unmarshalFeatures(f.Payload)
	case TagFailure:
		return unmarshalFailure(f.Payload)
	case TagButtonRequest:
		return unmarshalButtonRequest(f.Payload)
	case TagButtonAck:
		return ButtonAck{}, nil
	case TagPinMatrixRequest:
		return unmarshalPinMatrixRequest(f.Payload)
	case TagPinMatrixAck:
		return unmarshalPinMatrixAck(f.Payload)
	case TagPassphraseRequest:
		return PassphraseRequest{}, nil
	case TagPassphraseAck:
		return unmarshalPassphraseAck(f.Payload)
	case TagCancel:
		return Cancel{}, nil
	case TagSuccess:
		return unmarshalSuccess(f.Payload)
	case TagGetAddress:
		return unmarshalGetAddress(f.Payload)
	case TagAddress:
		return unmarshalAddress(f.Payload)
	case TagSignTx:
		return unmarshalSignTx(f.Payload)
	case TagTxRequest:
		return unmarshalTxRequest(f.Payload)
	case TagTxAck:
		return unmarshalTxAck(f.Payload)
	case TagFirmwareErase:
		return FirmwareErase{}, nil
	case TagFirmwareUpload:
		return unmarshalFirmwareUpload(f.Payload)
	default:
		return Failure{Code: FailureOther, Message: fmt.Sprintf("unknown tag %d", f.Tag)}, nil
	}
}

func marshalPayload(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Initialize, GetFeatures, ButtonAck, PassphraseRequest, Cancel, FirmwareErase:
		return nil, nil
	case Features:
		return marshalFeatures(v), nil
	case Failure:
		return marshalFailure(v), nil
	case ButtonRequest:
		return marshalButtonRequest(v), nil
	case PinMatrixRequest:
		return marshalPinMatrixRequest(v), nil
	case PinMatrixAck:
		return marshalPinMatrixAck(v), nil
	case PassphraseAck:
		return marshalPassphraseAck(v), nil
	case Success:
		return marshalSuccess(v), nil
	case GetAddress:
		return marshalGetAddress(v), nil
	case Address:
		return marshalAddress(v), nil
	case SignTx:
		return marshalSignTx(v), nil
	case TxRequest:
		return marshalTxRequest(v), nil
	case TxAck:
		return marshalTxAck(v), nil
	case FirmwareUpload:
		return marshalFirmwareUpload(v), nil
	default:
		return nil, fmt.Errorf("no marshaller for %T", m)
	}
}

// --- field helpers ---

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarintField(b, num, 1)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendSubmessageField(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func appendPackedVarints(b []byte, num protowire.Number, vs []uint32) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	return appendSubmessageField(b, num, packed)
}

// consumeFields walks a payload and calls visit once per field, in wire
// order, with the field number, wire type, and the bytes that follow the
// tag; visit returns how many of those bytes the field's value used.
func consumeFields(b []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("protocol: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		consumed, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if consumed < 0 || consumed > len(b) {
			return fmt.Errorf("protocol: bad field body for field %d", num)
		}
		b = b[consumed:]
	}
	return nil
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("protocol: bad varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("protocol: bad bytes: %w", protowire.ParseError(n))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

func unpackVarints(b []byte) ([]uint32, error) {
	var out []uint32
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("protocol: bad packed varint: %w", protowire.ParseError(n))
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out, nil
}

// --- Features ---

func marshalFeatures(f Features) []byte {
	var b []byte
	b = appendStringField(b, 1, f.Label)
	b = appendStringField(b, 2, f.Version)
	b = appendBoolField(b, 3, f.BootloaderMode)
	b = appendVarintField(b, 4, uint64(f.VendorID))
	b = appendVarintField(b, 5, uint64(f.ProductID))
	return b
}

func unmarshalFeatures(b []byte) (Features, error) {
	var f Features
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			f.Label = string(v)
			return n, nil
		case 2:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			f.Version = string(v)
			return n, nil
		case 3:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			f.BootloaderMode = v != 0
			return n, nil
		case 4:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			f.VendorID = uint16(v)
			return n, nil
		case 5:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			f.ProductID = uint16(v)
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return f, err
}

// --- Failure ---

func marshalFailure(f Failure) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(f.Code))
	b = appendStringField(b, 2, f.Message)
	return b
}

func unmarshalFailure(b []byte) (Failure, error) {
	var f Failure
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			f.Code = FailureCode(v)
			return n, nil
		case 2:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			f.Message = string(v)
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return f, err
}

// --- ButtonRequest ---

func marshalButtonRequest(v ButtonRequest) []byte {
	return appendStringField(nil, 1, v.Code)
}

func unmarshalButtonRequest(b []byte) (ButtonRequest, error) {
	var v ButtonRequest
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		if num == 1 {
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.Code = string(s)
			return n, nil
		}
		return skipField(typ, body)
	})
	return v, err
}

// --- PinMatrixRequest / Ack ---

func marshalPinMatrixRequest(v PinMatrixRequest) []byte {
	return appendVarintField(nil, 1, uint64(v.Kind))
}

func unmarshalPinMatrixRequest(b []byte) (PinMatrixRequest, error) {
	var v PinMatrixRequest
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		if num == 1 {
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.Kind = PinMatrixRequestKind(n64)
			return n, nil
		}
		return skipField(typ, body)
	})
	return v, err
}

func marshalPinMatrixAck(v PinMatrixAck) []byte {
	return appendStringField(nil, 1, v.EncodedPIN)
}

func unmarshalPinMatrixAck(b []byte) (PinMatrixAck, error) {
	var v PinMatrixAck
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		if num == 1 {
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.EncodedPIN = string(s)
			return n, nil
		}
		return skipField(typ, body)
	})
	return v, err
}

// --- PassphraseAck ---

func marshalPassphraseAck(v PassphraseAck) []byte {
	return appendStringField(nil, 1, v.Text)
}

func unmarshalPassphraseAck(b []byte) (PassphraseAck, error) {
	var v PassphraseAck
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		if num == 1 {
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.Text = string(s)
			return n, nil
		}
		return skipField(typ, body)
	})
	return v, err
}

// --- Success ---

func marshalSuccess(v Success) []byte {
	return appendStringField(nil, 1, v.Message)
}

func unmarshalSuccess(b []byte) (Success, error) {
	var v Success
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		if num == 1 {
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.Message = string(s)
			return n, nil
		}
		return skipField(typ, body)
	})
	return v, err
}

// --- GetAddress / Address ---

func marshalGetAddress(v GetAddress) []byte {
	var b []byte
	b = appendPackedVarints(b, 1, v.AddressNList)
	b = appendStringField(b, 2, v.CoinName)
	b = appendStringField(b, 3, v.ScriptType)
	b = appendBoolField(b, 4, v.ShowDisplay)
	return b
}

func unmarshalGetAddress(b []byte) (GetAddress, error) {
	var v GetAddress
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			raw, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			list, err := unpackVarints(raw)
			if err != nil {
				return 0, err
			}
			v.AddressNList = list
			return n, nil
		case 2:
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.CoinName = string(s)
			return n, nil
		case 3:
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.ScriptType = string(s)
			return n, nil
		case 4:
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.ShowDisplay = n64 != 0
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return v, err
}

func marshalAddress(v Address) []byte {
	return appendStringField(nil, 1, v.Address)
}

func unmarshalAddress(b []byte) (Address, error) {
	var v Address
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		if num == 1 {
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.Address = string(s)
			return n, nil
		}
		return skipField(typ, body)
	})
	return v, err
}

// --- SignTx ---

func marshalSignTx(v SignTx) []byte {
	var b []byte
	b = appendStringField(b, 1, v.CoinName)
	b = appendVarintField(b, 2, uint64(v.InputsCount))
	b = appendVarintField(b, 3, uint64(v.OutputsCount))
	b = appendVarintField(b, 4, uint64(v.Version))
	b = appendVarintField(b, 5, uint64(v.LockTime))
	return b
}

func unmarshalSignTx(b []byte) (SignTx, error) {
	var v SignTx
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.CoinName = string(s)
			return n, nil
		case 2:
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.InputsCount = uint32(n64)
			return n, nil
		case 3:
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.OutputsCount = uint32(n64)
			return n, nil
		case 4:
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.Version = uint32(n64)
			return n, nil
		case 5:
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.LockTime = uint32(n64)
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return v, err
}

func skipField(typ protowire.Type, body []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, body)
	if n < 0 {
		return 0, fmt.Errorf("protocol: bad field value: %w", protowire.ParseError(n))
	}
	return n, nil
}
