package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// This file holds the signing dialogue's submessage codecs: TxRequest/TxAck
// and everything nested inside them. They are split out from codec.go
// because the dialogue's message shapes are the most structurally involved
// part of the wire protocol.

// --- TxRequestDetails ---

func marshalTxRequestDetails(d TxRequestDetails) []byte {
	var b []byte
	if d.RequestIndex >= 0 {
		b = appendVarintField(b, 1, uint64(d.RequestIndex))
	}
	b = appendStringField(b, 2, d.TxHash)
	b = appendVarintField(b, 3, uint64(d.ExtraDataLen))
	b = appendVarintField(b, 4, uint64(d.ExtraDataOffset))
	return b
}

func unmarshalTxRequestDetails(b []byte) (TxRequestDetails, error) {
	d := TxRequestDetails{RequestIndex: -1}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			d.RequestIndex = int32(v)
			return n, nil
		case 2:
			s, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			d.TxHash = string(s)
			return n, nil
		case 3:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			d.ExtraDataLen = uint32(v)
			return n, nil
		case 4:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			d.ExtraDataOffset = uint32(v)
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return d, err
}

// --- TxRequestSerialized ---

func marshalTxRequestSerialized(s TxRequestSerialized) []byte {
	var b []byte
	if s.HasSignature {
		b = appendVarintField(b, 1, uint64(s.SignatureIndex))
		b = appendBytesField(b, 2, s.Signature)
	}
	if s.HasSerializedTx {
		b = appendBytesField(b, 3, s.SerializedTx)
	}
	return b
}

func unmarshalTxRequestSerialized(b []byte) (TxRequestSerialized, error) {
	var s TxRequestSerialized
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			s.SignatureIndex = uint32(v)
			s.HasSignature = true
			return n, nil
		case 2:
			bs, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			s.Signature = bs
			s.HasSignature = true
			return n, nil
		case 3:
			bs, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			s.SerializedTx = bs
			s.HasSerializedTx = true
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return s, err
}

// --- TxRequest ---

func marshalTxRequest(v TxRequest) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(v.RequestType))
	b = appendSubmessageField(b, 2, marshalTxRequestDetails(v.Details))
	if sub := marshalTxRequestSerialized(v.Serialized); len(sub) > 0 {
		b = appendSubmessageField(b, 3, sub)
	}
	return b
}

func unmarshalTxRequest(b []byte) (TxRequest, error) {
	v := TxRequest{Details: TxRequestDetails{RequestIndex: -1}}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			n64, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			v.RequestType = TxRequestType(n64)
			return n, nil
		case 2:
			sub, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			d, err := unmarshalTxRequestDetails(sub)
			if err != nil {
				return 0, err
			}
			v.Details = d
			return n, nil
		case 3:
			sub, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			s, err := unmarshalTxRequestSerialized(sub)
			if err != nil {
				return 0, err
			}
			v.Serialized = s
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return v, err
}

// --- TxInput / TxOutput / TxOutputBin / TxMeta submessages ---

func marshalTxInput(in TxInput) []byte {
	var b []byte
	b = appendBytesField(b, 1, in.PrevHash)
	b = appendVarintField(b, 2, uint64(in.PrevIndex))
	b = appendBytesField(b, 3, in.ScriptSig)
	b = appendVarintField(b, 4, uint64(in.Sequence))
	b = appendPackedVarints(b, 5, in.AddressN)
	return b
}

func unmarshalTxInput(b []byte) (TxInput, error) {
	var in TxInput
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			in.PrevHash = v
			return n, nil
		case 2:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			in.PrevIndex = uint32(v)
			return n, nil
		case 3:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			in.ScriptSig = v
			return n, nil
		case 4:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			in.Sequence = uint32(v)
			return n, nil
		case 5:
			raw, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			list, err := unpackVarints(raw)
			if err != nil {
				return 0, err
			}
			in.AddressN = list
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return in, err
}

func marshalTxOutput(o TxOutput) []byte {
	var b []byte
	b = appendStringField(b, 1, o.Address)
	b = appendVarintField(b, 2, o.Amount)
	b = appendStringField(b, 3, o.ScriptType)
	return b
}

func unmarshalTxOutput(b []byte) (TxOutput, error) {
	var o TxOutput
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			o.Address = string(v)
			return n, nil
		case 2:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			o.Amount = v
			return n, nil
		case 3:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			o.ScriptType = string(v)
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return o, err
}

func marshalTxOutputBin(o TxOutputBin) []byte {
	var b []byte
	b = appendVarintField(b, 1, o.Amount)
	b = appendBytesField(b, 2, o.ScriptPubKey)
	return b
}

func unmarshalTxOutputBin(b []byte) (TxOutputBin, error) {
	var o TxOutputBin
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			o.Amount = v
			return n, nil
		case 2:
			v, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			o.ScriptPubKey = v
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return o, err
}

func marshalTxMeta(m TxMeta) []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Version))
	b = appendVarintField(b, 2, uint64(m.LockTime))
	b = appendVarintField(b, 3, uint64(m.InputsCount))
	b = appendVarintField(b, 4, uint64(m.OutputsCount))
	b = appendVarintField(b, 5, uint64(m.ExtraDataLen))
	return b
}

func unmarshalTxMeta(b []byte) (TxMeta, error) {
	var m TxMeta
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			m.Version = uint32(v)
			return n, nil
		case 2:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			m.LockTime = uint32(v)
			return n, nil
		case 3:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			m.InputsCount = uint32(v)
			return n, nil
		case 4:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			m.OutputsCount = uint32(v)
			return n, nil
		case 5:
			v, n, err := consumeVarint(body)
			if err != nil {
				return 0, err
			}
			m.ExtraDataLen = uint32(v)
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return m, err
}

// --- TxAck ---

func marshalTxAck(v TxAck) []byte {
	var b []byte
	for _, in := range v.Inputs {
		b = appendSubmessageField(b, 1, marshalTxInput(in))
	}
	for _, out := range v.Outputs {
		b = appendSubmessageField(b, 2, marshalTxOutput(out))
	}
	for _, bo := range v.BinOutputs {
		b = appendSubmessageField(b, 3, marshalTxOutputBin(bo))
	}
	if v.Meta != nil {
		b = appendSubmessageField(b, 4, marshalTxMeta(*v.Meta))
	}
	b = appendBytesField(b, 5, v.ExtraData)
	return b
}

func unmarshalTxAck(b []byte) (TxAck, error) {
	var v TxAck
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			sub, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			in, err := unmarshalTxInput(sub)
			if err != nil {
				return 0, err
			}
			v.Inputs = append(v.Inputs, in)
			return n, nil
		case 2:
			sub, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			out, err := unmarshalTxOutput(sub)
			if err != nil {
				return 0, err
			}
			v.Outputs = append(v.Outputs, out)
			return n, nil
		case 3:
			sub, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			bo, err := unmarshalTxOutputBin(sub)
			if err != nil {
				return 0, err
			}
			v.BinOutputs = append(v.BinOutputs, bo)
			return n, nil
		case 4:
			sub, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			m, err := unmarshalTxMeta(sub)
			if err != nil {
				return 0, err
			}
			v.Meta = &m
			return n, nil
		case 5:
			bs, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.ExtraData = bs
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return v, err
}

// --- FirmwareUpload ---

func marshalFirmwareUpload(v FirmwareUpload) []byte {
	var b []byte
	b = appendBytesField(b, 1, v.Payload)
	b = appendBytesField(b, 2, v.PayloadHash)
	return b
}

func unmarshalFirmwareUpload(b []byte) (FirmwareUpload, error) {
	var v FirmwareUpload
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, body []byte) (int, error) {
		switch num {
		case 1:
			bs, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.Payload = bs
			return n, nil
		case 2:
			bs, n, err := consumeBytes(body)
			if err != nil {
				return 0, err
			}
			v.PayloadHash = bs
			return n, nil
		default:
			return skipField(typ, body)
		}
	})
	return v, err
}
