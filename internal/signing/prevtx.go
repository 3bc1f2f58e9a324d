package signing

import (
	"encoding/binary"
	"fmt"

	"github.com/keepkey-host/kkcore/internal/protocol"
)

// PrevTx is a previous transaction's parsed inputs and outputs, enough to
// answer the device's TxInput/TxOutput/TxMeta pull requests against it.
type PrevTx struct {
	Version      uint32
	LockTime     uint32
	InputsCount  uint32
	OutputsCount uint32
	Inputs       []protocol.TxInput
	Outputs      []protocol.TxOutputBin
}

// ParsePrevTx parses a raw Bitcoin transaction (optionally SegWit,
// BIP144 marker+flag) into the shape the signing dialogue needs. Witness
// data is skipped entirely: the device only ever asks for prevout scripts
// and amounts, never witnesses, when verifying spent outputs.
func ParsePrevTx(data []byte) (PrevTx, error) {
	if len(data) < 4 {
		return PrevTx{}, fmt.Errorf("signing: transaction too short for version")
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	cursor := 4

	hasWitness := false
	if len(data) > cursor+1 && data[cursor] == 0x00 && data[cursor+1] == 0x01 {
		cursor += 2
		hasWitness = true
	}

	inputCount, n, err := readVarint(data[cursor:])
	if err != nil {
		return PrevTx{}, err
	}
	cursor += n

	inputs := make([]protocol.TxInput, 0, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		if cursor+32 > len(data) {
			return PrevTx{}, fmt.Errorf("signing: transaction too short for input %d prev_hash", i)
		}
		prevHash := reversed(data[cursor : cursor+32])
		cursor += 32

		if cursor+4 > len(data) {
			return PrevTx{}, fmt.Errorf("signing: transaction too short for input %d prev_index", i)
		}
		prevIndex := binary.LittleEndian.Uint32(data[cursor : cursor+4])
		cursor += 4

		scriptLen, n, err := readVarint(data[cursor:])
		if err != nil {
			return PrevTx{}, err
		}
		cursor += n

		if cursor+int(scriptLen) > len(data) {
			return PrevTx{}, fmt.Errorf("signing: transaction too short for input %d script", i)
		}
		scriptSig := append([]byte(nil), data[cursor:cursor+int(scriptLen)]...)
		cursor += int(scriptLen)

		if cursor+4 > len(data) {
			return PrevTx{}, fmt.Errorf("signing: transaction too short for input %d sequence", i)
		}
		sequence := binary.LittleEndian.Uint32(data[cursor : cursor+4])
		cursor += 4

		inputs = append(inputs, protocol.TxInput{
			PrevHash:  prevHash,
			PrevIndex: prevIndex,
			ScriptSig: scriptSig,
			Sequence:  sequence,
		})
	}

	outputCount, n, err := readVarint(data[cursor:])
	if err != nil {
		return PrevTx{}, err
	}
	cursor += n

	outputs := make([]protocol.TxOutputBin, 0, outputCount)
	for i := uint64(0); i < outputCount; i++ {
		if cursor+8 > len(data) {
			return PrevTx{}, fmt.Errorf("signing: transaction too short for output %d amount", i)
		}
		amount := binary.LittleEndian.Uint64(data[cursor : cursor+8])
		cursor += 8

		scriptLen, n, err := readVarint(data[cursor:])
		if err != nil {
			return PrevTx{}, err
		}
		cursor += n

		if cursor+int(scriptLen) > len(data) {
			return PrevTx{}, fmt.Errorf("signing: transaction too short for output %d script", i)
		}
		scriptPubKey := append([]byte(nil), data[cursor:cursor+int(scriptLen)]...)
		cursor += int(scriptLen)

		outputs = append(outputs, protocol.TxOutputBin{
			Amount:       amount,
			ScriptPubKey: scriptPubKey,
		})
	}

	if hasWitness {
		for i := uint64(0); i < inputCount; i++ {
			witnessCount, n, err := readVarint(data[cursor:])
			if err != nil {
				return PrevTx{}, err
			}
			cursor += n
			for j := uint64(0); j < witnessCount; j++ {
				itemLen, n, err := readVarint(data[cursor:])
				if err != nil {
					return PrevTx{}, err
				}
				cursor += n + int(itemLen)
			}
		}
	}

	if cursor+4 > len(data) {
		return PrevTx{}, fmt.Errorf("signing: transaction too short for lock_time")
	}
	lockTime := binary.LittleEndian.Uint32(data[cursor : cursor+4])

	return PrevTx{
		Version:      version,
		LockTime:     lockTime,
		InputsCount:  uint32(inputCount),
		OutputsCount: uint32(outputCount),
		Inputs:       inputs,
		Outputs:      outputs,
	}, nil
}

// reversed returns a copy of b with byte order reversed, used to convert
// a previous-tx hash from its on-wire little-endian form to the hex
// display order used as a TxMap key.
func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func readVarint(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("signing: unexpected end of data while reading varint")
	}
	switch data[0] {
	case 0xfd:
		if len(data) < 3 {
			return 0, 0, fmt.Errorf("signing: unexpected end of data while reading varint")
		}
		return uint64(binary.LittleEndian.Uint16(data[1:3])), 3, nil
	case 0xfe:
		if len(data) < 5 {
			return 0, 0, fmt.Errorf("signing: unexpected end of data while reading varint")
		}
		return uint64(binary.LittleEndian.Uint32(data[1:5])), 5, nil
	case 0xff:
		if len(data) < 9 {
			return 0, 0, fmt.Errorf("signing: unexpected end of data while reading varint")
		}
		return binary.LittleEndian.Uint64(data[1:9]), 9, nil
	default:
		return uint64(data[0]), 1, nil
	}
}
