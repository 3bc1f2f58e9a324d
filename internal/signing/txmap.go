package signing

import (
	"encoding/hex"
	"fmt"

	"github.com/keepkey-host/kkcore/internal/protocol"
)

// unsignedKey is the TxMap key for the transaction currently being
// signed, as opposed to one of its previous transactions.
const unsignedKey = "unsigned"

// TxSkeleton is what TxMap stores for one transaction: enough to answer
// TxInput/TxOutput/TxMeta/TxExtraData requests against it.
type TxSkeleton struct {
	Version      uint32
	LockTime     uint32
	InputsCount  uint32
	OutputsCount uint32
	Inputs       []protocol.TxInput
	Outputs      []protocol.TxOutput     // only populated for the unsigned tx
	BinOutputs   []protocol.TxOutputBin  // only populated for previous txs
	ExtraData    []byte
}

// TxMap is the host-side lookup the device's pull dialogue is served
// from, keyed by "unsigned" or the lowercase hex of a previous tx's id.
// Its lifetime is exactly one SignTx Command.
type TxMap map[string]TxSkeleton

// KeyFor returns the TxMap key for a TxRequestDetails' tx_hash field:
// the literal "unsigned" when absent, else its lowercase hex form
// unchanged (the wire already carries tx_hash as a string).
func KeyFor(txHash string) string {
	if txHash == "" {
		return unsignedKey
	}
	return txHash
}

// NewTxMap builds the TxMap for a SignTx Command: the unsigned skeleton
// from the Command's own inputs/outputs, plus one entry per previous
// transaction parsed via ParsePrevTx.
func NewTxMap(version, lockTime uint32, inputs []protocol.TxInput, outputs []protocol.TxOutput, prevTxs map[string][]byte) (TxMap, error) {
	m := TxMap{
		unsignedKey: {
			Version:      version,
			LockTime:     lockTime,
			InputsCount:  uint32(len(inputs)),
			OutputsCount: uint32(len(outputs)),
			Inputs:       inputs,
			Outputs:      outputs,
		},
	}
	for txid, raw := range prevTxs {
		parsed, err := ParsePrevTx(raw)
		if err != nil {
			return nil, fmt.Errorf("signing: parse prev tx %s: %w", txid, err)
		}
		key := keyFromTxid(txid)
		m[key] = TxSkeleton{
			Version:      parsed.Version,
			LockTime:     parsed.LockTime,
			InputsCount:  parsed.InputsCount,
			OutputsCount: parsed.OutputsCount,
			Inputs:       parsed.Inputs,
			BinOutputs:   parsed.Outputs,
		}
	}
	return m, nil
}

// keyFromTxid normalizes a caller-supplied txid to the lowercase hex form
// TxMap keys use, tolerating either case on input.
func keyFromTxid(txid string) string {
	decoded, err := hex.DecodeString(txid)
	if err != nil {
		return txid
	}
	return hex.EncodeToString(decoded)
}

// Meta returns the TxMeta-only view of a skeleton: never inputs or
// outputs, only counts and chain fields.
func (s TxSkeleton) Meta() protocol.TxMeta {
	return protocol.TxMeta{
		Version:      s.Version,
		LockTime:     s.LockTime,
		InputsCount:  s.InputsCount,
		OutputsCount: s.OutputsCount,
		ExtraDataLen: uint32(len(s.ExtraData)),
	}
}
