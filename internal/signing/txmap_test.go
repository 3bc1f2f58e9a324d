package signing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keepkey-host/kkcore/internal/protocol"
)

func TestNewTxMapBuildsUnsignedAndPrevEntries(t *testing.T) {
	inputs := []protocol.TxInput{{PrevHash: make([]byte, 32), Sequence: 0xFFFFFFFF}}
	outputs := []protocol.TxOutput{{Address: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", Amount: 1000}}
	prevTxID := "aabb"
	prevRaw := buildLegacyTx(t)

	txMap, err := NewTxMap(1, 0, inputs, outputs, map[string][]byte{prevTxID: prevRaw})
	require.NoError(t, err)

	unsigned, ok := txMap[unsignedKey]
	require.True(t, ok)
	require.Equal(t, inputs, unsigned.Inputs)
	require.Equal(t, outputs, unsigned.Outputs)

	prev, ok := txMap[prevTxID]
	require.True(t, ok)
	require.Len(t, prev.Inputs, 1)
	require.Len(t, prev.BinOutputs, 1)
	require.Empty(t, prev.Outputs, "previous transactions never carry display outputs")
}

func TestKeyForEmptyMeansUnsigned(t *testing.T) {
	require.Equal(t, unsignedKey, KeyFor(""))
	require.Equal(t, "aabb", KeyFor("aabb"))
}

func TestTxSkeletonMetaNeverCarriesInputsOrOutputs(t *testing.T) {
	skeleton := TxSkeleton{
		Version:      1,
		LockTime:     0,
		InputsCount:  2,
		OutputsCount: 3,
		Inputs:       []protocol.TxInput{{}},
		Outputs:      []protocol.TxOutput{{}},
		ExtraData:    []byte{1, 2, 3, 4},
	}
	meta := skeleton.Meta()
	require.Equal(t, uint32(2), meta.InputsCount)
	require.Equal(t, uint32(3), meta.OutputsCount)
	require.Equal(t, uint32(4), meta.ExtraDataLen)
}
