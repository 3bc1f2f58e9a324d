package signing

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildLegacyTx(t *testing.T) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, le32(1)...) // version

	buf = append(buf, 0x01) // 1 input
	prevHash := make([]byte, 32)
	prevHash[0] = 0xAB
	buf = append(buf, prevHash...)
	buf = append(buf, le32(0)...) // prev_index
	buf = append(buf, 0x00)       // empty script_sig
	buf = append(buf, le32(0xFFFFFFFF)...)

	buf = append(buf, 0x01) // 1 output
	buf = append(buf, le64(5000)...)
	script := []byte{0x76, 0xa9, 0x14}
	buf = append(buf, byte(len(script)))
	buf = append(buf, script...)

	buf = append(buf, le32(0)...) // lock_time
	return buf
}

func buildSegWitTx(t *testing.T) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, le32(2)...)
	buf = append(buf, 0x00, 0x01) // marker + flag

	buf = append(buf, 0x01) // 1 input
	prevHash := make([]byte, 32)
	buf = append(buf, prevHash...)
	buf = append(buf, le32(0)...)
	buf = append(buf, 0x00)
	buf = append(buf, le32(0xFFFFFFFF)...)

	buf = append(buf, 0x01) // 1 output
	buf = append(buf, le64(1000)...)
	buf = append(buf, 0x00) // empty script

	// witness for the 1 input: 1 item of 2 bytes
	buf = append(buf, 0x01)
	buf = append(buf, 0x02)
	buf = append(buf, 0xAA, 0xBB)

	buf = append(buf, le32(0)...)
	return buf
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestParsePrevTxLegacy(t *testing.T) {
	tx := buildLegacyTx(t)
	parsed, err := ParsePrevTx(tx)
	require.NoError(t, err)
	require.Equal(t, uint32(1), parsed.Version)
	require.Equal(t, uint32(0), parsed.LockTime)
	require.Len(t, parsed.Inputs, 1)
	require.Len(t, parsed.Outputs, 1)
	require.Equal(t, uint64(5000), parsed.Outputs[0].Amount)
	require.Equal(t, byte(0xAB), parsed.Inputs[0].PrevHash[31], "hash bytes are reversed relative to wire order")
}

func TestParsePrevTxSegWitSkipsWitness(t *testing.T) {
	tx := buildSegWitTx(t)
	parsed, err := ParsePrevTx(tx)
	require.NoError(t, err)
	require.Equal(t, uint32(2), parsed.Version)
	require.Len(t, parsed.Inputs, 1)
	require.Len(t, parsed.Outputs, 1)
	require.Equal(t, uint64(1000), parsed.Outputs[0].Amount)
}

func TestParsePrevTxTooShort(t *testing.T) {
	_, err := ParsePrevTx([]byte{0x01, 0x02})
	require.Error(t, err)
}
