package protocol

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFrameRoundTrip pins that encode then split into packets then
// reassemble then decode is the identity for any payload up to 2MB. Packet
// splitting itself is exercised in internal/transport; here we pin the
// Frame encode/decode half of that round trip.
func TestFrameRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 63, 64, 65, 1000, 65536, 2 * 1024 * 1024}
	for _, size := range sizes {
		payload := make([]byte, size)
		_, err := rand.Read(payload)
		require.NoError(t, err)

		f := Frame{Tag: 0x1234, Payload: payload}
		wire := f.Encode()

		decoded, n, err := DecodeFrame(wire)
		require.NoError(t, err)
		require.Equal(t, len(wire), n)
		require.Equal(t, f.Tag, decoded.Tag)
		require.Equal(t, f.Payload, decoded.Payload)
	}
}

func TestDecodeFrameBadMagic(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	_, _, err := DecodeFrame(buf)
	require.Error(t, err)
}

func TestDecodeFrameShortBuffer(t *testing.T) {
	buf := []byte{0x23, 0x23, 0x00, 0x01}
	_, _, err := DecodeFrame(buf)
	require.Error(t, err)
}

func TestDecodeFrameMultiple(t *testing.T) {
	f1 := Frame{Tag: 1, Payload: []byte("hello")}
	f2 := Frame{Tag: 2, Payload: []byte("world!!")}
	buf := append(f1.Encode(), f2.Encode()...)

	d1, n1, err := DecodeFrame(buf)
	require.NoError(t, err)
	require.Equal(t, f1, d1)

	d2, n2, err := DecodeFrame(buf[n1:])
	require.NoError(t, err)
	require.Equal(t, f2, d2)
	require.Equal(t, len(buf), n1+n2)
}
