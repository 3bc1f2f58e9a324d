package transport

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFrameBytes(tag uint16, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0], buf[1] = 0x23, 0x23
	binary.BigEndian.PutUint16(buf[2:4], tag)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf
}

// HeaderSize mirrors protocol.HeaderSize without importing internal/protocol,
// since transport only ever sees opaque Frame bytes.
const HeaderSize = 8

func readerOverPackets(packets [][]byte) func(context.Context) ([]byte, error) {
	i := 0
	return func(ctx context.Context) ([]byte, error) {
		if i >= len(packets) {
			return nil, context.DeadlineExceeded
		}
		pkt := packets[i]
		i++
		return pkt, nil
	}
}

func TestSplitAndReassembleRoundTripSmallFrame(t *testing.T) {
	frame := buildFrameBytes(17, []byte("hello"))
	packets := splitIntoPackets(frame, false)
	require.Len(t, packets, 1)

	got, err := reassembleFrame(context.Background(), readerOverPackets(packets), false)
	require.NoError(t, err)
	require.Equal(t, frame, got)
}

func TestSplitAndReassembleRoundTripMultiPacketFrame(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := buildFrameBytes(30, payload)
	packets := splitIntoPackets(frame, false)
	require.Greater(t, len(packets), 1)

	for _, pkt := range packets {
		require.Len(t, pkt, packetSize)
	}

	got, err := reassembleFrame(context.Background(), readerOverPackets(packets), false)
	require.NoError(t, err)
	require.Equal(t, frame, got)
}

// TestHIDFirstPacketCarriesReportIDOnlyOnce reproduces the non-Windows HID
// framing: a 300-byte payload splits into several packets, the first of
// which reserves a leading 0x00 report-id byte before the continuation
// marker, while every later packet begins directly with the marker.
func TestHIDFirstPacketCarriesReportIDOnlyOnce(t *testing.T) {
	payload := make([]byte, 300)
	frame := buildFrameBytes(1, payload)
	packets := splitIntoPackets(frame, true)
	require.Greater(t, len(packets), 1)

	require.Equal(t, byte(0x00), packets[0][0])
	require.Equal(t, byte(continuationMarker), packets[0][1])
	require.Equal(t, byte(0x23), packets[0][2])
	require.Equal(t, byte(0x23), packets[0][3])

	for _, pkt := range packets[1:] {
		require.Equal(t, byte(continuationMarker), pkt[0])
	}

	got, err := reassembleFrame(context.Background(), readerOverPackets(packets), true)
	require.NoError(t, err)
	require.Equal(t, frame, got)
}

func TestReassembleFrameRejectsBadMagic(t *testing.T) {
	pkt := make([]byte, packetSize)
	pkt[0] = continuationMarker
	pkt[1] = 0xAA
	pkt[2] = 0xAA
	_, err := reassembleFrame(context.Background(), readerOverPackets([][]byte{pkt}), false)
	require.Error(t, err)
}

func TestReassembleFrameRejectsShortPacket(t *testing.T) {
	pkt := make([]byte, packetSize-1)
	_, err := reassembleFrame(context.Background(), readerOverPackets([][]byte{pkt}), false)
	require.Error(t, err)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "bulk", KindBulk.String())
	require.Equal(t, "interrupt", KindInterrupt.String())
	require.Equal(t, "hid", KindHID.String())
}
