package transport

import (
	"context"
	"fmt"
	"runtime"

	"github.com/keepkey-host/kkcore/internal/kkerr"
)

// hidDevice is the narrow capability set the HID transport needs from a
// concrete HID backend. The core does not bundle one; callers supply a
// hidDevice via OpenHIDTransport, typically backed by a cgo HID library or
// an OS HID API wrapper. ReadTimeout mirrors the blocking-read-with-deadline
// capability real HID libraries expose (e.g. hidapi's hid_read_timeout).
type hidDevice interface {
	Write(report []byte) (int, error)
	ReadTimeout(buf []byte, timeoutMs int) (int, error)
	Close() error
}

// hidTransport implements the HID variant: two distinct wire formats
// depending on platform, both reusing the shared packet framer.
type hidTransport struct {
	dev     hidDevice
	windows bool
}

// OpenHIDTransport wraps an already-opened HID device. windows selects the
// Windows wire format (no leading report-id byte on the first packet); on
// all other platforms the non-Windows format (leading zero report-id byte)
// is used. Callers normally pass runtime.GOOS == "windows"; it is a
// parameter rather than a runtime.GOOS check inside this function so tests
// can exercise both formats from any host.
func OpenHIDTransport(dev hidDevice, windows bool) Transport {
	return &hidTransport{dev: dev, windows: windows}
}

// DefaultIsWindows reports whether the running platform should use the
// Windows HID wire format.
func DefaultIsWindows() bool { return runtime.GOOS == "windows" }

func (t *hidTransport) Write(ctx context.Context, frame []byte) error {
	for _, pkt := range splitIntoPackets(frame, !t.windows) {
		n, err := t.dev.Write(pkt)
		if err != nil {
			return kkerr.Wrap(kkerr.ProtocolError, "hid write failed", err)
		}
		if n != len(pkt) {
			return kkerr.New(kkerr.ProtocolError, fmt.Sprintf("hid short write: wrote %d of %d bytes", n, len(pkt)))
		}
	}
	return nil
}

func (t *hidTransport) Read(ctx context.Context) ([]byte, error) {
	return reassembleFrame(ctx, t.readPacket, !t.windows)
}

func (t *hidTransport) readPacket(ctx context.Context) ([]byte, error) {
	timeoutMs := 30000
	if deadline, ok := ctx.Deadline(); ok {
		remaining := int(timeUntilMs(deadline))
		if remaining > 0 {
			timeoutMs = remaining
		}
	}
	buf := make([]byte, packetSize)
	n, err := t.dev.ReadTimeout(buf, timeoutMs)
	if err != nil {
		return nil, kkerr.Wrap(kkerr.ProtocolError, "hid read failed", err)
	}
	if n == 0 {
		// A zero-byte read within the timeout means the device accepted the
		// request but never replied: this is the
		// distinguished "device unresponsive" condition, not a generic
		// protocol error.
		return nil, kkerr.HIDUnresponsiveError()
	}
	return buf[:n], nil
}

func (t *hidTransport) Reset(ctx context.Context) error {
	// HID has no device-level reset primitive analogous to USB's; flushing
	// queued inbound reports with a short timeout is the whole of it.
	for {
		buf := make([]byte, packetSize)
		n, err := t.dev.ReadTimeout(buf, int(flushTimeout.Milliseconds()))
		if err != nil || n == 0 {
			return nil
		}
	}
}

func (t *hidTransport) Close() error {
	return t.dev.Close()
}
