package transport

import (
	"context"
	"fmt"

	"github.com/google/gousb"

	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/kkerr"
)

// usbTransport backs both the Bulk and Interrupt variants. gousb does not
// distinguish the two at the call-site level — the transfer type lives in
// the endpoint descriptor the selector already inspected — so one
// implementation serves both kinds, opening, claiming, and tearing down a
// single interface/endpoint pair regardless of transfer type.
type usbTransport struct {
	kind   Kind
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint
}

// usbEndpointOut and usbEndpointIn are the well-known bulk/interrupt
// endpoint pair on interface 0.
const (
	usbEndpointOut = 0x01
	usbEndpointIn  = 0x81
)

func openUSBTransport(kind Kind, desc device.Descriptor) (Transport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(desc.VendorID), gousb.ID(desc.ProductID))
	if err != nil {
		ctx.Close()
		return nil, kkerr.Wrap(kkerr.NotConnected, fmt.Sprintf("open %s device %s", kind, desc), err)
	}
	if dev == nil {
		ctx.Close()
		return nil, kkerr.NotConnectedError()
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, kkerr.Wrap(kkerr.AccessDenied, "set USB configuration", err)
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, kkerr.Wrap(kkerr.AccessDenied, "claim USB interface 0", err)
	}

	epOut, err := intf.OutEndpoint(usbEndpointOut)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, kkerr.Wrap(kkerr.ProtocolError, "open OUT endpoint", err)
	}

	epIn, err := intf.InEndpoint(usbEndpointIn)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, kkerr.Wrap(kkerr.ProtocolError, "open IN endpoint", err)
	}

	return &usbTransport{kind: kind, ctx: ctx, dev: dev, cfg: cfg, intf: intf, epOut: epOut, epIn: epIn}, nil
}

// OpenBulkTransport opens the modern WebUSB-style bulk transport.
func OpenBulkTransport(desc device.Descriptor) (Transport, error) {
	return openUSBTransport(KindBulk, desc)
}

// OpenInterruptTransport opens the legacy interrupt-endpoint transport.
func OpenInterruptTransport(desc device.Descriptor) (Transport, error) {
	return openUSBTransport(KindInterrupt, desc)
}

func (t *usbTransport) Write(ctx context.Context, frame []byte) error {
	for _, pkt := range splitIntoPackets(frame, false) {
		n, err := t.epOut.WriteContext(ctx, pkt)
		if err != nil {
			return kkerr.Wrap(kkerr.ProtocolError, fmt.Sprintf("%s write failed", t.kind), err)
		}
		if n != len(pkt) {
			return kkerr.New(kkerr.ProtocolError, fmt.Sprintf("%s short write: wrote %d of %d bytes", t.kind, n, len(pkt)))
		}
	}
	return nil
}

func (t *usbTransport) Read(ctx context.Context) ([]byte, error) {
	return reassembleFrame(ctx, t.readPacket, false)
}

func (t *usbTransport) readPacket(ctx context.Context) ([]byte, error) {
	buf := make([]byte, packetSize)
	n, err := t.epIn.ReadContext(ctx, buf)
	if err != nil {
		return nil, kkerr.Wrap(kkerr.ProtocolError, fmt.Sprintf("%s read failed", t.kind), err)
	}
	return buf[:n], nil
}

func (t *usbTransport) Reset(ctx context.Context) error {
	// Flush any queued inbound packets with a short timeout; ignore
	// timeouts, they mean the queue was already empty.
	flushCtx, cancel := withTimeout(ctx, flushTimeout)
	defer cancel()
	buf := make([]byte, packetSize)
	for {
		if _, err := t.epIn.ReadContext(flushCtx, buf); err != nil {
			break
		}
	}
	if err := t.dev.Reset(); err != nil {
		return kkerr.Wrap(kkerr.ProtocolError, fmt.Sprintf("%s device reset failed", t.kind), err)
	}
	return nil
}

func (t *usbTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
	}
	if t.cfg != nil {
		t.cfg.Close()
	}
	if t.dev != nil {
		t.dev.Close()
	}
	if t.ctx != nil {
		t.ctx.Close()
	}
	return nil
}
