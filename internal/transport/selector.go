package transport

import (
	"log"

	"github.com/google/gousb"

	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/diagnostics"
	"github.com/keepkey-host/kkcore/internal/kkerr"
)

// HIDOpener opens a HID device for a given descriptor. The core does not
// bundle a HID backend (see hid.go); callers of Open supply one.
type HIDOpener func(desc device.Descriptor) (hidDevice, error)

// Open decides which of the three transports to use from the descriptor's
// product id (or, for an unrecognized PID, from interface 0's endpoint
// descriptors), falls back to HID if Bulk/Interrupt fails to open, and on
// HID failure returns a diagnostic AccessDenied error naming the most
// likely remediation.
func Open(desc device.Descriptor, openHID HIDOpener) (Transport, error) {
	kind := classify(desc)

	if kind == KindHID {
		return openHIDFallback(desc, openHID, nil)
	}

	var usbErr error
	var t Transport
	if kind == KindBulk {
		t, usbErr = OpenBulkTransport(desc)
	} else {
		t, usbErr = OpenInterruptTransport(desc)
	}
	if usbErr == nil {
		return t, nil
	}

	log.Printf("transport: %s open failed for %s, falling back to hid: %v", kind, desc, usbErr)
	return openHIDFallback(desc, openHID, usbErr)
}

func openHIDFallback(desc device.Descriptor, openHID HIDOpener, priorErr error) (Transport, error) {
	if openHID == nil {
		return nil, diagnosedAccessDenied(priorErr)
	}
	dev, err := openHID(desc)
	if err != nil {
		return nil, diagnosedAccessDenied(err)
	}
	return OpenHIDTransport(dev, DefaultIsWindows()), nil
}

// diagnosedAccessDenied names the concrete conflicting process when one can
// be found, else returns the generic remediation text.
func diagnosedAccessDenied(cause error) error {
	conflict := diagnostics.FindConflictingProcess()
	err := kkerr.AccessDeniedError(conflict)
	if cause != nil {
		err.Wrapped = cause
	}
	return err
}

// classify decides the transport kind from the descriptor alone. The two
// legacy product ids are pinned directly; anything else falls through to
// endpoint inspection.
func classify(desc device.Descriptor) Kind {
	switch desc.ProductID {
	case device.ProductIDLegacyHID:
		return KindHID
	case device.ProductIDInterrupt:
		return KindInterrupt
	}
	return classifyByEndpoints(desc)
}

// classifyByEndpoints reads interface 0's active configuration and picks
// Bulk if it has a bulk endpoint, Interrupt if it has an interrupt
// endpoint, Bulk (with a warning) if it has neither. Any inspection failure
// also defaults to Bulk with a warning, since a closed/unreadable
// descriptor is no reason to give up before even trying the modern
// transport.
func classifyByEndpoints(desc device.Descriptor) Kind {
	ctx := gousb.NewContext()
	defer ctx.Close()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(desc.VendorID), gousb.ID(desc.ProductID))
	if err != nil || dev == nil {
		log.Printf("transport: could not inspect endpoints for %s, defaulting to bulk: %v", desc, err)
		return KindBulk
	}
	defer dev.Close()

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		log.Printf("transport: could not read active config for %s, defaulting to bulk: %v", desc, err)
		return KindBulk
	}
	cfgDesc, ok := dev.Desc.Configs[cfgNum]
	if !ok || len(cfgDesc.Interfaces) == 0 {
		log.Printf("transport: %s has no interface 0 descriptor, defaulting to bulk with warning", desc)
		return KindBulk
	}
	intf := cfgDesc.Interfaces[0]
	if len(intf.AltSettings) == 0 {
		return KindBulk
	}
	alt := intf.AltSettings[0]

	hasInterrupt := false
	for _, ep := range alt.Endpoints {
		switch ep.TransferType {
		case gousb.TransferTypeBulk:
			return KindBulk
		case gousb.TransferTypeInterrupt:
			hasInterrupt = true
		}
	}
	if hasInterrupt {
		return KindInterrupt
	}
	log.Printf("transport: %s interface 0 has neither bulk nor interrupt endpoints, defaulting to bulk with warning", desc)
	return KindBulk
}

// MatchDescriptor applies the device-matching rule: prefer serial-number
// equality; if unavailable, match on bus/address. Exact match only, no
// fuzzy fall-back.
func MatchDescriptor(want device.Descriptor, candidates []device.Descriptor) (device.Descriptor, bool) {
	if want.Serial != "" {
		for _, c := range candidates {
			if c.Serial == want.Serial {
				return c, true
			}
		}
		return device.Descriptor{}, false
	}
	for _, c := range candidates {
		if c.Bus == want.Bus && c.Address == want.Address {
			return c, true
		}
	}
	return device.Descriptor{}, false
}
