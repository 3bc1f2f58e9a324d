package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePath turns a BIP-32 path like "m/44'/0'/0'/0/0" into the
// AddressNList GetAddress expects, applying the hardened-derivation
// offset (2^31) to any index written with a trailing ' or h.
func parsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	if parts[0] == "m" {
		parts = parts[1:]
	}
	nlist := make([]uint32, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		hardened := false
		if strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") || strings.HasSuffix(p, "H") {
			hardened = true
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad path component %q: %w", p, err)
		}
		if hardened {
			n |= 0x80000000
		}
		nlist = append(nlist, uint32(n))
	}
	return nlist, nil
}
