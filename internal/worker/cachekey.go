package worker

import (
	"encoding/binary"

	"github.com/keepkey-host/kkcore/internal/cache"
	"github.com/keepkey-host/kkcore/internal/protocol"
)

// cacheKeyFor builds the Response Cache key for a Command, or ok=false
// if the Command is not cachable: its Kind is never cachable, or it is a
// SendRaw with BypassCache set or a message that fails to encode.
func cacheKeyFor(cmd *Command) (cache.Key, bool) {
	switch cmd.Kind {
	case KindGetAddress:
		return cache.Key{Operation: cache.OpGetAddress, ParamsHash: cache.HashParams(getAddressParamBytes(cmd.GetAddress))}, true
	case KindSendRaw:
		if cmd.SendRaw.BypassCache {
			return cache.Key{}, false
		}
		frame, err := protocol.Encode(cmd.SendRaw.Msg)
		if err != nil {
			return cache.Key{}, false
		}
		return cache.Key{Operation: cache.OpSendRaw, ParamsHash: cache.HashParams(frame.Encode())}, true
	default:
		return cache.Key{}, false
	}
}

func getAddressParamBytes(p *GetAddressParams) []byte {
	var buf []byte
	for _, n := range p.AddressNList {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, n)
		buf = append(buf, b...)
	}
	buf = append(buf, []byte(p.CoinName)...)
	buf = append(buf, 0x00)
	buf = append(buf, []byte(p.ScriptType)...)
	buf = append(buf, 0x00)
	if p.ShowDisplay {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}
	return buf
}
