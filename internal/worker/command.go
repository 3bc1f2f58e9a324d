package worker

import (
	"time"

	"github.com/keepkey-host/kkcore/internal/protocol"
	"github.com/keepkey-host/kkcore/internal/signing"
)

// Kind names a Command variant.
type Kind int

const (
	KindGetFeatures Kind = iota
	KindGetAddress
	KindSignTx
	KindSendRaw
	KindUpdateFirmware
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindGetFeatures:
		return "GetFeatures"
	case KindGetAddress:
		return "GetAddress"
	case KindSignTx:
		return "SignTx"
	case KindSendRaw:
		return "SendRaw"
	case KindUpdateFirmware:
		return "UpdateFirmware"
	case KindShutdown:
		return "Shutdown"
	default:
		return "unknown"
	}
}

// GetAddressParams mirrors the wire GetAddress request.
type GetAddressParams struct {
	AddressNList []uint32
	CoinName     string
	ScriptType   string
	ShowDisplay  bool
}

// SignTxParams mirrors the wire SignTx request plus the previous
// transactions the signing dialogue may need.
type SignTxParams struct {
	CoinName string
	Inputs   []protocol.TxInput
	Outputs  []protocol.TxOutput
	PrevTxs  map[string][]byte
	Version  uint32
	LockTime uint32
}

// SendRawParams lets a caller speak an arbitrary Message directly,
// bypassing cache when requested.
type SendRawParams struct {
	Msg         protocol.Message
	BypassCache bool
}

// UpdateFirmwareParams carries a firmware image to flash.
type UpdateFirmwareParams struct {
	Bytes []byte
}

// Command is one unit of work borrowed exclusively by a worker. Every
// Command carries its own enqueue timestamp and a one-shot reply sink.
type Command struct {
	Kind        Kind
	EnqueuedAt  time.Time
	GetAddress  *GetAddressParams
	SignTx      *SignTxParams
	SendRaw     *SendRawParams
	Firmware    *UpdateFirmwareParams
	replyCh     chan Result
}

// Result is what a Command's reply sink delivers. Exactly one of the
// typed fields is populated, matching the Command's Kind, unless Err is
// set.
type Result struct {
	Features *protocol.Features
	Address  *protocol.Address
	Signing  *signing.Result
	Raw      protocol.Message
	Err      error
}

func newCommand(kind Kind) (*Command, chan Result) {
	ch := make(chan Result, 1)
	return &Command{Kind: kind, EnqueuedAt: time.Now(), replyCh: ch}, ch
}
