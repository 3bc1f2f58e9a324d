package cache

// Operation names used as the first component of a Key. These match the
// Command names exactly so log lines and cache keys read the same way.
const (
	OpGetFeatures     = "GetFeatures"
	OpGetAddress      = "GetAddress"
	OpSignTx          = "SignTx"
	OpSendRaw         = "SendRaw"
	OpUpdateFirmware  = "UpdateFirmware"
)

// Cachable reports whether a Command's reply is eligible for caching at
// all. GetFeatures is deliberately excluded: callers expect a fresh read
// every time. SignTx and UpdateFirmware never produce a single idempotent
// reply. SendRaw is cachable only when the caller did not request
// bypass_cache.
func Cachable(operation string, bypassCache bool) bool {
	switch operation {
	case OpGetFeatures, OpSignTx, OpUpdateFirmware:
		return false
	case OpSendRaw:
		return !bypassCache
	case OpGetAddress:
		return true
	default:
		return false
	}
}

// MutatingReply reports whether a decoded reply's message tag classifies
// as state-mutating: Success, TxRequest, PinMatrixRequest, and
// PassphraseRequest. The worker consults it only for the final reply of a
// SendRaw Command, where a mutating reply purges the entire per-device
// cache. PIN and passphrase prompts answered inside an exchange never
// reach the worker as a final reply, so they do not purge the cache; SignTx
// and UpdateFirmware purge by Command kind instead.
//
// Success purges even for read-only Commands: preserving that behavior is
// an explicit, deliberately un-optimized choice (see the design notes on
// mutating-reply classification) rather than an oversight.
func MutatingReply(tagName string) bool {
	switch tagName {
	case "Success", "TxRequest", "PinMatrixRequest", "PassphraseRequest":
		return true
	default:
		return false
	}
}
