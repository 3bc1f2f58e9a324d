package worker

import (
	"context"

	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/kkerr"
	"github.com/keepkey-host/kkcore/internal/protocol"
)

// Handle is a cheap, cloneable reference to a device's Worker: every
// clone shares the same inbox sender, so any clone may submit a Command
// and ordering across clones is still FIFO through the single inbox.
type Handle struct {
	deviceID string
	inbox    chan *Command
	sessions *interactive.Table
}

func newHandle(deviceID string, inbox chan *Command, sessions *interactive.Table) Handle {
	return Handle{deviceID: deviceID, inbox: inbox, sessions: sessions}
}

// submit enqueues cmd and blocks for its reply, or returns early if ctx
// is done first. If ctx is done before cmd is enqueued, cmd is never
// submitted. If ctx is done after enqueueing, the Command itself still
// completes and is still answered by the worker; the caller just stops
// waiting.
func (h Handle) submit(ctx context.Context, cmd *Command, replyCh chan Result) (Result, error) {
	select {
	case h.inbox <- cmd:
	case <-ctx.Done():
		return Result{}, kkerr.Wrap(kkerr.Timeout, "submit command", ctx.Err())
	}
	select {
	case r := <-replyCh:
		return r, nil
	case <-ctx.Done():
		return Result{}, kkerr.Wrap(kkerr.Timeout, "await command reply", ctx.Err())
	}
}

// GetFeatures queries the device's current feature set.
func (h Handle) GetFeatures(ctx context.Context) (protocol.Features, error) {
	cmd, replyCh := newCommand(KindGetFeatures)
	cmd.replyCh = replyCh
	result, err := h.submit(ctx, cmd, replyCh)
	if err != nil {
		return protocol.Features{}, err
	}
	if result.Err != nil {
		return protocol.Features{}, result.Err
	}
	return *result.Features, nil
}

// GetAddress derives and optionally displays a receive address.
func (h Handle) GetAddress(ctx context.Context, params GetAddressParams) (protocol.Address, error) {
	cmd, replyCh := newCommand(KindGetAddress)
	cmd.replyCh = replyCh
	cmd.GetAddress = &params
	result, err := h.submit(ctx, cmd, replyCh)
	if err != nil {
		return protocol.Address{}, err
	}
	if result.Err != nil {
		return protocol.Address{}, result.Err
	}
	return *result.Address, nil
}

// SignTx drives the device-side transaction-signing dialogue.
func (h Handle) SignTx(ctx context.Context, params SignTxParams) (SigningResult, error) {
	cmd, replyCh := newCommand(KindSignTx)
	cmd.replyCh = replyCh
	cmd.SignTx = &params
	result, err := h.submit(ctx, cmd, replyCh)
	if err != nil {
		return SigningResult{}, err
	}
	if result.Err != nil {
		return SigningResult{}, result.Err
	}
	return SigningResult{RawTxHex: result.Signing.RawTxHex, Signatures: result.Signing.Signatures}, nil
}

// SendRaw speaks an arbitrary Message directly to the device.
func (h Handle) SendRaw(ctx context.Context, params SendRawParams) (protocol.Message, error) {
	cmd, replyCh := newCommand(KindSendRaw)
	cmd.replyCh = replyCh
	cmd.SendRaw = &params
	result, err := h.submit(ctx, cmd, replyCh)
	if err != nil {
		return nil, err
	}
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Raw, nil
}

// UpdateFirmware flashes a new firmware image.
func (h Handle) UpdateFirmware(ctx context.Context, bytes []byte) error {
	cmd, replyCh := newCommand(KindUpdateFirmware)
	cmd.replyCh = replyCh
	cmd.Firmware = &UpdateFirmwareParams{Bytes: bytes}
	result, err := h.submit(ctx, cmd, replyCh)
	if err != nil {
		return err
	}
	return result.Err
}

// Shutdown drains the inbox cleanly and stops the worker's loop.
func (h Handle) Shutdown(ctx context.Context) error {
	cmd, replyCh := newCommand(KindShutdown)
	cmd.replyCh = replyCh
	_, err := h.submit(ctx, cmd, replyCh)
	return err
}

// ProvidePIN answers a parked PIN prompt.
func (h Handle) ProvidePIN(sessionID, pin string) bool {
	return h.sessions.Answer(sessionID, interactive.Answer{Text: pin})
}

// ProvidePassphrase answers a parked passphrase prompt.
func (h Handle) ProvidePassphrase(sessionID, passphrase string) bool {
	return h.sessions.Answer(sessionID, interactive.Answer{Text: passphrase})
}

// CancelPrompt cancels a parked interactive prompt.
func (h Handle) CancelPrompt(sessionID string) bool {
	return h.sessions.Cancel(sessionID)
}

// SigningResult is the Handle-facing view of a completed signing
// dialogue: the caller never sees the internal signing package types.
type SigningResult struct {
	RawTxHex   string
	Signatures []SignatureResult
}

// SignatureResult is one (input_index, signature) pair.
type SignatureResult struct {
	InputIndex int
	Signature  []byte
}
