// Package worker implements the per-device agent that serializes every
// Command against exactly one physical device: one inbox, one owned
// execution goroutine, exclusive transport tenancy for the duration of
// each Command, and nothing else touching the transport, cache, or
// metrics concurrently.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/keepkey-host/kkcore/internal/cache"
	"github.com/keepkey-host/kkcore/internal/config"
	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/kkerr"
	"github.com/keepkey-host/kkcore/internal/protocol"
	"github.com/keepkey-host/kkcore/internal/signing"
	"github.com/keepkey-host/kkcore/internal/transport"
)

// Worker owns a single device's descriptor, cache, and metrics. It reads
// Commands off its inbox one at a time, opening a fresh Transport for
// each and always dropping it before taking the next Command.
type Worker struct {
	descriptor device.Descriptor
	cfg        config.Core
	inbox      chan *Command
	cache      *cache.Cache
	metrics    *Metrics
	sessions   *interactive.Table
	emit       interactive.EmitFunc
	done       chan struct{}

	// openFunc opens a fresh Transport for one Command's duration. It is
	// a field rather than a direct call to transport.Open so tests can
	// substitute a scripted Transport without real hardware.
	openFunc func() (transport.Transport, error)
}

// New constructs a Worker for desc. sessions is the process-wide
// pending-interactive-session table, shared across every worker. emit
// notifies the external UI collaborator of prompt events; it may be nil
// if the caller never expects interactive Commands.
func New(desc device.Descriptor, cfg config.Core, sessions *interactive.Table, hidOpener transport.HIDOpener, emit interactive.EmitFunc) *Worker {
	return &Worker{
		descriptor: desc,
		cfg:        cfg,
		inbox:      make(chan *Command, cfg.InboxCapacity),
		cache:      cache.NewWithLimits(cfg.CacheTTL, cfg.CacheCapacity),
		metrics:    NewMetrics(),
		sessions:   sessions,
		emit:       emit,
		done:       make(chan struct{}),
		openFunc:   func() (transport.Transport, error) { return transport.Open(desc, hidOpener) },
	}
}

// Run is the worker's owned execution loop. It blocks until the inbox is
// closed or a Shutdown Command is processed; callers run it in its own
// goroutine.
func (w *Worker) Run() {
	defer close(w.done)
	for cmd := range w.inbox {
		if cmd.Kind == KindShutdown {
			cmd.replyCh <- Result{}
			return
		}
		w.process(cmd)
	}
}

// Metrics returns the worker's rolling metrics window.
func (w *Worker) Metrics() *Metrics { return w.metrics }

func (w *Worker) process(cmd *Command) {
	queueWait := time.Since(cmd.EnqueuedAt)
	start := time.Now()

	if key, cachable := cacheKeyFor(cmd); cachable {
		if reply, ok := w.cache.Get(key); ok {
			w.metrics.RecordHit()
			result, err := resultFromCachedReply(cmd.Kind, reply)
			cmd.replyCh <- withErr(result, err)
			w.metrics.RecordOperation(queueWait, 0, time.Since(start))
			return
		}
		w.metrics.RecordMiss()
	}

	ceiling := w.cfg.CommandTimeout
	if cmd.Kind == KindUpdateFirmware {
		ceiling = w.cfg.FirmwareTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), ceiling)
	defer cancel()

	deviceStart := time.Now()
	result, replyMsg, purge := w.execute(ctx, cmd)
	deviceRTT := time.Since(deviceStart)

	if purge {
		w.cache.Purge()
	} else if key, cachable := cacheKeyFor(cmd); cachable && result.Err == nil {
		if frame, err := protocol.Encode(replyMsg); err == nil {
			w.cache.Put(key, frame.Encode())
		}
	}

	cmd.replyCh <- result
	w.metrics.RecordOperation(queueWait, deviceRTT, time.Since(start))
}

// execute acquires a fresh Transport, dispatches by Command kind, and
// unconditionally closes the Transport before returning — the single
// most important stability invariant here: no Transport handle outlives
// a Command boundary.
func (w *Worker) execute(ctx context.Context, cmd *Command) (Result, protocol.Message, bool) {
	t, err := w.openWithRetry(ctx)
	if err != nil {
		return Result{Err: err}, nil, false
	}
	defer func() {
		if cerr := t.Close(); cerr != nil {
			log.Printf("worker: close transport for %s: %v", w.descriptor, cerr)
		}
	}()

	switch cmd.Kind {
	case KindGetFeatures:
		msg, err := interactive.Exchange(ctx, t, w.sessions, w.descriptor.UniqueID(), protocol.GetFeatures{}, []protocol.Tag{protocol.TagFeatures}, true, w.emit)
		if err != nil {
			return Result{Err: err}, nil, false
		}
		features := msg.(protocol.Features)
		return Result{Features: &features}, msg, false

	case KindGetAddress:
		req := protocol.GetAddress{
			AddressNList: cmd.GetAddress.AddressNList,
			CoinName:     cmd.GetAddress.CoinName,
			ScriptType:   cmd.GetAddress.ScriptType,
			ShowDisplay:  cmd.GetAddress.ShowDisplay,
		}
		msg, err := interactive.Exchange(ctx, t, w.sessions, w.descriptor.UniqueID(), req, []protocol.Tag{protocol.TagAddress}, false, w.emit)
		if err != nil {
			return Result{Err: err}, nil, false
		}
		addr := msg.(protocol.Address)
		return Result{Address: &addr}, msg, false

	case KindSignTx:
		req := signing.Request{
			CoinName: cmd.SignTx.CoinName,
			Inputs:   cmd.SignTx.Inputs,
			Outputs:  cmd.SignTx.Outputs,
			PrevTxs:  cmd.SignTx.PrevTxs,
			Version:  cmd.SignTx.Version,
			LockTime: cmd.SignTx.LockTime,
		}
		res, err := signing.Drive(ctx, t, w.sessions, w.descriptor.UniqueID(), req, w.emit)
		if err != nil {
			return Result{Err: err}, nil, true
		}
		// The signing dialogue's replies are state-mutating by classification
		// (TxRequest); always purge, never cache.
		return Result{Signing: &res}, nil, true

	case KindSendRaw:
		msg, err := interactive.Exchange(ctx, t, w.sessions, w.descriptor.UniqueID(), cmd.SendRaw.Msg, nil, false, w.emit)
		if err != nil {
			return Result{Err: err}, nil, false
		}
		return Result{Raw: msg}, msg, cache.MutatingReply(tagName(msg))

	case KindUpdateFirmware:
		msg, err := interactive.Exchange(ctx, t, w.sessions, w.descriptor.UniqueID(), protocol.FirmwareUpload{Payload: cmd.Firmware.Bytes}, []protocol.Tag{protocol.TagSuccess}, false, w.emit)
		if err != nil {
			return Result{Err: err}, nil, true
		}
		return Result{Raw: msg}, msg, true

	default:
		return Result{Err: kkerr.New(kkerr.InvalidInput, "unknown command kind")}, nil, false
	}
}

// openWithRetry opens a Transport via the Selector, sleeping 2s between
// attempts on failure until ctx's deadline is reached. Recovery from a
// hot unplug/replug happens here transparently: the caller never sees
// the intermediate failures, only the eventual success or the ceiling
// expiring.
func (w *Worker) openWithRetry(ctx context.Context) (transport.Transport, error) {
	for {
		t, err := w.openFunc()
		if err == nil {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return nil, kkerr.Wrap(kkerr.Timeout, "open transport", ctx.Err())
		case <-time.After(w.cfg.TransportOpenRetryDelay):
		}
	}
}

func tagName(m protocol.Message) string {
	switch m.(type) {
	case protocol.Success:
		return "Success"
	case protocol.TxRequest:
		return "TxRequest"
	case protocol.PinMatrixRequest:
		return "PinMatrixRequest"
	case protocol.PassphraseRequest:
		return "PassphraseRequest"
	default:
		return ""
	}
}

func resultFromCachedReply(kind Kind, reply []byte) (Result, error) {
	frame, _, err := protocol.DecodeFrame(reply)
	if err != nil {
		return Result{}, kkerr.Wrap(kkerr.ProtocolError, "decode cached reply", err)
	}
	msg, err := protocol.Decode(frame)
	if err != nil {
		return Result{}, kkerr.Wrap(kkerr.ProtocolError, "decode cached reply", err)
	}
	switch kind {
	case KindGetAddress:
		addr := msg.(protocol.Address)
		return Result{Address: &addr}, nil
	case KindSendRaw:
		return Result{Raw: msg}, nil
	default:
		return Result{Raw: msg}, nil
	}
}

func withErr(result Result, err error) Result {
	if err != nil {
		result.Err = err
	}
	return result
}
