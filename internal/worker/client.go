package worker

import (
	"sync"

	"github.com/keepkey-host/kkcore/internal/config"
	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/interactive"
	"github.com/keepkey-host/kkcore/internal/kkerr"
	"github.com/keepkey-host/kkcore/internal/transport"
)

// Client owns one Worker per attached device and hands out Handles to
// callers. It is the process-wide entry point: there is normally exactly
// one Client per running process, shared by every caller-facing surface
// (CLI, daemon, library embedder).
type Client struct {
	cfg       config.Core
	hidOpener transport.HIDOpener
	emit      interactive.EmitFunc
	sessions  *interactive.Table

	mu      sync.Mutex
	workers map[string]*Worker
}

// NewClient constructs a Client. emit may be nil if the caller never
// expects interactive prompts to surface anywhere.
func NewClient(cfg config.Core, hidOpener transport.HIDOpener, emit interactive.EmitFunc) *Client {
	return &Client{
		cfg:       cfg,
		hidOpener: hidOpener,
		emit:      emit,
		sessions:  interactive.NewTable(),
		workers:   make(map[string]*Worker),
	}
}

// Acquire returns a Handle for desc, starting its Worker's execution
// loop the first time a given device is seen and reusing it afterward.
func (c *Client) Acquire(desc device.Descriptor) Handle {
	id := desc.UniqueID()
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workers[id]
	if !ok {
		w = New(desc, c.cfg, c.sessions, c.hidOpener, c.emit)
		c.workers[id] = w
		go w.Run()
	}
	return newHandle(id, w.inbox, c.sessions)
}

// Metrics returns the rolling metrics window for a device already
// Acquired, or ok=false if no worker has been started for it yet.
func (c *Client) Metrics(deviceID string) (Snapshot, bool) {
	c.mu.Lock()
	w, ok := c.workers[deviceID]
	c.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return w.Metrics().Snapshot(), true
}

// Forget shuts down a device's Worker and drops it from the registry.
// A later Acquire for the same device starts a fresh Worker with an
// empty cache and metrics window.
func (c *Client) Forget(deviceID string) error {
	c.mu.Lock()
	w, ok := c.workers[deviceID]
	if ok {
		delete(c.workers, deviceID)
	}
	c.mu.Unlock()
	if !ok {
		return kkerr.New(kkerr.InvalidInput, "no worker registered for device")
	}
	cmd, replyCh := newCommand(KindShutdown)
	w.inbox <- cmd
	<-replyCh
	return nil
}
