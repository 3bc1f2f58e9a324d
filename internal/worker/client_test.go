package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keepkey-host/kkcore/internal/device"
	"github.com/keepkey-host/kkcore/internal/protocol"
	"github.com/keepkey-host/kkcore/internal/transport"
)

func TestClientAcquireReusesWorkerForSameDevice(t *testing.T) {
	c := NewClient(testConfig(), nil, nil)
	desc := testDescriptor()

	h1 := c.Acquire(desc)
	h2 := c.Acquire(desc)
	require.Equal(t, h1.inbox, h2.inbox, "acquiring the same device twice must share one worker inbox")

	require.NoError(t, c.Forget(desc.UniqueID()))
}

func TestClientForgetUnknownDeviceFails(t *testing.T) {
	c := NewClient(testConfig(), nil, nil)
	err := c.Forget("never-acquired")
	require.Error(t, err)
}

func TestClientHandleRoundTripsThroughAcquiredWorker(t *testing.T) {
	c := NewClient(testConfig(), nil, nil)
	desc := testDescriptor()
	h := c.Acquire(desc)

	c.mu.Lock()
	w := c.workers[desc.UniqueID()]
	c.mu.Unlock()
	w.openFunc = func() (transport.Transport, error) {
		return &scriptedTransport{inbound: []protocol.Message{protocol.Features{Label: "client-path"}}}, nil
	}

	features, err := h.GetFeatures(context.Background())
	require.NoError(t, err)
	require.Equal(t, "client-path", features.Label)

	require.NoError(t, c.Forget(desc.UniqueID()))
}
