//go:build e2e

package e2e

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/local"
	"github.com/fgeck/esximanager/internal/services/reachability"
	"github.com/fgeck/esximanager/internal/services/wol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWOLClient struct {
	called bool
}

func (m *mockWOLClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	m.called = true
	return nil
}

// Waking "localhost" exercises the real ping path without sending a packet.
func TestWOL_LocalhostAnswers_E2E(t *testing.T) {
	wolClient := &mockWOLClient{}
	reach := reachability.New(testLogger(), local.New(testLogger()), "127.0.0.1")

	svc := wol.NewWithClient(testLogger(), wolClient, reach, false)

	cfg := models.WOLConfig{
		MACAddress:    "AA:BB:CC:DD:EE:FF",
		BroadcastIP:   "255.255.255.255",
		Timeout:       10 * time.Second,
		PollInterval:  100 * time.Millisecond,
		StabilizeWait: 100 * time.Millisecond,
	}

	result, err := svc.Wake(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, wolClient.called)
	assert.True(t, result.PacketSent)
	assert.True(t, result.HostReachable)
	assert.Nil(t, result.Error)
	assert.GreaterOrEqual(t, result.WaitDuration, 100*time.Millisecond)
}

func TestWOL_UnreachableHostTimesOut_E2E(t *testing.T) {
	reach := reachability.New(testLogger(), local.New(testLogger()), "192.168.255.254")

	svc := wol.NewWithClient(testLogger(), &mockWOLClient{}, reach, false)

	cfg := models.WOLConfig{
		MACAddress:   "AA:BB:CC:DD:EE:FF",
		BroadcastIP:  "255.255.255.255",
		Timeout:      3 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}

	result, err := svc.Wake(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.False(t, result.HostReachable)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "timeout")
}
