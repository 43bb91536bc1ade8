//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/poll"
	"github.com/fgeck/esximanager/internal/services/local"
	"github.com/fgeck/esximanager/internal/services/shutdown"
	"github.com/fgeck/esximanager/internal/services/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dry run only: the inventory and power states are read from the real host
// but nothing is shut down.
func TestShutdownDryRun_E2E(t *testing.T) {
	esxi := getESXiConfig(t)

	svc := ssh.New(testLogger(), esxi)
	defer func() { _ = svc.Close() }()

	cfg := models.Config{
		ESXi: esxi,
		Shutdown: models.ShutdownConfig{
			DryRun:              true,
			VMPollInterval:      time.Second,
			VMPowerOffTimeout:   10 * time.Second,
			HostPollInterval:    time.Second,
			HostPowerOffTimeout: 10 * time.Second,
		},
	}

	result := shutdown.New(testLogger(), cfg, svc, local.New(testLogger())).Run(context.Background())

	require.NoError(t, result.Error)
	assert.True(t, result.DryRun)
	assert.True(t, result.HostPowerOffSent)
	assert.Equal(t, poll.OK, result.HostWait)
	assert.Empty(t, result.StillRunning)
	t.Logf("found %d VMs, %d running", result.VMsFound, len(result.RunningVMs))
}
