//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/inventory"
	"github.com/fgeck/esximanager/internal/services/power"
	"github.com/fgeck/esximanager/internal/services/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSHTestConnection_E2E(t *testing.T) {
	cfg := getESXiConfig(t)

	svc := ssh.New(testLogger(), cfg)
	defer func() { _ = svc.Close() }()

	result, err := svc.TestConnection(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Contains(t, result.Stdout, "OK")
	assert.Nil(t, result.Error)
}

func TestSSHConnectionFailed_E2E(t *testing.T) {
	keyPath := os.Getenv("TEST_ESXI_KEY_PATH")
	if keyPath == "" {
		t.Skip("TEST_ESXI_KEY_PATH not set")
	}

	cfg := models.ESXiConfig{
		Host:     "192.168.255.254", // Non-routable IP
		Port:     22,
		Username: "root",
		KeyPath:  keyPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := ssh.New(testLogger(), cfg)

	_, err := svc.TestConnection(ctx)

	require.Error(t, err)
}

func TestSSHInvalidKey_E2E(t *testing.T) {
	cfg := models.ESXiConfig{
		Host:       "localhost",
		Port:       22,
		Username:   "root",
		PrivateKey: []byte("invalid key"),
	}

	svc := ssh.New(testLogger(), cfg)

	_, err := svc.TestConnection(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse private key")
}

func TestInventoryAndPowerState_E2E(t *testing.T) {
	cfg := getESXiConfig(t)

	svc := ssh.New(testLogger(), cfg)
	defer func() { _ = svc.Close() }()

	inv, err := inventory.New(testLogger(), svc).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inv.Malformed)

	powerSvc := power.New(testLogger(), svc)
	for _, id := range inv.IDs() {
		vm := inv.VMs[id]
		running, err := powerSvc.IsRunning(context.Background(), id)
		require.NoError(t, err)
		t.Logf("vm %d %q running=%v", id, vm.Name, running)
	}
}
