//go:build e2e

package e2e

import (
	"io"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// getESXiConfig reads the target host from TEST_ESXI_* variables and skips
// the test when none is configured.
func getESXiConfig(t *testing.T) models.ESXiConfig {
	t.Helper()

	host := os.Getenv("TEST_ESXI_HOST")
	if host == "" {
		t.Skip("TEST_ESXI_HOST not set")
	}

	portStr := os.Getenv("TEST_ESXI_PORT")
	if portStr == "" {
		portStr = "22"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv("TEST_ESXI_USER")
	if user == "" {
		user = "root"
	}

	keyPath := os.Getenv("TEST_ESXI_KEY_PATH")
	password := os.Getenv("TEST_ESXI_PASSWORD")
	if keyPath == "" && password == "" {
		t.Skip("neither TEST_ESXI_KEY_PATH nor TEST_ESXI_PASSWORD set")
	}

	return models.ESXiConfig{
		Host:           host,
		Port:           port,
		Username:       user,
		KeyPath:        keyPath,
		Password:       password,
		Shell:          "/bin/sh -l -c",
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 30 * time.Second,
	}
}
