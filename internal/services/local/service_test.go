package local

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	runFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, name, args...)
	}
	return nil, nil, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestRun_Success(t *testing.T) {
	var capturedName string
	var capturedArgs []string

	runner := &mockRunner{
		runFunc: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			capturedName = name
			capturedArgs = args
			return []byte("1 packets transmitted, 1 received\n"), nil, nil
		},
	}

	svc := NewWithRunner(testLogger(), runner)
	result, err := svc.Run(context.Background(), "ping", "-c", "1", "-w", "1", "esxi.example.com")

	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, "ping -c 1 -w 1 esxi.example.com", result.Command)
	assert.Equal(t, []string{"1 packets transmitted, 1 received"}, result.Stdout)
	assert.Equal(t, "ping", capturedName)
	assert.Equal(t, []string{"-c", "1", "-w", "1", "esxi.example.com"}, capturedArgs)
}

func TestRun_StartFailure(t *testing.T) {
	runner := &mockRunner{
		runFunc: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return nil, nil, errors.New("executable file not found")
		},
	}

	svc := NewWithRunner(testLogger(), runner)
	result, err := svc.Run(context.Background(), "ping", "esxi.example.com")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executable file not found")
}

func TestRun_RealProgram(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	svc := New(testLogger())

	result, err := svc.Run(context.Background(), "sh", "-c", "echo hello; echo oops >&2")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, []string{"hello"}, result.Stdout)
	assert.Equal(t, "oops", result.Stderr)

	result, err = svc.Run(context.Background(), "sh", "-c", "exit 3")
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "status 3")
}

func TestRun_ArgumentsAreNotInterpreted(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	marker := filepath.Join(t.TempDir(), "created")
	svc := New(testLogger())

	result, err := svc.Run(context.Background(), "echo", "host.invalid; touch "+marker+"; true")

	require.NoError(t, err)
	assert.Equal(t, []string{"host.invalid; touch " + marker + "; true"}, result.Stdout)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}
