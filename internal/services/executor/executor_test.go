package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSucceeded(t *testing.T) {
	tests := []struct {
		name    string
		result  *models.CommandResult
		err     error
		want    bool
		wantErr string
	}{
		{
			name:   "command succeeded",
			result: &models.CommandResult{Succeeded: true},
			want:   true,
		},
		{
			name:    "command failed",
			result:  &models.CommandResult{Succeeded: false, Error: errors.New("exit status 1")},
			wantErr: "exit status 1",
		},
		{
			name:    "command not run",
			err:     errors.New("failed to connect"),
			wantErr: "failed to connect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			e := Func(func(ctx context.Context, command string) (*models.CommandResult, error) {
				captured = command
				return tt.result, tt.err
			})

			ok, err := Succeeded(context.Background(), e, "poweroff")

			assert.Equal(t, "poweroff", captured)
			assert.Equal(t, tt.want, ok)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Nil(t, SplitLines("\n"))
	assert.Equal(t, []string{"Retrieved runtime info", "Powered on"}, SplitLines("Retrieved runtime info\nPowered on\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\r\n\r\nb\r\n"))
}
