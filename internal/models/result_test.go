package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTail(t *testing.T) {
	assert.Equal(t, "", Tail("", 10))
	assert.Equal(t, "short", Tail("short", 10))
	assert.Equal(t, "6789", Tail("0123456789", 4))
	assert.Equal(t, "öü", Tail("äöü", 2))
}

func TestFailedResult_Truncates(t *testing.T) {
	r := FailedResult("i-1", CommandTimedOut, strings.Repeat("x", 1500), "err")

	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "Command status: TimedOut", r.Error)
	assert.Len(t, r.Stdout, OutputTailLength)
	assert.Equal(t, "err", r.Stderr)
	assert.True(t, r.Failed())
}

func TestResultJSON(t *testing.T) {
	tests := []struct {
		name   string
		result BackupResult
		want   string
	}{
		{
			name:   "success",
			result: SuccessResult("i-1", "openvpn_backup_i-1_20240101_000000.tar.gz", "20240101_000000"),
			want:   `{"instance_id":"i-1","status":"success","backup_file":"openvpn_backup_i-1_20240101_000000.tar.gz","timestamp":"20240101_000000"}`,
		},
		{
			name:   "skipped",
			result: SkippedResult("i-2", "Instance not running (state: stopped)"),
			want:   `{"instance_id":"i-2","status":"skipped","reason":"Instance not running (state: stopped)"}`,
		},
		{
			name:   "error",
			result: ErrorResult("i-3", errors.New("boom")),
			want:   `{"instance_id":"i-3","status":"error","error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestCommandInvocation_Terminal(t *testing.T) {
	for _, s := range []string{CommandSuccess, CommandFailed, CommandCancelled, CommandTimedOut} {
		assert.True(t, CommandInvocation{Status: s}.Terminal(), s)
	}
	for _, s := range []string{CommandPending, CommandInProgress, "Delayed", ""} {
		assert.False(t, CommandInvocation{Status: s}.Terminal(), s)
	}
}
