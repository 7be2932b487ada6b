//go:build e2e

package e2e

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/poll"
	"github.com/fgeck/openvpn-backup/internal/services/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getSSHConfig(t *testing.T) (models.SSHConfig, string) {
	t.Helper()

	host := os.Getenv("TEST_SSH_HOST")
	if host == "" {
		t.Skip("TEST_SSH_HOST not set")
	}

	portStr := os.Getenv("TEST_SSH_PORT")
	if portStr == "" {
		portStr = "22"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv("TEST_SSH_USER")
	if user == "" {
		user = "root"
	}

	keyPath := os.Getenv("TEST_SSH_KEY_PATH")
	if keyPath == "" {
		t.Skip("TEST_SSH_KEY_PATH not set")
	}
	key, err := os.ReadFile(keyPath)
	require.NoError(t, err)

	return models.SSHConfig{
		Username:       user,
		Port:           port,
		KeyPath:        keyPath,
		PrivateKey:     key,
		KnownHostsPath: os.Getenv("TEST_SSH_KNOWN_HOSTS"),
		Address:        models.SSHAddressPublic,
	}, host
}

func TestSSHTestConnection_E2E(t *testing.T) {
	cfg, host := getSSHConfig(t)

	executor := ssh.New(testLogger(), cfg)

	output, err := executor.TestConnection(context.Background(), host)

	require.NoError(t, err)
	assert.Contains(t, output, "OK")
}

func TestSSHDispatch_E2E(t *testing.T) {
	cfg, host := getSSHConfig(t)

	executor := ssh.New(testLogger(), cfg)
	ctx := context.Background()

	commandID, err := executor.Dispatch(ctx, models.CommandRequest{
		Instance: models.Instance{ID: "i-e2e", State: models.InstanceStateRunning, PublicIP: host},
		Script:   "echo backup-e2e\n",
		Comment:  "e2e",
		Timeout:  time.Minute,
	})
	require.NoError(t, err)

	var invocation *models.CommandInvocation
	poller := poll.New(500*time.Millisecond, 30*time.Second)
	err = poller.Until(ctx, func(ctx context.Context) (bool, error) {
		inv, err := executor.Invocation(ctx, commandID, "i-e2e")
		if err != nil {
			return false, err
		}
		invocation = inv
		return inv.Terminal(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, models.CommandSuccess, invocation.Status)
	assert.Contains(t, invocation.Stdout, "backup-e2e")
}

func TestSSHTestConnection_WrongPort_E2E(t *testing.T) {
	cfg, host := getSSHConfig(t)
	cfg.Port = 1

	executor := ssh.New(testLogger(), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := executor.TestConnection(ctx, host)

	assert.Error(t, err)
}
