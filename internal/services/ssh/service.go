// Package ssh runs backup scripts on instances over SSH.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fgeck/openvpn-backup/internal/models"
	"github.com/fgeck/openvpn-backup/internal/services/command"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// RemoteCommand is what the script is piped into on the remote host.
const RemoteCommand = "sudo bash -s"

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	Run(cmd string, stdin io.Reader, stdout, stderr io.Writer) error
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory is the default SSH client factory.
type DefaultClientFactory struct{}

// NewClient creates a new SSH client.
func (f *DefaultClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &defaultSSHClient{client: client}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &defaultSSHSession{session: session}, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

type defaultSSHSession struct {
	session *ssh.Session
}

func (s *defaultSSHSession) Run(cmd string, stdin io.Reader, stdout, stderr io.Writer) error {
	s.session.Stdin = stdin
	s.session.Stdout = stdout
	s.session.Stderr = stderr
	return s.session.Run(cmd)
}

func (s *defaultSSHSession) Close() error {
	return s.session.Close()
}

// job is a script running in the background.
type job struct {
	instanceID string
	status     string
	stdout     string
	stderr     string
}

// Executor implements command.Executor over SSH. Each dispatched script runs
// in its own goroutine and is observed through Invocation.
type Executor struct {
	cfg           models.SSHConfig
	clientFactory ClientFactory
	logger        zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

var _ command.Executor = (*Executor)(nil)

// New creates a new SSH executor.
func New(logger zerolog.Logger, cfg models.SSHConfig) *Executor {
	return NewWithClientFactory(logger, cfg, &DefaultClientFactory{})
}

// NewWithClientFactory creates a new SSH executor with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, cfg models.SSHConfig, factory ClientFactory) *Executor {
	return &Executor{
		cfg:           cfg,
		clientFactory: factory,
		logger:        logger,
		jobs:          make(map[string]*job),
	}
}

func (e *Executor) buildConfig() (*ssh.ClientConfig, error) {
	var key []byte
	var err error

	if len(e.cfg.PrivateKey) > 0 {
		key = e.cfg.PrivateKey
	} else if e.cfg.KeyPath != "" {
		key, err = os.ReadFile(e.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", e.cfg.KeyPath, err)
		}
	} else {
		return nil, fmt.Errorf("no private key provided")
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // only when no known_hosts file is configured
	if e.cfg.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(e.cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            e.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}, nil
}

// Address returns the host:port used to reach an instance.
func (e *Executor) Address(inst models.Instance) (string, error) {
	host := e.cfg.Hosts[inst.ID]
	if host == "" {
		if e.cfg.Address == models.SSHAddressPrivate {
			host = inst.PrivateIP
		} else {
			host = inst.PublicIP
		}
	}
	if host == "" {
		return "", fmt.Errorf("no %s address known for instance %s", e.cfg.Address, inst.ID)
	}
	return net.JoinHostPort(host, strconv.Itoa(e.cfg.Port)), nil
}

func (e *Executor) connect(ctx context.Context, addr string) (SSHClient, error) {
	sshConfig, err := e.buildConfig()
	if err != nil {
		return nil, err
	}

	clientChan := make(chan struct {
		client SSHClient
		err    error
	}, 1)

	go func() {
		client, err := e.clientFactory.NewClient("tcp", addr, sshConfig)
		clientChan <- struct {
			client SSHClient
			err    error
		}{client, err}
	}()

	select {
	case <-ctx.Done():
		// The dial may still succeed; close that client once it arrives.
		go func() {
			if res := <-clientChan; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-clientChan:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, res.err)
		}
		return res.client, nil
	}
}

// Dispatch connects to the instance and starts the script in the background.
func (e *Executor) Dispatch(ctx context.Context, req models.CommandRequest) (string, error) {
	addr, err := e.Address(req.Instance)
	if err != nil {
		return "", err
	}

	client, err := e.connect(ctx, addr)
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	commandID := uuid.NewString()
	j := &job{instanceID: req.Instance.ID, status: models.CommandInProgress}

	e.mu.Lock()
	e.jobs[commandID] = j
	e.mu.Unlock()

	e.logger.Info().
		Str("instance_id", req.Instance.ID).
		Str("command_id", commandID).
		Str("addr", addr).
		Msg("backup script started over SSH")

	runCtx := ctx
	var cancel context.CancelFunc = func() {}
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}

	go func() {
		defer cancel()
		defer client.Close()
		defer session.Close()
		e.run(runCtx, commandID, j, session, req.Script)
	}()

	return commandID, nil
}

func (e *Executor) run(ctx context.Context, commandID string, j *job, session SSHSession, script string) {
	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)

	go func() {
		done <- session.Run(RemoteCommand, strings.NewReader(script), &stdout, &stderr)
	}()

	var status string
	select {
	case <-ctx.Done():
		// Closing the session unblocks Run.
		_ = session.Close()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = models.CommandTimedOut
		} else {
			status = models.CommandCancelled
		}
	case err := <-done:
		switch {
		case err == nil:
			status = models.CommandSuccess
		default:
			var exitErr *ssh.ExitError
			if !errors.As(err, &exitErr) {
				stderr.WriteString(err.Error())
			}
			status = models.CommandFailed
		}
	}

	e.mu.Lock()
	j.status = status
	j.stdout = stdout.String()
	j.stderr = stderr.String()
	e.mu.Unlock()

	e.logger.Debug().
		Str("command_id", commandID).
		Str("status", status).
		Msg("SSH backup script finished")
}

// Invocation returns the current state of a dispatched script.
func (e *Executor) Invocation(_ context.Context, commandID, instanceID string) (*models.CommandInvocation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	j, ok := e.jobs[commandID]
	if !ok || j.instanceID != instanceID {
		return nil, fmt.Errorf("%w: %s on %s", command.ErrInvocationNotFound, commandID, instanceID)
	}

	inv := &models.CommandInvocation{
		CommandID:  commandID,
		InstanceID: instanceID,
		Status:     j.status,
		Stdout:     j.stdout,
		Stderr:     j.stderr,
	}

	// A terminal status is reported once; the job is forgotten afterwards.
	if inv.Terminal() {
		delete(e.jobs, commandID)
	}

	return inv, nil
}

// TestConnection verifies SSH connectivity to a host without running the backup.
func (e *Executor) TestConnection(ctx context.Context, host string) (string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(e.cfg.Port))

	e.logger.Debug().Str("addr", addr).Msg("testing SSH connection")

	client, err := e.connect(ctx, addr)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	if err := session.Run("echo OK", nil, &out, &out); err != nil {
		return out.String(), fmt.Errorf("test command failed: %w", err)
	}
	return out.String(), nil
}
