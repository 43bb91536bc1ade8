// Package ssh runs commands on the ESXi host over SSH.
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

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Service defines the interface for SSH operations.
type Service interface {
	executor.Executor
	TestConnection(ctx context.Context) (*models.CommandResult, error)
	Close() error
}

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	Run(cmd string, stdout, stderr io.Writer) error
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

func (s *defaultSSHSession) Run(cmd string, stdout, stderr io.Writer) error {
	s.session.Stdout = stdout
	s.session.Stderr = stderr
	return s.session.Run(cmd)
}

func (s *defaultSSHSession) Close() error {
	return s.session.Close()
}

// Impl implements the SSH Service interface. The connection is opened on first
// use and reused for later commands until it breaks.
type Impl struct {
	cfg           models.ESXiConfig
	clientFactory ClientFactory
	logger        zerolog.Logger

	mu     sync.Mutex
	client SSHClient
}

// New creates a new SSH service for the configured host.
func New(logger zerolog.Logger, cfg models.ESXiConfig) *Impl {
	return &Impl{
		cfg:           cfg,
		clientFactory: &DefaultClientFactory{},
		logger:        logger,
	}
}

// NewWithClientFactory creates a new SSH service with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, cfg models.ESXiConfig, factory ClientFactory) *Impl {
	return &Impl{
		cfg:           cfg,
		clientFactory: factory,
		logger:        logger,
	}
}

func (s *Impl) buildConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	var key []byte
	var err error
	if len(s.cfg.PrivateKey) > 0 {
		key = s.cfg.PrivateKey
	} else if s.cfg.KeyPath != "" {
		key, err = os.ReadFile(s.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", s.cfg.KeyPath, err)
		}
	}

	if key != nil {
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("no private key or password provided")
	}

	timeout := s.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // homelab environment
		Timeout:         timeout,
	}, nil
}

func (s *Impl) addr() string {
	port := s.cfg.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
}

// connect returns the cached client or dials a new one. Callers hold s.mu.
func (s *Impl) connect(ctx context.Context) (SSHClient, error) {
	if s.client != nil {
		return s.client, nil
	}

	sshConfig, err := s.buildConfig()
	if err != nil {
		return nil, err
	}

	addr := s.addr()
	s.logger.Debug().Str("addr", addr).Str("user", s.cfg.Username).Msg("connecting to host")

	clientChan := make(chan struct {
		client SSHClient
		err    error
	}, 1)

	go func() {
		client, err := s.clientFactory.NewClient("tcp", addr, sshConfig)
		clientChan <- struct {
			client SSHClient
			err    error
		}{client, err}
	}()

	select {
	case <-ctx.Done():
		// The dial keeps going in the background; close whatever it returns.
		go func() {
			if res := <-clientChan; res.client != nil {
				if err := res.client.Close(); err != nil {
					s.logger.Debug().Err(err).Msg("error closing abandoned ssh connection")
				}
			}
		}()
		return nil, ctx.Err()
	case res := <-clientChan:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect: %w", res.err)
		}
		s.client = res.client
		return s.client, nil
	}
}

// reset drops a broken connection so the next command redials. Callers hold s.mu.
func (s *Impl) reset() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("error closing ssh connection")
	}
	s.client = nil
}

// wrap runs command through the configured login shell.
func (s *Impl) wrap(command string) string {
	if s.cfg.Shell == "" {
		return command
	}
	return s.cfg.Shell + " " + shellQuote(command)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Execute runs command on the host.
func (s *Impl) Execute(ctx context.Context, command string) (*models.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &models.CommandResult{Command: command}

	if s.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommandTimeout)
		defer cancel()
	}

	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		s.reset()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	s.logger.Debug().Str("command", command).Msg("executing remote command")

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- session.Run(s.wrap(command), &stdout, &stderr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		_ = session.Close()
		s.reset()
		result.Error = fmt.Errorf("command interrupted: %w", ctx.Err())
		return result, nil
	case runErr = <-done:
	}

	result.Stdout = executor.SplitLines(stdout.String())
	result.Stderr = strings.TrimSpace(stderr.String())

	var exitErr *ssh.ExitError
	var exitMissing *ssh.ExitMissingError
	switch {
	case runErr == nil:
		result.Succeeded = true
	case errors.As(runErr, &exitMissing):
		// The host may drop the connection before reporting an exit status,
		// which is what poweroff does.
		s.logger.Warn().Str("command", command).Msg("connection closed before exit status (may be expected)")
		result.Succeeded = true
		s.reset()
	case errors.As(runErr, &exitErr):
		result.Error = fmt.Errorf("command exited with status %d: %s", exitErr.ExitStatus(), result.Stderr)
	default:
		result.Error = fmt.Errorf("command failed: %w", runErr)
		s.reset()
	}

	s.logger.Debug().
		Str("command", command).
		Bool("succeeded", result.Succeeded).
		Int("lines", len(result.Stdout)).
		Msg("remote command completed")

	return result, nil
}

// TestConnection verifies SSH connectivity without changing anything on the host.
func (s *Impl) TestConnection(ctx context.Context) (*models.CommandResult, error) {
	s.logger.Debug().
		Str("host", s.cfg.Host).
		Int("port", s.cfg.Port).
		Msg("testing SSH connection")

	result, err := s.Execute(ctx, "echo OK")
	if err != nil {
		return nil, err
	}
	if !result.Succeeded {
		result.Error = fmt.Errorf("test command failed: %w", result.Error)
	}
	return result, nil
}

// Close closes the cached connection, if any.
func (s *Impl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
