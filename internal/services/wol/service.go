// Package wol powers the ESXi host back on with Wake-on-LAN.
package wol

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fgeck/esximanager/internal/models"
	"github.com/fgeck/esximanager/internal/poll"
	"github.com/fgeck/esximanager/internal/services/reachability"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error)
}

// Client wraps the wol library for mocking.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// DefaultClient is the default implementation using mdlayher/wol.
type DefaultClient struct{}

// Wake sends a magic packet to the specified MAC address.
func (c *DefaultClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}

	if err := client.Wake(net.JoinHostPort(ip.String(), "9"), mac); err != nil {
		return fmt.Errorf("failed to send WOL packet: %w", err)
	}

	return nil
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient       Client
	reachabilitySvc reachability.Service // nil skips waiting for the host
	dryRun          bool
	logger          zerolog.Logger
}

// New creates a new WOL service that waits for the host through reachabilitySvc.
func New(logger zerolog.Logger, reachabilitySvc reachability.Service, dryRun bool) *Impl {
	return &Impl{
		wolClient:       &DefaultClient{},
		reachabilitySvc: reachabilitySvc,
		dryRun:          dryRun,
		logger:          logger,
	}
}

// NewWithClient creates a new WOL service with a custom client (for testing).
func NewWithClient(logger zerolog.Logger, wolClient Client, reachabilitySvc reachability.Service, dryRun bool) *Impl {
	return &Impl{
		wolClient:       wolClient,
		reachabilitySvc: reachabilitySvc,
		dryRun:          dryRun,
		logger:          logger,
	}
}

// Wake sends a WOL packet and waits for the host to answer pings.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) (*models.WOLResult, error) {
	result := &models.WOLResult{}
	start := time.Now()

	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		result.Error = fmt.Errorf("invalid MAC address %q: %w", cfg.MACAddress, err)
		return result, nil
	}

	if s.dryRun {
		s.logger.Info().
			Str("mac", cfg.MACAddress).
			Str("broadcast", cfg.BroadcastIP).
			Msg("dry run, not sending WOL packet")
		result.HostReachable = true
		return result, nil
	}

	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("broadcast", cfg.BroadcastIP).
		Msg("sending WOL packet")

	if err := s.wolClient.Wake(cfg.BroadcastIP, mac); err != nil {
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.PacketSent = true
	s.logger.Info().Msg("WOL packet sent successfully")

	if s.reachabilitySvc == nil {
		result.WaitDuration = time.Since(start)
		result.HostReachable = true
		return result, nil
	}

	s.logger.Info().
		Dur("timeout", cfg.Timeout).
		Msg("waiting for host to answer pings")

	outcome := s.reachabilitySvc.AwaitReachable(ctx, cfg.PollInterval, cfg.Timeout)
	if outcome != poll.OK {
		result.WaitDuration = time.Since(start)
		if ctx.Err() != nil {
			result.Error = ctx.Err()
		} else {
			result.Error = fmt.Errorf("timeout waiting for host after %s", cfg.Timeout)
		}
		return result, nil
	}

	if cfg.StabilizeWait > 0 {
		s.logger.Debug().Str("wait", cfg.StabilizeWait.Round(time.Millisecond).String()).Msg("waiting for host to stabilize")
		select {
		case <-ctx.Done():
			result.WaitDuration = time.Since(start)
			result.Error = ctx.Err()
			return result, nil
		case <-time.After(cfg.StabilizeWait):
		}
	}

	result.HostReachable = true
	result.WaitDuration = time.Since(start)

	s.logger.Info().
		Dur("duration", result.WaitDuration).
		Msg("host is reachable")

	return result, nil
}
