// Package reachability tells whether the ESXi host answers on the network.
package reachability

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/esximanager/internal/poll"
	"github.com/fgeck/esximanager/internal/services/executor"
	"github.com/fgeck/esximanager/internal/vimcmd"
	"github.com/rs/zerolog"
)

// Service defines the interface for reachability checks.
type Service interface {
	Ping(ctx context.Context) (bool, error)
	AwaitUnreachable(ctx context.Context, interval, timeout time.Duration) poll.Outcome
	AwaitReachable(ctx context.Context, interval, timeout time.Duration) poll.Outcome
}

// Impl implements the reachability Service interface by running ping locally.
type Impl struct {
	local  executor.Runner
	host   string
	logger zerolog.Logger
}

// New creates a new reachability service for host, pinging through local.
func New(logger zerolog.Logger, local executor.Runner, host string) *Impl {
	return &Impl{
		local:  local,
		host:   host,
		logger: logger,
	}
}

// Ping sends one echo request. An error means ping itself could not be run and
// says nothing about the host.
func (s *Impl) Ping(ctx context.Context) (bool, error) {
	argv := vimcmd.Ping(s.host)
	result, err := s.local.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return false, fmt.Errorf("running ping: %w", err)
	}

	s.logger.Debug().
		Str("host", s.host).
		Bool("answered", result.Succeeded).
		Strs("stdout", result.Stdout).
		Str("stderr", result.Stderr).
		Msg("ping result")

	return result.Succeeded, nil
}

// AwaitUnreachable polls until a ping goes unanswered. One lost ping is enough.
func (s *Impl) AwaitUnreachable(ctx context.Context, interval, timeout time.Duration) poll.Outcome {
	return poll.WaitFor(ctx, s.check(false), interval, timeout)
}

// AwaitReachable polls until a ping is answered.
func (s *Impl) AwaitReachable(ctx context.Context, interval, timeout time.Duration) poll.Outcome {
	return poll.WaitFor(ctx, s.check(true), interval, timeout)
}

func (s *Impl) check(wantAnswer bool) poll.CheckFunc {
	return func(ctx context.Context) poll.Outcome {
		answered, err := s.Ping(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("host", s.host).Msg("unable to ping host")
			return poll.Wait
		}
		if answered != wantAnswer {
			s.logger.Info().Str("host", s.host).Bool("answering", answered).Msg("waiting for host")
			return poll.Wait
		}
		return poll.OK
	}
}
