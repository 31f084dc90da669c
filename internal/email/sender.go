package email

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

// Transport hands rendered messages to whatever delivers them.
type Transport interface {
	Send(ctx context.Context, msgs []*gomail.Message) error
}

// SimulatedSender stands in for a real mail transport. It serializes every
// message, pauses once for Delay and reports success. Nothing leaves the process.
type SimulatedSender struct {
	Delay   time.Duration
	Limiter *rate.Limiter
	Out     io.Writer
	Log     *zap.Logger
}

func (s *SimulatedSender) Send(ctx context.Context, msgs []*gomail.Message) error {
	out := s.Out
	if out == nil {
		out = io.Discard
	}

	var size int64
	for _, m := range msgs {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("dispatch rate limiter: %w", err)
			}
		}
		n, err := m.WriteTo(out)
		if err != nil {
			return fmt.Errorf("serialize message to %v: %w", m.GetHeader("To"), err)
		}
		size += n
	}

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.Log != nil {
		s.Log.Info("simulated dispatch complete",
			zap.Int("messages", len(msgs)),
			zap.Int64("bytes", size),
			zap.Duration("delay", s.Delay),
		)
	}
	return nil
}
