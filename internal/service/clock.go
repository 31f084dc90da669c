package service

import (
	"time"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

// Now is truncated to microseconds, the precision postgres keeps, so a
// stamp read back from the store compares equal to the one written.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func resolveClock(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}

func resolveLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
