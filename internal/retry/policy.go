// Package retry implements the Retry Policy: a plain value plus a pure
// delay function, swapped via a function field rather than a class
// hierarchy.
package retry

import (
	"errors"
	"io"
	"math"
	"net"
	"time"

	"github.com/ftpsheep/ftpsheep/internal/deployerr"
)

// Policy is an immutable retry decision object. Build one with New and do
// not mutate it after construction — the same Policy value is shared
// across every worker in the Upload Engine.
type Policy struct {
	MaxAttempts           int
	InitialDelay          time.Duration
	MaxDelay              time.Duration
	BackoffMultiplier     float64
	UseExponentialBackoff bool
	IsRetryable           func(err error) bool
}

// New builds a Policy with the default transient-error classifier.
// MaxAttempts=0 disables retry entirely (delay/retry loop never runs).
func New(maxAttempts int, initialDelay, maxDelay time.Duration, multiplier float64, exponential bool) Policy {
	return Policy{
		MaxAttempts:           maxAttempts,
		InitialDelay:          initialDelay,
		MaxDelay:              maxDelay,
		BackoffMultiplier:     multiplier,
		UseExponentialBackoff: exponential,
		IsRetryable:           DefaultIsRetryable,
	}
}

// Delay returns the sleep duration before retry attempt k (0-based: k=0 is
// the delay before the first retry, i.e. after the first failure).
func (p Policy) Delay(k int) time.Duration {
	if !p.UseExponentialBackoff {
		return p.InitialDelay
	}
	scaled := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(k))
	if scaled > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if scaled < float64(p.InitialDelay) {
		return p.InitialDelay
	}
	return time.Duration(scaled)
}

// DefaultIsRetryable classifies transient I/O/socket/timeout and
// driver-flagged transient errors as retryable; authentication, build, and
// validation failures are not.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *deployerr.AuthError:
		return false
	case *deployerr.BuildError:
		return false
	case *deployerr.ValidationError:
		return false
	case *deployerr.ConfigError:
		return false
	case *deployerr.ProfileNotFoundError:
		return false
	case *deployerr.Cancelled:
		return false
	case *deployerr.ConnectionError:
		return e.Transient
	case *deployerr.TransferError:
		return e.Transient
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return true
		}
		return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	}
}
