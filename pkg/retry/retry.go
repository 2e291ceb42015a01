// Package retry drives failed operations through backoff, classification
// and client-identity rotation.
package retry

import (
	"context"
	"math/rand"
	"time"

	"main/pkg/logger"
	"main/pkg/models"
)

const (
	// DefaultMaxAttempts bounds how often a single operation is tried.
	DefaultMaxAttempts = 5
	// DefaultBaseDelay is the backoff base before the exponential factor.
	DefaultBaseDelay = 1 * time.Second
)

// Rotator swaps the client identity when the upstream starts rejecting it.
type Rotator interface {
	Rotate() error
}

// Policy retries an operation according to the failure taxonomy. Sleep and
// Jitter are replaceable for tests.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      func() time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// NewPolicy returns a policy with production defaults.
func NewPolicy() *Policy {
	return &Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Jitter:      defaultJitter,
		Sleep:       sleepCtx,
	}
}

// defaultJitter spreads retries out by 500..1500ms so parallel consumers
// don't hammer the upstream in lockstep.
func defaultJitter() time.Duration {
	return time.Duration(500+rand.Intn(1001)) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the sleep before entering attempt n (1-based, n > 1):
// BaseDelay * 2^n plus jitter. The first retry therefore waits 4x the base.
func (p *Policy) Backoff(n int) time.Duration {
	d := p.BaseDelay * (1 << uint(n))
	if p.Jitter != nil {
		d += p.Jitter()
	}
	return d
}

// Do runs op until it succeeds, fails terminally, or MaxAttempts is
// exhausted. Unavailable and unclassified errors fail immediately;
// anti-automation errors trigger an identity rotation before the retry.
// A failed rotation is logged and the retry proceeds on the old identity.
func (p *Policy) Do(ctx context.Context, op func() error, rot Rotator) error {
	log := logger.GetLogger()

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = op(); err == nil {
			return nil
		}

		kind := models.KindOf(err)
		last := attempt == p.MaxAttempts-1

		switch kind {
		case models.ErrUnavailable:
			return err
		case models.ErrAntiAutomation:
			if rot != nil {
				if rerr := rot.Rotate(); rerr != nil {
					log.WithError(rerr).Warn("Identity rotation failed, keeping current client")
				}
			}
			if last {
				return err
			}
		case models.ErrRateLimited, models.ErrTransient:
			if last {
				return err
			}
		default:
			// unknown errors are likely bugs, retrying hides them
			return err
		}

		// attempt is zero-based, so the attempt being entered is attempt+2
		delay := p.Backoff(attempt + 2)
		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"kind":    kind.String(),
			"delay":   delay.String(),
		}).Info("Retrying after backoff")
		if serr := p.Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}
