// Package idle watches a voice channel and reports when it has been left
// without human listeners for too long.
package idle

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CountFunc returns the number of non-bot members in the watched channel.
type CountFunc func() (int, error)

// Monitor accumulates empty time between polls. A single poll that sees a
// listener resets the accumulator to zero.
type Monitor struct {
	interval  time.Duration
	threshold time.Duration
	count     CountFunc
	log       zerolog.Logger

	idle time.Duration
}

func New(interval, threshold time.Duration, count CountFunc, logger zerolog.Logger) *Monitor {
	return &Monitor{
		interval:  interval,
		threshold: threshold,
		count:     count,
		log:       logger,
	}
}

// Poll samples occupancy once and reports whether the threshold is reached.
// A failed lookup is not a sample and leaves the accumulator unchanged.
func (m *Monitor) Poll() bool {
	n, err := m.count()
	if err != nil {
		m.log.Debug().Err(err).Dur("idle", m.idle).Msg("Occupancy lookup failed, skipping poll")
		return false
	}

	if n > 0 {
		m.idle = 0
		return false
	}

	m.idle += m.interval
	m.log.Debug().Dur("idle", m.idle).Dur("threshold", m.threshold).Msg("Voice channel empty")
	return m.idle >= m.threshold
}

// Idle returns the accumulated empty time.
func (m *Monitor) Idle() time.Duration {
	return m.idle
}

// Run polls every interval until the threshold is reached (true) or ctx is
// cancelled (false).
func (m *Monitor) Run(ctx context.Context) bool {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if ctx.Err() != nil {
				return false
			}
			if m.Poll() {
				return true
			}
		}
	}
}
