package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/rs/zerolog"
)

const (
	maxRecoveryAttempts = 3
	// an EOF closer than this to the known end is a normal finish
	endTolerance = 2 * time.Second
)

var ErrNotOpened = errors.New("stream not opened")

// RecoveryStream wraps the decoder and reopens it at the current position
// when it ends before the track does. Live tracks are always eligible.
type RecoveryStream struct {
	ctx   context.Context
	open  Opener
	track *track.Track
	log   zerolog.Logger

	rc       io.ReadCloser
	position float64
	retries  int
	max      int
}

func NewRecoveryStream(ctx context.Context, open Opener, t *track.Track, maxRetries int, logger zerolog.Logger) *RecoveryStream {
	return &RecoveryStream{ctx: ctx, open: open, track: t, max: maxRetries, log: logger}
}

// Open starts the decoder at seekSec.
func (rs *RecoveryStream) Open(seekSec float64) error {
	rc, err := rs.open(rs.ctx, rs.track.StreamURL, seekSec)
	if err != nil {
		return err
	}
	rs.rc = rc
	rs.position = seekSec
	return nil
}

func (rs *RecoveryStream) Read(p []byte) (int, error) {
	if rs.rc == nil {
		return 0, ErrNotOpened
	}

	n, err := rs.rc.Read(p)
	rs.position += float64(n) / bytesPerSecond
	if err == nil || n > 0 {
		return n, nil
	}
	if rs.ctx.Err() != nil || !rs.recoverable() {
		return 0, err
	}
	return rs.recover(p, err)
}

func (rs *RecoveryStream) recoverable() bool {
	if rs.retries >= rs.max {
		return false
	}
	if rs.track.Live() {
		return true
	}
	return rs.position < rs.track.Duration-endTolerance.Seconds()
}

func (rs *RecoveryStream) recover(p []byte, cause error) (int, error) {
	_ = rs.rc.Close()
	rs.rc = nil

	for rs.retries < rs.max {
		rs.retries++
		rs.log.Warn().
			AnErr("cause", cause).
			Int("attempt", rs.retries).
			Float64("position", rs.position).
			Msg("Stream ended prematurely, reopening")

		if err := rs.Open(rs.position); err != nil {
			rs.log.Warn().Err(err).Msg("Recovery failed")
			cause = err
			continue
		}
		return rs.Read(p)
	}
	return 0, io.EOF
}

// Position is the playback position in seconds.
func (rs *RecoveryStream) Position() float64 {
	return rs.position
}

func (rs *RecoveryStream) Close() error {
	if rs.rc == nil {
		return nil
	}
	err := rs.rc.Close()
	rs.rc = nil
	return err
}
