// Package stream plays a track into a voice sink: decoder PCM is scaled by
// the live volume, encoded to Opus and pushed frame by frame.
package stream

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/parsers/ffmpeg"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/rs/zerolog"
)

const (
	channels   = ffmpeg.Channels
	sampleRate = ffmpeg.SampleRate
	frameSize  = ffmpeg.FrameSize

	bytesPerSecond = sampleRate * channels * 2
	frameDuration  = 20 * time.Millisecond
)

// Sink is the voice side of a playback.
type Sink interface {
	Speaking(bool) error
	OpusSend() chan<- []byte
}

// Playback is a running stream. Done is closed exactly once, when the stream
// ends naturally, fails, or is stopped; Err is valid after that.
type Playback interface {
	Done() <-chan struct{}
	Err() error
	Stop()
	Pause()
	Resume()
	SetVolume(v float64)
	Elapsed() time.Duration
}

// Streamer starts playbacks.
type Streamer interface {
	Start(ctx context.Context, sink Sink, t *track.Track, volume float64) (Playback, error)
}

// Opener opens a PCM reader for url positioned at seekSec.
type Opener func(ctx context.Context, url string, seekSec float64) (io.ReadCloser, error)

type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

type Config struct {
	FFmpegPath    string
	MaxRecoveries int
	Logger        zerolog.Logger
}

// Encoder is the production Streamer.
type Encoder struct {
	cfg        Config
	open       Opener
	newEncoder func() (frameEncoder, error)
}

// New returns an Encoder that decodes with ffmpeg and encodes with libopus.
func New(cfg Config) *Encoder {
	return NewWithOpener(cfg, func(ctx context.Context, url string, seekSec float64) (io.ReadCloser, error) {
		return ffmpeg.OpenPCM(ctx, cfg.FFmpegPath, url, seekSec)
	})
}

// NewWithOpener returns an Encoder reading PCM from open.
func NewWithOpener(cfg Config, open Opener) *Encoder {
	if cfg.MaxRecoveries <= 0 {
		cfg.MaxRecoveries = maxRecoveryAttempts
	}
	return &Encoder{cfg: cfg, open: open, newEncoder: newOpusEncoder}
}

// Start opens the track and begins sending frames in the background. The
// playback outlives ctx; only Stop ends it early.
func (e *Encoder) Start(ctx context.Context, sink Sink, t *track.Track, volume float64) (Playback, error) {
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pb := newPlayback(volume, cancel, e.cfg.Logger)
	pb.log = pb.log.With().Str("track", t.Title).Logger()

	rs := NewRecoveryStream(pctx, e.open, t, e.cfg.MaxRecoveries, pb.log)
	if err := rs.Open(0); err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}

	enc, err := e.newEncoder()
	if err != nil {
		cancel()
		_ = rs.Close()
		return nil, fmt.Errorf("encoder error: %w", err)
	}

	go pb.run(rs, enc, sink)
	return pb, nil
}
