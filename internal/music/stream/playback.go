package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type playback struct {
	id  uuid.UUID
	log zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	cancel   context.CancelFunc

	done chan struct{}
	err  error

	paused atomic.Bool
	wake   chan struct{}
	volume atomic.Uint64
	frames atomic.Int64
}

func newPlayback(volume float64, cancel context.CancelFunc, logger zerolog.Logger) *playback {
	id := uuid.New()
	p := &playback{
		id:     id,
		log:    logger.With().Str("playback", id.String()).Logger(),
		stop:   make(chan struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
	p.SetVolume(volume)
	return p
}

func (p *playback) Done() <-chan struct{} { return p.done }

// Err is the reason the stream ended, nil for a natural end or Stop.
func (p *playback) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *playback) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.cancel()
	})
}

func (p *playback) Pause() { p.paused.Store(true) }

func (p *playback) Resume() {
	p.paused.Store(false)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *playback) SetVolume(v float64) {
	v = math.Max(0, math.Min(1, v))
	p.volume.Store(math.Float64bits(v))
}

func (p *playback) currentVolume() float64 {
	return math.Float64frombits(p.volume.Load())
}

func (p *playback) Elapsed() time.Duration {
	return time.Duration(p.frames.Load()) * frameDuration
}

func (p *playback) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *playback) run(src io.ReadCloser, enc frameEncoder, sink Sink) {
	err := p.stream(src, enc, sink)
	_ = src.Close()
	p.cancel()
	if err := sink.Speaking(false); err != nil {
		p.log.Debug().Err(err).Msg("Speaking(false) failed")
	}

	if err != nil {
		p.log.Warn().Err(err).Int64("frames", p.frames.Load()).Msg("Playback ended with error")
	} else {
		p.log.Debug().Int64("frames", p.frames.Load()).Msg("Playback finished")
	}
	p.err = err
	close(p.done)
}

func (p *playback) stream(src io.Reader, enc frameEncoder, sink Sink) error {
	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	speaking := false
	setSpeaking := func(on bool) {
		if speaking == on {
			return
		}
		speaking = on
		if err := sink.Speaking(on); err != nil {
			p.log.Debug().Err(err).Bool("speaking", on).Msg("Speaking update failed")
		}
	}

	for {
		if p.paused.Load() {
			setSpeaking(false)
			select {
			case <-p.stop:
				return nil
			case <-p.wake:
			}
			continue
		}

		_, err := io.ReadFull(src, pcmBuf)
		if err != nil {
			if p.stopped() || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		decodePCM(intBuf, pcmBuf, p.currentVolume())
		opus, err := enc.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		setSpeaking(true)
		select {
		case sink.OpusSend() <- opus:
			p.frames.Add(1)
		case <-p.stop:
			return nil
		}
	}
}
