package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameBytes = frameSize * channels * 2

type fakeSink struct {
	ch chan []byte

	mu       sync.Mutex
	speaking []bool
}

func newFakeSink(buffer int) *fakeSink { return &fakeSink{ch: make(chan []byte, buffer)} }

func (s *fakeSink) OpusSend() chan<- []byte { return s.ch }

func (s *fakeSink) Speaking(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = append(s.speaking, on)
	return nil
}

type fakeEncoder struct {
	mu    sync.Mutex
	first []int16
}

func (e *fakeEncoder) Encode(pcm []int16, _, _ int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.first == nil {
		e.first = append([]int16(nil), pcm[:4]...)
	}
	return []byte{1}, nil
}

// pcmFrames returns n frames where every sample equals value.
func pcmFrames(n int, value int16) []byte {
	buf := make([]byte, n*frameBytes)
	for i := 0; i < len(buf); i += 2 {
		binary.LittleEndian.PutUint16(buf[i:], uint16(value))
	}
	return buf
}

type blockingReader struct {
	closed chan struct{}
	once   sync.Once
}

func (b *blockingReader) Read([]byte) (int, error) {
	<-b.closed
	return 0, errors.New("read on closed pipe")
}

func (b *blockingReader) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func newTestEncoder(open Opener, enc *fakeEncoder) *Encoder {
	e := NewWithOpener(Config{Logger: zerolog.Nop()}, open)
	e.newEncoder = func() (frameEncoder, error) { return enc, nil }
	return e
}

func TestPlaybackSendsAllFramesAndFinishes(t *testing.T) {
	enc := &fakeEncoder{}
	e := newTestEncoder(func(context.Context, string, float64) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(pcmFrames(5, 1000))), nil
	}, enc)
	sink := newFakeSink(10)

	pb, err := e.Start(context.Background(), sink, &track.Track{StreamURL: "x", Duration: 0.1}, 0.5)
	require.NoError(t, err)

	select {
	case <-pb.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
	assert.NoError(t, pb.Err())
	assert.Len(t, sink.ch, 5)
	assert.Equal(t, 5*frameDuration, pb.Elapsed())
	assert.Equal(t, []int16{500, 500, 500, 500}, enc.first)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []bool{true, false}, sink.speaking)
}

func TestPlaybackStopUnblocksReader(t *testing.T) {
	reader := &blockingReader{closed: make(chan struct{})}
	e := newTestEncoder(func(ctx context.Context, _ string, _ float64) (io.ReadCloser, error) {
		go func() {
			<-ctx.Done()
			_ = reader.Close()
		}()
		return reader, nil
	}, &fakeEncoder{})

	pb, err := e.Start(context.Background(), newFakeSink(1), &track.Track{StreamURL: "x", Duration: 60}, 1)
	require.NoError(t, err)

	pb.Stop()
	pb.Stop()
	select {
	case <-pb.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not end playback")
	}
	assert.NoError(t, pb.Err())
}

func TestPlaybackOutlivesStartContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var openCtx context.Context
	var once sync.Once
	e := newTestEncoder(func(c context.Context, _ string, _ float64) (io.ReadCloser, error) {
		once.Do(func() { openCtx = c })
		return io.NopCloser(bytes.NewReader(pcmFrames(1, 0))), nil
	}, &fakeEncoder{})

	pb, err := e.Start(ctx, newFakeSink(1), &track.Track{StreamURL: "x"}, 1)
	require.NoError(t, err)
	cancel()

	assert.NoError(t, openCtx.Err())
	pb.Stop()
	<-pb.Done()
}

func TestPlaybackPauseResume(t *testing.T) {
	e := newTestEncoder(func(context.Context, string, float64) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(pcmFrames(50, 1))), nil
	}, &fakeEncoder{})
	sink := newFakeSink(0)

	pb, err := e.Start(context.Background(), sink, &track.Track{StreamURL: "x"}, 1)
	require.NoError(t, err)
	defer pb.Stop()

	<-sink.ch
	pb.Pause()

	// at most one frame was already in flight when the pause landed
	select {
	case <-sink.ch:
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-sink.ch:
		t.Fatal("frame sent while paused")
	case <-time.After(100 * time.Millisecond):
	}

	pb.Resume()
	select {
	case <-sink.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame after resume")
	}
}

func TestStartFailsWhenOpenFails(t *testing.T) {
	e := newTestEncoder(func(context.Context, string, float64) (io.ReadCloser, error) {
		return nil, errors.New("no such host")
	}, &fakeEncoder{})

	_, err := e.Start(context.Background(), newFakeSink(1), &track.Track{StreamURL: "x"}, 1)
	assert.ErrorContains(t, err, "no such host")
}

func TestScaleClamps(t *testing.T) {
	assert.Equal(t, int16(100), scale(100, 1))
	assert.Equal(t, int16(50), scale(100, 0.5))
	assert.Equal(t, int16(0), scale(100, 0))
	assert.Equal(t, int16(0), scale(100, -1))
	assert.Equal(t, int16(-16384), scale(-32768, 0.5))
}
