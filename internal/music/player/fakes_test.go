package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/stream"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/JeudiD/Ningyo/pkg/jobmgr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu          sync.Mutex
	channel     string
	ready       bool
	moves       []string
	disconnects int
	opus        chan []byte
}

func (c *fakeConn) Speaking(bool) error     { return nil }
func (c *fakeConn) OpusSend() chan<- []byte { return c.opus }

func (c *fakeConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *fakeConn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *fakeConn) Move(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moves = append(c.moves, channelID)
	c.channel = channelID
	return nil
}

func (c *fakeConn) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.ready = false
	return nil
}

func (c *fakeConn) setReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

type fakeConnector struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (f *fakeConnector) Join(_ context.Context, _, channelID string) (VoiceConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{channel: channelID, ready: true, opus: make(chan []byte, 1)}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) joined() []*fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeConn(nil), f.conns...)
}

type fakePlayback struct {
	track *track.Track
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	paused bool
	volume float64
	stops  int
}

func (f *fakePlayback) Done() <-chan struct{}  { return f.done }
func (f *fakePlayback) Err() error             { return nil }
func (f *fakePlayback) Elapsed() time.Duration { return 0 }

func (f *fakePlayback) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.finish()
}

func (f *fakePlayback) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakePlayback) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

func (f *fakePlayback) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakePlayback) finish() { f.once.Do(func() { close(f.done) }) }

func (f *fakePlayback) isPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakePlayback) currentVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

type fakeStreamer struct {
	mu        sync.Mutex
	playbacks []*fakePlayback
	fail      map[string]bool
}

func (s *fakeStreamer) Start(_ context.Context, _ stream.Sink, t *track.Track, volume float64) (stream.Playback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[t.Title] {
		return nil, errors.New("decoder failed")
	}
	pb := &fakePlayback{track: t, done: make(chan struct{}), volume: volume}
	s.playbacks = append(s.playbacks, pb)
	return pb, nil
}

func (s *fakeStreamer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playbacks)
}

func (s *fakeStreamer) last() *fakePlayback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbacks[len(s.playbacks)-1]
}

func (s *fakeStreamer) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.playbacks))
	for _, pb := range s.playbacks {
		out = append(out, pb.track.Title)
	}
	return out
}

type fakeDisplay struct {
	mu     sync.Mutex
	states []State
}

func (d *fakeDisplay) Render(_ context.Context, st State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = append(d.states, st)
}

func (d *fakeDisplay) last() (State, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.states) == 0 {
		return State{}, false
	}
	return d.states[len(d.states)-1], true
}

type fakeOccupancy struct {
	listeners atomic.Int32
}

func (o *fakeOccupancy) ListenerCount(string, string) (int, error) {
	return int(o.listeners.Load()), nil
}

type harness struct {
	p         *Player
	connector *fakeConnector
	streamer  *fakeStreamer
	display   *fakeDisplay
	jobs      *jobmgr.Manager
}

func newHarness(t *testing.T, mutate func(*Config, *Deps)) *harness {
	t.Helper()
	h := &harness{
		connector: &fakeConnector{},
		streamer:  &fakeStreamer{fail: map[string]bool{}},
		display:   &fakeDisplay{},
		jobs:      jobmgr.NewManager(nil),
	}
	cfg := Config{DefaultVolume: 0.5, Logger: zerolog.Nop()}
	deps := Deps{Connector: h.connector, Streamer: h.streamer, Display: h.display, Jobs: h.jobs}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	h.p = New("guild", cfg, deps)
	t.Cleanup(func() { _ = h.p.Stop(context.Background()) })
	return h
}

func (h *harness) play(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, err := h.p.Play(context.Background(), &track.Track{Title: title, StreamURL: "https://cdn/" + title}, "voice")
		require.NoError(t, err)
	}
}

func (h *harness) waitStarted(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.streamer.count() == n }, 2*time.Second, time.Millisecond)
}

// finishCurrent ends the active playback naturally and waits for the next one.
func (h *harness) finishCurrent(t *testing.T) {
	t.Helper()
	n := h.streamer.count()
	h.streamer.last().finish()
	h.waitStarted(t, n+1)
}

func (h *harness) waitStatus(t *testing.T, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return h.p.Snapshot().Status == want }, 2*time.Second, time.Millisecond)
}
