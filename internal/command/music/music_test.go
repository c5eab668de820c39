package music

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/command/commandtest"
	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/internal/music/source_resolver"
	"github.com/JeudiD/Ningyo/internal/music/stream"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type voiceConn struct{ channel string }

func (v *voiceConn) Speaking(bool) error                     { return nil }
func (v *voiceConn) OpusSend() chan<- []byte                 { return nil }
func (v *voiceConn) ChannelID() string                       { return v.channel }
func (v *voiceConn) Ready() bool                             { return true }
func (v *voiceConn) Move(_ context.Context, ch string) error { v.channel = ch; return nil }
func (v *voiceConn) Disconnect(context.Context) error        { return nil }

type connector struct{}

func (connector) Join(_ context.Context, _, channelID string) (player.VoiceConn, error) {
	return &voiceConn{channel: channelID}, nil
}

type playback struct {
	done chan struct{}
	once sync.Once
}

func (p *playback) Done() <-chan struct{}  { return p.done }
func (p *playback) Err() error             { return nil }
func (p *playback) Stop()                  { p.once.Do(func() { close(p.done) }) }
func (p *playback) Pause()                 {}
func (p *playback) Resume()                {}
func (p *playback) SetVolume(float64)      {}
func (p *playback) Elapsed() time.Duration { return 0 }

type streamer struct{}

func (streamer) Start(context.Context, stream.Sink, *track.Track, float64) (stream.Playback, error) {
	return &playback{done: make(chan struct{})}, nil
}

type resolver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *resolver) Resolve(_ context.Context, query string, req *track.Requester) (*track.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &track.Track{Title: query, WebpageURL: "https://youtu.be/" + query, Duration: 180, Requester: req}, nil
}

type voice struct{ channel string }

func (v voice) UserVoiceChannel(string, string) (string, error) {
	if v.channel == "" {
		return "", player.ErrNotInVoiceChannel
	}
	return v.channel, nil
}

type reposter struct{ states []player.State }

func (r *reposter) Repost(_ context.Context, st player.State) { r.states = append(r.states, st) }

type fixture struct {
	svc      *Service
	resolver *resolver
	reposter *reposter
}

func newFixture(t *testing.T, voiceChannel string) *fixture {
	t.Helper()
	f := &fixture{resolver: &resolver{}, reposter: &reposter{}}
	f.svc = &Service{
		Players: player.NewManager(
			player.Config{DefaultVolume: 0.5, Logger: zerolog.Nop()},
			player.Deps{Connector: connector{}, Streamer: streamer{}},
		),
		Resolver:   f.resolver,
		Voice:      voice{channel: voiceChannel},
		NowPlaying: f.reposter,
		VolumeStep: 0.1,
	}
	t.Cleanup(func() { f.svc.Players.StopAll(context.Background()) })
	return f
}

func (f *fixture) run(t *testing.T, name string, cc *command.Context) *commandtest.Caller {
	t.Helper()
	if cc.Caller == nil {
		cc.Caller = commandtest.New("g", "text", "u1")
	}
	for _, c := range f.svc.Commands() {
		if c.Name() == name {
			require.NoError(t, c.Run(context.Background(), cc))
			return cc.Caller.(*commandtest.Caller)
		}
	}
	t.Fatalf("no command %q", name)
	return nil
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	f := newFixture(t, "")
	caller := f.run(t, "play", &command.Context{Args: []string{"song"}})

	assert.Contains(t, caller.Last().Body(), "voice channel")
	assert.True(t, caller.Last().Ephemeral)
	assert.Zero(t, f.resolver.calls)
}

func TestPlayUsage(t *testing.T) {
	f := newFixture(t, "voice")
	caller := f.run(t, "play", &command.Context{})
	assert.Contains(t, caller.Last().Body(), "Usage")
}

func TestPlayStartsThenQueues(t *testing.T) {
	f := newFixture(t, "voice")

	first := f.run(t, "play", &command.Context{Args: []string{"first", "song"}})
	assert.True(t, first.Deferred())
	assert.Contains(t, first.Last().Body(), "Now playing [first song]")

	second := f.run(t, "play", &command.Context{Options: map[string]string{"query": "second"}})
	assert.Contains(t, second.Last().Body(), "Queued at position 1")

	st, ok := f.svc.Players.Snapshot("g")
	require.True(t, ok)
	assert.Equal(t, "first song", st.Current.Title)
	assert.Equal(t, "u1", st.Current.Requester.ID)
	assert.Equal(t, "text", st.TextChannelID)
}

func TestPlayNoResults(t *testing.T) {
	f := newFixture(t, "voice")
	f.resolver.err = errors.Join(source_resolver.ErrNoResults, errors.New("ytmusic: timeout"))

	caller := f.run(t, "play", &command.Context{Args: []string{"nothing"}})
	assert.Equal(t, "⚠️ No results found.", caller.Last().Body())

	_, ok := f.svc.Players.Snapshot("g")
	assert.False(t, ok)
}

func TestControlCommandsWithoutSession(t *testing.T) {
	f := newFixture(t, "voice")

	assert.Contains(t, f.run(t, "pause", &command.Context{}).Last().Body(), "Nothing is playing")
	assert.Contains(t, f.run(t, "skip", &command.Context{}).Last().Body(), "Nothing is playing")
	assert.Contains(t, f.run(t, "resume", &command.Context{}).Last().Body(), "not paused")
	assert.Contains(t, f.run(t, "queue", &command.Context{}).Last().Body(), "empty")
	assert.Contains(t, f.run(t, "stop", &command.Context{}).Last().Body(), "Stopped")
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, "voice")
	f.run(t, "play", &command.Context{Args: []string{"a"}})

	assert.Contains(t, f.run(t, "pause", &command.Context{}).Last().Body(), "Paused")
	assert.Contains(t, f.run(t, "pause", &command.Context{}).Last().Body(), "Nothing is playing")
	assert.Contains(t, f.run(t, "resume", &command.Context{}).Last().Body(), "Resumed")
}

func TestVolume(t *testing.T) {
	f := newFixture(t, "voice")

	assert.Contains(t, f.run(t, "volume", &command.Context{Args: []string{"150"}}).Last().Body(), "0 to 100")
	assert.Contains(t, f.run(t, "volume", &command.Context{Args: []string{"loud"}}).Last().Body(), "0 to 100")
	assert.Contains(t, f.run(t, "volume", &command.Context{Options: map[string]string{"percent": "30"}}).Last().Body(), "30%")
	assert.Contains(t, f.run(t, "volume", &command.Context{}).Last().Body(), "Volume: 30%")
}

func TestRepeatCycles(t *testing.T) {
	f := newFixture(t, "voice")
	assert.Contains(t, f.run(t, "repeat", &command.Context{}).Last().Body(), "One")
	assert.Contains(t, f.run(t, "repeat", &command.Context{}).Last().Body(), "All")
	assert.Contains(t, f.run(t, "repeat", &command.Context{}).Last().Body(), "Off")
}

func TestQueueEmbedPages(t *testing.T) {
	st := player.State{Status: player.StatusPlaying, Current: &track.Track{Title: "now"}}
	for i := 1; i <= 25; i++ {
		st.Queue = append(st.Queue, &track.Track{Title: fmt.Sprintf("t%d", i), Duration: 61})
	}

	embed, err := QueueEmbed(st, 3)
	require.NoError(t, err)
	assert.Contains(t, embed.Description, "**Now:** now")
	assert.Contains(t, embed.Description, "`21.` t21 · 1:01")
	assert.Contains(t, embed.Description, "`25.` t25")
	assert.NotContains(t, embed.Description, "`20.`")
	assert.Contains(t, embed.Footer.Text, "Page 3/3")

	_, err = QueueEmbed(st, 4)
	assert.Error(t, err)
}

func TestQueueCommandRejectsBadPage(t *testing.T) {
	f := newFixture(t, "voice")
	f.run(t, "play", &command.Context{Args: []string{"a"}})

	assert.Contains(t, f.run(t, "queue", &command.Context{Args: []string{"zero"}}).Last().Body(), "positive")
	assert.Contains(t, f.run(t, "queue", &command.Context{Args: []string{"9"}}).Last().Body(), "does not exist")

	caller := f.run(t, "queue", &command.Context{})
	require.NotNil(t, caller.Last().Embed)
	assert.Contains(t, caller.Last().Embed.Description, "Nothing queued")
}

func TestButtons(t *testing.T) {
	f := newFixture(t, "voice")
	f.run(t, "play", &command.Context{Args: []string{"a"}})
	p, ok := f.svc.Players.Get("g")
	require.True(t, ok)

	press := func(id string) *commandtest.Caller {
		return f.run(t, "music", &command.Context{CustomID: id})
	}

	caller := press("music:volup")
	assert.True(t, caller.Deferred())
	assert.InDelta(t, 0.6, p.Snapshot().Volume, 1e-9)

	press("music:voldown")
	press("music:voldown")
	assert.InDelta(t, 0.4, p.Snapshot().Volume, 1e-9)

	press("music:pause")
	assert.Equal(t, player.StatusPaused, p.Snapshot().Status)
	assert.Contains(t, press("music:pause").Last().Body(), "Nothing is playing")

	press("music:resume")
	assert.Equal(t, player.StatusPlaying, p.Snapshot().Status)

	press("music:repeat")
	assert.Equal(t, player.RepeatOne, p.Snapshot().Repeat)

	press("music:stop")
	assert.Equal(t, player.StatusIdle, p.Snapshot().Status)
}

func TestNowPlayingReposts(t *testing.T) {
	f := newFixture(t, "voice")
	assert.Contains(t, f.run(t, "nowplaying", &command.Context{}).Last().Body(), "Nothing is playing")

	f.run(t, "play", &command.Context{Args: []string{"a"}})
	f.run(t, "nowplaying", &command.Context{Caller: commandtest.New("g", "elsewhere", "u2")})

	require.Len(t, f.reposter.states, 1)
	assert.Equal(t, "elsewhere", f.reposter.states[0].TextChannelID)
}
