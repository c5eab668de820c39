// Package player is the per-guild playback engine. It owns the voice
// connection, the queue and the now playing slot, and is the only writer of
// the session state.
package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/idle"
	"github.com/JeudiD/Ningyo/internal/music/stream"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/JeudiD/Ningyo/pkg/jobmgr"
	"github.com/rs/zerolog"
)

const teardownTimeout = 5 * time.Second

// VoiceConn is one live voice connection of a guild.
type VoiceConn interface {
	stream.Sink
	ChannelID() string
	Ready() bool
	Move(ctx context.Context, channelID string) error
	Disconnect(ctx context.Context) error
}

// Connector opens voice connections.
type Connector interface {
	Join(ctx context.Context, guildID, channelID string) (VoiceConn, error)
}

// Display renders session snapshots. An Idle snapshot means the surface
// should be removed.
type Display interface {
	Render(ctx context.Context, st State)
}

// Occupancy counts non-bot members of a voice channel.
type Occupancy interface {
	ListenerCount(guildID, channelID string) (int, error)
}

type Config struct {
	DefaultVolume    float64
	IdlePollInterval time.Duration
	IdleTimeout      time.Duration
	ClearQueueOnIdle bool
	Logger           zerolog.Logger
}

type Deps struct {
	Connector Connector
	Streamer  stream.Streamer
	Display   Display
	Occupancy Occupancy
	Jobs      *jobmgr.Manager
}

// PlayResult tells the caller what happened to an enqueued track.
type PlayResult struct {
	Started  bool
	Position int
}

// Player is one guild's session.
//
// Lock order: advanceMu, then mu. advanceMu serializes queue advancement,
// connecting and teardown; mu guards the fields and is never held across I/O.
type Player struct {
	guildID string
	cfg     Config
	deps    Deps
	log     zerolog.Logger

	advanceMu sync.Mutex

	mu            sync.Mutex
	conn          VoiceConn
	queue         *Queue
	status        Status
	current       *track.Track
	playback      stream.Playback
	repeat        RepeatMode
	volume        float64
	textChannelID string
	version       uint64
	idleGen       uint64
}

func New(guildID string, cfg Config, deps Deps) *Player {
	if deps.Jobs == nil {
		deps.Jobs = jobmgr.NewManager(nil)
	}
	return &Player{
		guildID: guildID,
		cfg:     cfg,
		deps:    deps,
		log:     cfg.Logger.With().Str("guild", guildID).Logger(),
		queue:   NewQueue(),
		volume:  clampVolume(cfg.DefaultVolume),
	}
}

func (p *Player) GuildID() string { return p.guildID }

// SetTextChannel records where the now playing surface should live.
func (p *Player) SetTextChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textChannelID = channelID
}

// EnsureConnected joins channelID, moves an existing connection there, or
// replaces a connection that is no longer live. It also resets the idle
// timer.
func (p *Player) EnsureConnected(ctx context.Context, channelID string) error {
	if channelID == "" {
		return ErrNotInVoiceChannel
	}

	p.advanceMu.Lock()
	defer p.advanceMu.Unlock()

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	switch {
	case conn != nil && conn.Ready():
		if conn.ChannelID() != channelID {
			if err := conn.Move(ctx, channelID); err != nil {
				return fmt.Errorf("move voice connection: %w", err)
			}
			p.log.Info().Str("channel", channelID).Msg("Moved voice connection")
		}
	default:
		if conn != nil {
			p.log.Warn().Msg("Voice connection is stale, reconnecting")
			if err := conn.Disconnect(ctx); err != nil {
				p.log.Debug().Err(err).Msg("Disconnect of stale connection failed")
			}
		}

		p.mu.Lock()
		if p.playback == nil {
			p.status = StatusConnecting
		}
		p.mu.Unlock()

		newConn, err := p.deps.Connector.Join(ctx, p.guildID, channelID)

		p.mu.Lock()
		if p.playback == nil {
			p.status = StatusIdle
		}
		if err != nil {
			p.conn = nil
			p.mu.Unlock()
			return fmt.Errorf("join voice channel: %w", err)
		}
		p.conn = newConn
		p.mu.Unlock()
		p.log.Info().Str("channel", channelID).Msg("Joined voice channel")
	}

	p.restartIdleMonitor()
	return nil
}

// Play connects to channelID, appends t to the queue and starts playback if
// nothing is playing.
func (p *Player) Play(ctx context.Context, t *track.Track, channelID string) (PlayResult, error) {
	if err := p.EnsureConnected(ctx, channelID); err != nil {
		return PlayResult{}, err
	}

	p.mu.Lock()
	p.queue.Enqueue(t)
	startNow := p.playback == nil
	p.mu.Unlock()

	p.log.Info().Str("track", t.Title).Bool("start", startNow).Msg("Track enqueued")
	if startNow {
		p.advance(ctx, nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == t {
		return PlayResult{Started: true}, nil
	}
	if i := p.queue.Index(t); i >= 0 {
		return PlayResult{Position: i + 1}, nil
	}
	return PlayResult{}, ErrPlaybackFailed
}

// advance moves to the next track. from is the playback whose completion
// triggered the call (nil to start from idle); the call is a no-op unless
// from is still the active playback, which makes every playback advance the
// queue at most once.
func (p *Player) advance(ctx context.Context, from stream.Playback) {
	p.advanceMu.Lock()
	p.mu.Lock()
	if p.playback != from {
		p.mu.Unlock()
		p.advanceMu.Unlock()
		return
	}

	finished := p.current
	p.playback = nil
	conn := p.conn

	for {
		var next *track.Track
		if conn != nil {
			next = p.nextTrackLocked(finished)
		}
		if next == nil {
			p.status = StatusIdle
			p.current = nil
			st := p.transitionLocked()
			p.mu.Unlock()
			p.advanceMu.Unlock()

			p.log.Info().Msg("Queue finished")
			p.render(st)
			return
		}

		p.current = next
		volume := p.volume
		p.mu.Unlock()

		pb, err := p.deps.Streamer.Start(ctx, conn, next, volume)

		p.mu.Lock()
		if err != nil {
			p.log.Error().Err(err).Str("track", next.Title).Msg("Failed to start track, skipping")
			finished = nil
			continue
		}

		p.playback = pb
		p.status = StatusPlaying
		st := p.transitionLocked()
		p.mu.Unlock()
		p.advanceMu.Unlock()

		p.log.Info().Str("track", next.Title).Str("url", next.Link()).Msg("Now playing")
		go p.watch(pb)
		p.render(st)
		return
	}
}

func (p *Player) nextTrackLocked(finished *track.Track) *track.Track {
	switch p.repeat {
	case RepeatOne:
		if finished != nil {
			return finished
		}
	case RepeatAll:
		if finished != nil {
			p.queue.Enqueue(finished)
		}
	}
	t, ok := p.queue.Dequeue()
	if !ok {
		return nil
	}
	return t
}

func (p *Player) watch(pb stream.Playback) {
	<-pb.Done()
	if err := pb.Err(); err != nil {
		p.log.Warn().Err(err).Msg("Playback ended with error")
	}
	p.advance(context.Background(), pb)
}

// Skip ends the current track; the regular completion path advances the
// queue.
func (p *Player) Skip() error {
	p.mu.Lock()
	pb := p.playback
	playing := p.status == StatusPlaying
	p.mu.Unlock()

	if !playing || pb == nil {
		return ErrNotPlaying
	}
	pb.Stop()
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	if p.status != StatusPlaying || p.playback == nil {
		p.mu.Unlock()
		return ErrNotPlaying
	}
	p.playback.Pause()
	p.status = StatusPaused
	st := p.transitionLocked()
	p.mu.Unlock()

	p.render(st)
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	if p.status != StatusPaused || p.playback == nil {
		p.mu.Unlock()
		return ErrNotPaused
	}
	p.playback.Resume()
	p.status = StatusPlaying
	st := p.transitionLocked()
	p.mu.Unlock()

	p.render(st)
	return nil
}

// AdjustVolume changes the volume by delta, clamped to [0, 1], and applies it
// to the live stream.
func (p *Player) AdjustVolume(delta float64) float64 {
	return p.updateVolume(func(cur float64) float64 { return cur + delta })
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) float64 {
	return p.updateVolume(func(float64) float64 { return v })
}

// updateVolume applies next to the current volume in one critical section.
func (p *Player) updateVolume(next func(cur float64) float64) float64 {
	p.mu.Lock()
	p.volume = clampVolume(next(p.volume))
	if p.playback != nil {
		p.playback.SetVolume(p.volume)
	}
	v := p.volume
	st := p.transitionLocked()
	p.mu.Unlock()

	p.render(st)
	return v
}

// CycleRepeat advances Off -> One -> All -> Off.
func (p *Player) CycleRepeat() RepeatMode {
	p.mu.Lock()
	p.repeat = p.repeat.Next()
	mode := p.repeat
	st := p.transitionLocked()
	p.mu.Unlock()

	p.render(st)
	return mode
}

// Stop clears the queue, ends playback, cancels the idle monitor, leaves the
// voice channel and resets the session. It is idempotent.
func (p *Player) Stop(ctx context.Context) error {
	p.advanceMu.Lock()

	p.mu.Lock()
	pb := p.playback
	conn := p.conn
	p.queue.Clear()
	p.playback = nil
	p.current = nil
	p.conn = nil
	p.status = StatusIdle
	p.repeat = RepeatOff
	p.volume = clampVolume(p.cfg.DefaultVolume)
	p.idleGen++
	st := p.transitionLocked()
	p.mu.Unlock()

	p.deps.Jobs.Stop(p.idleJobName())
	p.teardown(ctx, pb, conn)
	p.advanceMu.Unlock()

	if pb != nil || conn != nil {
		p.log.Info().Msg("Session stopped")
	}
	p.render(st)
	return nil
}

// idleDisconnect tears down the connection after the idle monitor fired. gen
// is the monitor generation; a join or stop since then makes this a no-op.
func (p *Player) idleDisconnect(gen uint64) {
	p.advanceMu.Lock()

	p.mu.Lock()
	if p.idleGen != gen || p.conn == nil {
		p.mu.Unlock()
		p.advanceMu.Unlock()
		return
	}
	pb := p.playback
	conn := p.conn
	p.playback = nil
	p.current = nil
	p.conn = nil
	p.status = StatusIdle
	if p.cfg.ClearQueueOnIdle {
		p.queue.Clear()
	}
	st := p.transitionLocked()
	p.mu.Unlock()

	p.log.Info().Bool("queue_cleared", p.cfg.ClearQueueOnIdle).Msg("Idle timeout, leaving voice channel")
	p.teardown(context.Background(), pb, conn)
	p.advanceMu.Unlock()

	p.render(st)
}

func (p *Player) teardown(ctx context.Context, pb stream.Playback, conn VoiceConn) {
	ctx, cancel := context.WithTimeout(ctx, teardownTimeout)
	defer cancel()

	if pb != nil {
		pb.Stop()
		select {
		case <-pb.Done():
		case <-ctx.Done():
			p.log.Warn().Msg("Playback did not stop in time")
		}
	}
	if conn != nil {
		if err := conn.Disconnect(ctx); err != nil {
			p.log.Warn().Err(err).Msg("Voice disconnect failed")
		}
	}
}

func (p *Player) restartIdleMonitor() {
	if p.deps.Occupancy == nil || p.cfg.IdlePollInterval <= 0 || p.cfg.IdleTimeout <= 0 {
		return
	}

	p.mu.Lock()
	p.idleGen++
	gen := p.idleGen
	p.mu.Unlock()

	mon := idle.New(p.cfg.IdlePollInterval, p.cfg.IdleTimeout, func() (int, error) {
		return p.deps.Occupancy.ListenerCount(p.guildID, p.channelID())
	}, p.log.With().Str("component", "idle").Logger())

	p.deps.Jobs.Restart(p.idleJobName(), func(ctx context.Context) error {
		if mon.Run(ctx) {
			p.idleDisconnect(gen)
		}
		return nil
	})
}

func (p *Player) idleJobName() string {
	return "idle:" + p.guildID
}

func (p *Player) channelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return ""
	}
	return p.conn.ChannelID()
}

// Snapshot returns the current session state.
func (p *Player) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// transitionLocked records a state change and returns the new snapshot.
func (p *Player) transitionLocked() State {
	p.version++
	return p.snapshotLocked()
}

func (p *Player) snapshotLocked() State {
	st := State{
		GuildID:       p.guildID,
		Version:       p.version,
		Status:        p.status,
		Current:       p.current,
		Queue:         p.queue.PeekAll(),
		Repeat:        p.repeat,
		Volume:        p.volume,
		TextChannelID: p.textChannelID,
	}
	if p.conn != nil {
		st.ChannelID = p.conn.ChannelID()
	}
	if p.playback != nil {
		st.Elapsed = p.playback.Elapsed()
	}
	return st
}

func (p *Player) render(st State) {
	if p.deps.Display == nil {
		return
	}
	p.deps.Display.Render(context.Background(), st)
}

func clampVolume(v float64) float64 {
	v = math.Round(v*100) / 100
	return math.Max(0, math.Min(1, v))
}
