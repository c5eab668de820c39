// Package nowplaying keeps one live message per guild that mirrors the
// player state and carries the playback buttons.
package nowplaying

import (
	"context"
	"sync"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/pkg/jobmgr"
	"github.com/rs/zerolog"
)

// Messenger publishes, edits and removes channel messages.
type Messenger interface {
	Send(ctx context.Context, channelID string, msg Message) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID string, msg Message) error
	Delete(ctx context.Context, channelID, messageID string) error
}

// Snapshotter returns the current state of a guild session.
type Snapshotter interface {
	Snapshot(guildID string) (player.State, bool)
}

type surface struct {
	mu        sync.Mutex
	channelID string
	messageID string
	version   uint64
}

// Presenter implements player.Display.
type Presenter struct {
	messenger Messenger
	jobs      *jobmgr.Manager
	refresh   time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	states   Snapshotter
	surfaces map[string]*surface
}

func New(m Messenger, jobs *jobmgr.Manager, refresh time.Duration, logger zerolog.Logger) *Presenter {
	if jobs == nil {
		jobs = jobmgr.NewManager(nil)
	}
	return &Presenter{
		messenger: m,
		jobs:      jobs,
		refresh:   refresh,
		log:       logger,
		surfaces:  make(map[string]*surface),
	}
}

// Attach sets where the refresh loop reads state from. The player manager
// needs the presenter at construction, so this happens afterwards.
func (p *Presenter) Attach(s Snapshotter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = s
}

// Render publishes st, editing the guild's message in place when possible.
// Snapshots older than the last rendered one are dropped; Idle removes the
// message.
func (p *Presenter) Render(ctx context.Context, st player.State) {
	s := p.surface(st.GuildID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.acceptLocked(s, st) {
		return
	}
	if st.Status == player.StatusIdle {
		p.jobs.Stop(jobName(st.GuildID))
		p.removeLocked(ctx, s)
		return
	}

	p.publishLocked(ctx, s, st)
	if st.Status == player.StatusPlaying {
		p.startRefresh(st.GuildID)
	} else {
		p.jobs.Stop(jobName(st.GuildID))
	}
}

// Repost drops the current message and sends a fresh one to
// st.TextChannelID, so the controls move to the bottom of the channel.
func (p *Presenter) Repost(ctx context.Context, st player.State) {
	s := p.surface(st.GuildID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.acceptLocked(s, st) || st.Status == player.StatusIdle {
		return
	}
	p.removeLocked(ctx, s)
	p.publishLocked(ctx, s, st)
	if st.Status == player.StatusPlaying {
		p.startRefresh(st.GuildID)
	}
}

func (p *Presenter) acceptLocked(s *surface, st player.State) bool {
	if st.Version < s.version {
		p.log.Debug().Str("guild", st.GuildID).Uint64("version", st.Version).Uint64("seen", s.version).Msg("Dropping stale snapshot")
		return false
	}
	s.version = st.Version
	return true
}

func (p *Presenter) publishLocked(ctx context.Context, s *surface, st player.State) {
	channelID := st.TextChannelID
	if channelID == "" {
		channelID = s.channelID
	}
	if channelID == "" {
		return
	}
	if s.messageID != "" && s.channelID != channelID {
		p.removeLocked(ctx, s)
	}

	msg := Build(st)
	if s.messageID != "" {
		err := p.messenger.Edit(ctx, s.channelID, s.messageID, msg)
		if err == nil {
			return
		}
		p.log.Debug().Err(err).Str("guild", st.GuildID).Msg("Edit failed, sending a new message")
		s.messageID = ""
	}

	id, err := p.messenger.Send(ctx, channelID, msg)
	if err != nil {
		p.log.Warn().Err(err).Str("guild", st.GuildID).Msg("Failed to send now playing message")
		return
	}
	s.channelID = channelID
	s.messageID = id
}

func (p *Presenter) removeLocked(ctx context.Context, s *surface) {
	if s.messageID == "" {
		return
	}
	if err := p.messenger.Delete(ctx, s.channelID, s.messageID); err != nil {
		p.log.Debug().Err(err).Msg("Failed to delete now playing message")
	}
	s.messageID = ""
}

func (p *Presenter) startRefresh(guildID string) {
	if p.refresh <= 0 {
		return
	}
	p.jobs.Restart(jobName(guildID), func(ctx context.Context) error {
		return p.refreshLoop(ctx, guildID)
	})
}

// refreshLoop re-renders while the session is playing and exits on its own
// once it is not.
func (p *Presenter) refreshLoop(ctx context.Context, guildID string) error {
	ticker := time.NewTicker(p.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		p.mu.Lock()
		states := p.states
		p.mu.Unlock()
		if states == nil {
			return nil
		}

		st, ok := states.Snapshot(guildID)
		if !ok || st.Status != player.StatusPlaying {
			return nil
		}

		s := p.surface(guildID)
		s.mu.Lock()
		if ctx.Err() == nil && p.acceptLocked(s, st) {
			p.publishLocked(ctx, s, st)
		}
		s.mu.Unlock()
	}
}

func (p *Presenter) surface(guildID string) *surface {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.surfaces[guildID]
	if !ok {
		s = &surface{}
		p.surfaces[guildID] = s
	}
	return s
}

func jobName(guildID string) string {
	return "nowplaying:" + guildID
}
