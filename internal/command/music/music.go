// Package music holds the playback commands and the now playing buttons.
package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/internal/music/source_resolver"
	"github.com/JeudiD/Ningyo/internal/music/track"
)

type Resolver interface {
	Resolve(ctx context.Context, query string, requester *track.Requester) (*track.Track, error)
}

// VoiceLocator finds the voice channel a user is connected to. It returns
// player.ErrNotInVoiceChannel when there is none.
type VoiceLocator interface {
	UserVoiceChannel(guildID, userID string) (string, error)
}

// Reposter sends a fresh now playing message.
type Reposter interface {
	Repost(ctx context.Context, st player.State)
}

// Service is what the music commands share.
type Service struct {
	Players    *player.Manager
	Resolver   Resolver
	Voice      VoiceLocator
	NowPlaying Reposter
	VolumeStep float64
}

// Commands returns every music command, buttons included.
func (s *Service) Commands() []command.DiscordCommand {
	b := base{S: s}
	return []command.DiscordCommand{
		&JoinCommand{b}, &LeaveCommand{b}, &PlayCommand{b}, &PauseCommand{b},
		&ResumeCommand{b}, &SkipCommand{b}, &StopCommand{b}, &QueueCommand{b},
		&NowPlayingCommand{b}, &VolumeCommand{b}, &RepeatCommand{b}, &ControlsCommand{b},
	}
}

type base struct {
	S *Service
}

func (base) Group() string            { return "music" }
func (base) Category() string         { return "🎵 Music" }
func (base) UserPermissions() []int64 { return nil }

// player returns the guild's session if one was ever created.
func (b base) player(c *command.Context) (*player.Player, bool) {
	return b.S.Players.Get(c.Caller.GuildID())
}

func (b base) voiceChannel(c *command.Context) (string, error) {
	if b.S.Voice == nil {
		return "", player.ErrNotInVoiceChannel
	}
	return b.S.Voice.UserVoiceChannel(c.Caller.GuildID(), c.UserID())
}

func requester(c *command.Context) *track.Requester {
	u := c.Caller.User()
	if u == nil {
		return nil
	}
	return &track.Requester{ID: u.ID, Name: u.Username}
}

// explain turns expected engine errors into replies; anything else goes back
// to the dispatcher.
func explain(c *command.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, player.ErrNotInVoiceChannel):
		return c.Fail("You need to be in a voice channel.")
	case errors.Is(err, player.ErrNotPlaying):
		return c.Fail("Nothing is playing.")
	case errors.Is(err, player.ErrNotPaused):
		return c.Fail("Playback is not paused.")
	case errors.Is(err, player.ErrPlaybackFailed):
		return c.Fail("Could not start playback.")
	case errors.Is(err, source_resolver.ErrEmptyQuery):
		return c.Fail("Tell me what to play.")
	case errors.Is(err, source_resolver.ErrNoResults):
		return c.Fail("No results found.")
	default:
		return err
	}
}

func trackLink(t *track.Track) string {
	title := t.Title
	if title == "" {
		title = "Unknown track"
	}
	if link := t.Link(); link != "" {
		return fmt.Sprintf("[%s](%s)", title, link)
	}
	return title
}
