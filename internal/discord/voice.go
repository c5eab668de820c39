package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/bwmarrin/discordgo"
)

// Voice adapts a discordgo session to the player's voice collaborators:
// player.Connector, player.Occupancy and the music commands' VoiceLocator.
type Voice struct {
	Session *discordgo.Session
}

func (v *Voice) Join(_ context.Context, guildID, channelID string) (player.VoiceConn, error) {
	vc, err := v.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice %s/%s: %w", guildID, channelID, err)
	}
	return &voiceConn{session: v.Session, guildID: guildID, vc: vc}, nil
}

// ListenerCount counts the non-bot users in a voice channel.
func (v *Voice) ListenerCount(guildID, channelID string) (int, error) {
	return countListeners(v.Session.State, guildID, channelID)
}

// UserVoiceChannel returns the voice channel userID is connected to.
func (v *Voice) UserVoiceChannel(guildID, userID string) (string, error) {
	return userVoiceChannel(v.Session.State, guildID, userID)
}

func countListeners(st *discordgo.State, guildID, channelID string) (int, error) {
	if st == nil {
		return 0, errors.New("state cache disabled")
	}
	g, err := st.Guild(guildID)
	if err != nil {
		return 0, fmt.Errorf("guild %s: %w", guildID, err)
	}

	st.RLock()
	defer st.RUnlock()
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if isBot(st, g, vs) {
			continue
		}
		n++
	}
	return n, nil
}

// isBot expects st to be read locked.
func isBot(st *discordgo.State, g *discordgo.Guild, vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	if st.User != nil && vs.UserID == st.User.ID {
		return true
	}
	for _, m := range g.Members {
		if m.User != nil && m.User.ID == vs.UserID {
			return m.User.Bot
		}
	}
	return false
}

func userVoiceChannel(st *discordgo.State, guildID, userID string) (string, error) {
	if st == nil {
		return "", player.ErrNotInVoiceChannel
	}
	vs, err := st.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", player.ErrNotInVoiceChannel
	}
	return vs.ChannelID, nil
}

// voiceConn looks the connection up on every use because discordgo swaps
// it out after a reconnect or a disconnect.
type voiceConn struct {
	session *discordgo.Session
	guildID string
	vc      *discordgo.VoiceConnection
}

func (c *voiceConn) current() *discordgo.VoiceConnection {
	c.session.RLock()
	defer c.session.RUnlock()
	if vc, ok := c.session.VoiceConnections[c.guildID]; ok && vc != nil {
		return vc
	}
	return c.vc
}

func (c *voiceConn) Speaking(on bool) error {
	return c.current().Speaking(on)
}

func (c *voiceConn) OpusSend() chan<- []byte {
	vc := c.current()
	vc.RLock()
	defer vc.RUnlock()
	return vc.OpusSend
}

func (c *voiceConn) ChannelID() string {
	vc := c.current()
	vc.RLock()
	defer vc.RUnlock()
	return vc.ChannelID
}

func (c *voiceConn) Ready() bool {
	c.session.RLock()
	vc, ok := c.session.VoiceConnections[c.guildID]
	c.session.RUnlock()
	if !ok || vc == nil {
		return false
	}
	vc.RLock()
	defer vc.RUnlock()
	return vc.Ready
}

func (c *voiceConn) Move(_ context.Context, channelID string) error {
	return c.current().ChangeChannel(channelID, false, true)
}

func (c *voiceConn) Disconnect(context.Context) error {
	return c.current().Disconnect()
}
