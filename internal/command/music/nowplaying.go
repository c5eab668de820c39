package music

import (
	"context"
	"strings"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/music/nowplaying"
	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/bwmarrin/discordgo"
)

type NowPlayingCommand struct{ base }

func (*NowPlayingCommand) Name() string        { return "nowplaying" }
func (*NowPlayingCommand) Description() string { return "Show the player in this channel" }
func (*NowPlayingCommand) Aliases() []string   { return []string{"np"} }

func (c *NowPlayingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *NowPlayingCommand) Run(ctx context.Context, cc *command.Context) error {
	p, ok := c.player(cc)
	if !ok || p.Snapshot().Current == nil {
		return explain(cc, player.ErrNotPlaying)
	}

	p.SetTextChannel(cc.Caller.ChannelID())
	if c.S.NowPlaying != nil {
		c.S.NowPlaying.Repost(ctx, p.Snapshot())
	}
	return cc.Caller.Reply("👇", true)
}

// ControlsCommand handles the now playing buttons. It has no slash
// definition; the dispatcher routes "music:*" presses here.
type ControlsCommand struct{ base }

func (*ControlsCommand) Name() string        { return "music" }
func (*ControlsCommand) Description() string { return "Now playing controls" }

func (c *ControlsCommand) Run(ctx context.Context, cc *command.Context) error {
	if !strings.HasPrefix(cc.CustomID, "music:") {
		return cc.Fail("Use the buttons on the now playing message.")
	}

	p, ok := c.player(cc)
	if !ok {
		return explain(cc, player.ErrNotPlaying)
	}
	if err := cc.Caller.Defer(true); err != nil {
		return err
	}

	var err error
	switch cc.CustomID {
	case nowplaying.ButtonPause:
		err = p.Pause()
	case nowplaying.ButtonResume:
		err = p.Resume()
	case nowplaying.ButtonSkip:
		err = p.Skip()
	case nowplaying.ButtonStop:
		err = p.Stop(ctx)
	case nowplaying.ButtonRepeat:
		p.CycleRepeat()
	case nowplaying.ButtonVolUp:
		p.AdjustVolume(c.S.VolumeStep)
	case nowplaying.ButtonVolDown:
		p.AdjustVolume(-c.S.VolumeStep)
	default:
		return cc.Fail("Unknown control.")
	}
	return explain(cc, err)
}
