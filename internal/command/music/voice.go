package music

import (
	"context"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/bwmarrin/discordgo"
)

type JoinCommand struct{ base }

func (*JoinCommand) Name() string        { return "join" }
func (*JoinCommand) Description() string { return "Join your voice channel" }
func (*JoinCommand) Aliases() []string   { return []string{"connect"} }

func (c *JoinCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *JoinCommand) Run(ctx context.Context, cc *command.Context) error {
	channelID, err := c.voiceChannel(cc)
	if err != nil {
		return explain(cc, err)
	}

	p := c.S.Players.GetOrCreate(cc.Caller.GuildID())
	p.SetTextChannel(cc.Caller.ChannelID())
	if err := p.EnsureConnected(ctx, channelID); err != nil {
		return explain(cc, err)
	}
	return cc.Info("🔌 Joined <#%s>.", channelID)
}

// LeaveCommand is stop under another name.
type LeaveCommand struct{ base }

func (*LeaveCommand) Name() string        { return "leave" }
func (*LeaveCommand) Description() string { return "Stop playback and leave the voice channel" }
func (*LeaveCommand) Aliases() []string   { return []string{"disconnect", "dc"} }

func (c *LeaveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *LeaveCommand) Run(ctx context.Context, cc *command.Context) error {
	return stop(ctx, c.base, cc, "👋 Left the voice channel.")
}

type StopCommand struct{ base }

func (*StopCommand) Name() string        { return "stop" }
func (*StopCommand) Description() string { return "Stop playback, clear the queue and leave" }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *StopCommand) Run(ctx context.Context, cc *command.Context) error {
	return stop(ctx, c.base, cc, "⏹ Stopped and cleared the queue.")
}

func stop(ctx context.Context, b base, cc *command.Context, done string) error {
	if p, ok := b.player(cc); ok {
		if err := p.Stop(ctx); err != nil {
			return err
		}
	}
	return cc.Info("%s", done)
}
