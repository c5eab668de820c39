package music

import (
	"context"
	"strconv"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/music/nowplaying"
	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/bwmarrin/discordgo"
)

type PauseCommand struct{ base }

func (*PauseCommand) Name() string        { return "pause" }
func (*PauseCommand) Description() string { return "Pause playback" }

func (c *PauseCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *PauseCommand) Run(_ context.Context, cc *command.Context) error {
	p, ok := c.player(cc)
	if !ok {
		return explain(cc, player.ErrNotPlaying)
	}
	if err := p.Pause(); err != nil {
		return explain(cc, err)
	}
	return cc.Info("⏸ Paused.")
}

type ResumeCommand struct{ base }

func (*ResumeCommand) Name() string        { return "resume" }
func (*ResumeCommand) Description() string { return "Resume playback" }
func (*ResumeCommand) Aliases() []string   { return []string{"unpause"} }

func (c *ResumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *ResumeCommand) Run(_ context.Context, cc *command.Context) error {
	p, ok := c.player(cc)
	if !ok {
		return explain(cc, player.ErrNotPaused)
	}
	if err := p.Resume(); err != nil {
		return explain(cc, err)
	}
	return cc.Info("▶️ Resumed.")
}

type SkipCommand struct{ base }

func (*SkipCommand) Name() string        { return "skip" }
func (*SkipCommand) Description() string { return "Skip the current track" }
func (*SkipCommand) Aliases() []string   { return []string{"next", "s"} }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *SkipCommand) Run(_ context.Context, cc *command.Context) error {
	p, ok := c.player(cc)
	if !ok {
		return explain(cc, player.ErrNotPlaying)
	}
	if err := p.Skip(); err != nil {
		return explain(cc, err)
	}
	return cc.Info("⏭ Skipped.")
}

type VolumeCommand struct{ base }

func (*VolumeCommand) Name() string        { return "volume" }
func (*VolumeCommand) Description() string { return "Show or set the volume" }
func (*VolumeCommand) Aliases() []string   { return []string{"vol"} }

func (c *VolumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minValue := 0.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "percent",
				Description: "Volume from 0 to 100",
				MinValue:    &minValue,
				MaxValue:    100,
			},
		},
	}
}

func (c *VolumeCommand) Run(_ context.Context, cc *command.Context) error {
	arg := cc.Arg("percent", 0)
	p := c.S.Players.GetOrCreate(cc.Caller.GuildID())

	if arg == "" {
		return cc.Info("🔊 Volume: %s", nowplaying.VolumePercent(p.Snapshot().Volume))
	}

	percent, err := strconv.Atoi(arg)
	if err != nil || percent < 0 || percent > 100 {
		return cc.Fail("Volume must be a whole number from 0 to 100.")
	}
	v := p.SetVolume(float64(percent) / 100)
	return cc.Info("🔊 Volume set to %s", nowplaying.VolumePercent(v))
}

type RepeatCommand struct{ base }

func (*RepeatCommand) Name() string        { return "repeat" }
func (*RepeatCommand) Description() string { return "Cycle repeat mode: off, one, all" }
func (*RepeatCommand) Aliases() []string   { return []string{"loop"} }

func (c *RepeatCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *RepeatCommand) Run(_ context.Context, cc *command.Context) error {
	mode := c.S.Players.GetOrCreate(cc.Caller.GuildID()).CycleRepeat()
	return cc.Info("🔁 Repeat: %s", mode)
}
