package music

import (
	"context"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/bwmarrin/discordgo"
)

type PlayCommand struct{ base }

func (*PlayCommand) Name() string        { return "play" }
func (*PlayCommand) Description() string { return "Play a song from a link or search query" }
func (*PlayCommand) Aliases() []string   { return []string{"p"} }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Link (YouTube, Spotify, SoundCloud, radio) or search terms",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx context.Context, cc *command.Context) error {
	query := cc.Rest("query")
	if query == "" {
		return cc.Fail("Usage: `play <link or search terms>`")
	}

	channelID, err := c.voiceChannel(cc)
	if err != nil {
		return explain(cc, err)
	}

	if err := cc.Caller.Defer(false); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	t, err := c.S.Resolver.Resolve(ctx, query, requester(cc))
	if err != nil {
		return explain(cc, err)
	}

	p := c.S.Players.GetOrCreate(cc.Caller.GuildID())
	p.SetTextChannel(cc.Caller.ChannelID())
	res, err := p.Play(ctx, t, channelID)
	if err != nil {
		return explain(cc, err)
	}

	if res.Started {
		return cc.Info("▶️ Now playing %s", trackLink(t))
	}
	return cc.Info("➕ Queued at position %d: %s", res.Position, trackLink(t))
}
