package music

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/bwmarrin/discordgo"
)

type QueueCommand struct{ base }

func (*QueueCommand) Name() string        { return "queue" }
func (*QueueCommand) Description() string { return "List upcoming tracks" }
func (*QueueCommand) Aliases() []string   { return []string{"q"} }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minPage := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page",
				Description: "Page number",
				MinValue:    &minPage,
			},
		},
	}
}

func (c *QueueCommand) Run(_ context.Context, cc *command.Context) error {
	page := 1
	if arg := cc.Arg("page", 0); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return cc.Fail("Page must be a positive number.")
		}
		page = n
	}

	var st player.State
	if p, ok := c.player(cc); ok {
		st = p.Snapshot()
	}
	if st.Current == nil && len(st.Queue) == 0 {
		return cc.Info("📭 The queue is empty.")
	}

	embed, err := QueueEmbed(st, page)
	if err != nil {
		return cc.Fail("%v", err)
	}
	return cc.Caller.ReplyEmbed(embed, false)
}

// QueueEmbed renders one page of the queue, with the current track on top.
func QueueEmbed(st player.State, page int) (*discordgo.MessageEmbed, error) {
	var b strings.Builder
	if st.Current != nil {
		fmt.Fprintf(&b, "%s **Now:** %s\n\n", st.Status.StringEmoji(), trackLink(st.Current))
	}

	pages := player.Paginate(st.Queue, player.PageSize)
	footer := fmt.Sprintf("%d in queue · repeat %s", len(st.Queue), st.Repeat)

	if page > max(len(pages), 1) {
		return nil, fmt.Errorf("page %d does not exist, the queue has %d page(s)", page, len(pages))
	}
	if len(pages) == 0 {
		b.WriteString("Nothing queued after this.")
	} else {
		current := pages[page-1]
		for _, e := range current.Entries {
			fmt.Fprintf(&b, "`%d.` %s%s\n", e.Position, trackLink(e.Track), length(e.Track))
		}
		footer = fmt.Sprintf("Page %d/%d · %s", current.Number, current.Total, footer)
	}

	return &discordgo.MessageEmbed{
		Title:       "🎶 Queue",
		Description: b.String(),
		Color:       command.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}, nil
}

func length(t *track.Track) string {
	if t.Live() {
		return " · live"
	}
	return " · " + track.FormatDuration(t.Length())
}
