package moderation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/bwmarrin/discordgo"
)

const maxPurge = 100

// Purger deletes up to limit of the newest messages in a channel and
// returns how many went.
type Purger interface {
	Purge(ctx context.Context, channelID string, limit int) (int, error)
}

type PurgeCommand struct {
	base
	Messages Purger
}

func (*PurgeCommand) Name() string        { return "purge" }
func (*PurgeCommand) Description() string { return "Delete recent messages in this channel" }
func (*PurgeCommand) Aliases() []string   { return []string{"clear"} }

func (c *PurgeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minAmount := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "amount",
				Description: "How many messages to delete (1-100)",
				Required:    true,
				MinValue:    &minAmount,
				MaxValue:    maxPurge,
			},
		},
	}
}

func (c *PurgeCommand) Run(ctx context.Context, cc *command.Context) error {
	amount, err := strconv.Atoi(cc.Arg("amount", 0))
	if err != nil || amount < 1 || amount > maxPurge {
		return cc.Fail("Give an amount between 1 and %d.", maxPurge)
	}

	limit := amount
	if cc.Text {
		// the invoking message goes too
		limit++
	}

	if err := cc.Caller.Defer(true); err != nil {
		return err
	}
	n, err := c.Messages.Purge(ctx, cc.Caller.ChannelID(), limit)
	if err != nil {
		return fmt.Errorf("purge %s: %w", cc.Caller.ChannelID(), err)
	}
	if cc.Text && n > 0 {
		n--
	}
	return cc.Caller.Reply(fmt.Sprintf("🧹 Deleted %d message(s).", n), true)
}
