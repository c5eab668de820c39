package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/storage"
	"github.com/bwmarrin/discordgo"
)

const maxTrackDelay = 3600

// BotTracker persists which bots get their messages deleted and after how
// long. *storage.Storage satisfies it.
type BotTracker interface {
	TrackBot(botID string, delaySeconds int) error
	UntrackBot(botID string) error
	TrackedBots() (map[string]int, error)
}

type TrackBotCommand struct {
	base
	Store BotTracker
}

func (*TrackBotCommand) Name() string { return "trackbot" }
func (*TrackBotCommand) Description() string {
	return "Auto delete a bot's messages after a delay"
}

func (c *TrackBotCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minDelay := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "bot",
				Description: "The bot to track",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "delay",
				Description: "Seconds before its messages are deleted (1-3600)",
				Required:    true,
				MinValue:    &minDelay,
				MaxValue:    maxTrackDelay,
			},
		},
	}
}

func (c *TrackBotCommand) Run(_ context.Context, cc *command.Context) error {
	botID := userID(cc.Arg("bot", 0))
	if !snowflake.MatchString(botID) {
		return cc.Fail("Usage: `trackbot <bot> <delay seconds>`.")
	}
	delay, err := strconv.Atoi(cc.Arg("delay", 1))
	if err != nil || delay < 1 || delay > maxTrackDelay {
		return cc.Fail("The delay must be between 1 and %d seconds.", maxTrackDelay)
	}
	if err := c.Store.TrackBot(botID, delay); err != nil {
		return fmt.Errorf("track bot %s: %w", botID, err)
	}
	return cc.Info("🤖 Messages from <@%s> will be deleted after %ds.", botID, delay)
}

type UntrackBotCommand struct {
	base
	Store BotTracker
}

func (*UntrackBotCommand) Name() string        { return "untrackbot" }
func (*UntrackBotCommand) Description() string { return "Stop auto deleting a bot's messages" }

func (c *UntrackBotCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "bot",
				Description: "The bot to stop tracking",
				Required:    true,
			},
		},
	}
}

func (c *UntrackBotCommand) Run(_ context.Context, cc *command.Context) error {
	botID := userID(cc.Arg("bot", 0))
	if !snowflake.MatchString(botID) {
		return cc.Fail("Usage: `untrackbot <bot>`.")
	}
	err := c.Store.UntrackBot(botID)
	switch {
	case errors.Is(err, storage.ErrBotNotTracked):
		return cc.Fail("<@%s> is not tracked.", botID)
	case err != nil:
		return fmt.Errorf("untrack bot %s: %w", botID, err)
	}
	return cc.Info("🤖 <@%s> is no longer tracked.", botID)
}

type TrackedBotsCommand struct {
	base
	Store BotTracker
}

func (*TrackedBotsCommand) Name() string        { return "trackedbots" }
func (*TrackedBotsCommand) Description() string { return "List bots whose messages are auto deleted" }

func (c *TrackedBotsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *TrackedBotsCommand) Run(_ context.Context, cc *command.Context) error {
	bots, err := c.Store.TrackedBots()
	if err != nil {
		return fmt.Errorf("list tracked bots: %w", err)
	}
	if len(bots) == 0 {
		return cc.Info("No bots are tracked.")
	}
	ids := make([]string, 0, len(bots))
	for id := range bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&sb, "<@%s> · %ds\n", id, bots[id])
	}
	return cc.Caller.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Tracked bots",
		Description: strings.TrimSpace(sb.String()),
		Color:       command.EmbedColor,
	}, true)
}
