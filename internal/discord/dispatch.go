package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if b.scheduleAutoDelete(s, m) || m.Author.Bot {
		return
	}

	name, args, ok := parsePrefix(m.Content, b.cfg.CommandPrefix)
	if !ok {
		return
	}
	c := b.Registry.Get(name)
	if c == nil || command.Definition(c) == nil {
		return
	}

	b.run(c, &command.Context{
		Caller: &command.MessageCaller{Session: s, Event: m},
		Args:   args,
		Text:   true,
	})
}

// scheduleAutoDelete removes a tracked bot's message after its delay.
func (b *Bot) scheduleAutoDelete(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if b.Tracker == nil || m.GuildID == "" {
		return false
	}
	delay, ok := b.Tracker.TrackedBotDelay(m.Author.ID)
	if !ok {
		return false
	}
	channelID, messageID := m.ChannelID, m.ID
	time.AfterFunc(delay, func() {
		err := s.ChannelMessageDelete(channelID, messageID)
		if err != nil && !isUnknownMessage(err) {
			b.log.Warn().Err(err).Str("channel", channelID).Str("message", messageID).Msg("Auto delete failed")
		}
	})
	return true
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		c := b.Registry.Get(data.Name)
		if c == nil {
			b.log.Warn().Str("command", data.Name).Msg("Unknown slash command")
			return
		}
		b.run(c, &command.Context{
			Caller:  &command.InteractionCaller{Session: s, Event: i},
			Options: flattenOptions(data.Options),
		})

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		c := b.Registry.Get(componentRoute(customID))
		if c == nil {
			b.log.Warn().Str("custom_id", customID).Msg("No handler for component")
			return
		}
		b.run(c, &command.Context{
			Caller:   command.NewComponentCaller(s, i),
			CustomID: customID,
		})
	}
}

// run invokes c and turns a returned error into a log line and an
// ephemeral reply.
func (b *Bot) run(c cmd.Command, cc *command.Context) {
	ctx, cancel := context.WithCancel(b.runContext())
	defer cancel()

	err := command.Run(ctx, c, cc)
	if err == nil {
		return
	}
	b.log.Error().Err(err).
		Str("command", c.Name()).
		Str("guild", cc.Caller.GuildID()).
		Str("user", cc.UserID()).
		Msg("Command failed")
	if replyErr := cc.Fail("Error running command: %v", err); replyErr != nil {
		b.log.Debug().Err(replyErr).Msg("Failed to report command error")
	}
}

// parsePrefix splits "!play some song" into ("play", ["some", "song"]).
func parsePrefix(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// flattenOptions turns slash options into name/value strings, descending
// into subcommands.
func flattenOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string)
	var walk func([]*discordgo.ApplicationCommandInteractionDataOption)
	walk = func(opts []*discordgo.ApplicationCommandInteractionDataOption) {
		for _, o := range opts {
			switch o.Type {
			case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
				out["subcommand"] = o.Name
				walk(o.Options)
			case discordgo.ApplicationCommandOptionInteger:
				out[o.Name] = strconv.FormatInt(o.IntValue(), 10)
			case discordgo.ApplicationCommandOptionNumber:
				out[o.Name] = strconv.FormatFloat(o.FloatValue(), 'f', -1, 64)
			case discordgo.ApplicationCommandOptionBoolean:
				out[o.Name] = strconv.FormatBool(o.BoolValue())
			default:
				out[o.Name] = fmt.Sprint(o.Value)
			}
		}
	}
	walk(opts)
	return out
}

// componentRoute maps "music:pause" to the "music" command.
func componentRoute(customID string) string {
	return strings.SplitN(customID, ":", 2)[0]
}
