package command

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// MessageCaller answers a prefixed text command. Ephemeral replies are not
// possible in channels, so the flag is ignored.
type MessageCaller struct {
	Session *discordgo.Session
	Event   *discordgo.MessageCreate
}

func (m *MessageCaller) GuildID() string       { return m.Event.GuildID }
func (m *MessageCaller) ChannelID() string     { return m.Event.ChannelID }
func (m *MessageCaller) User() *discordgo.User { return m.Event.Author }

func (m *MessageCaller) Names() (string, string) {
	return stateNames(m.Session, m.Event.GuildID, m.Event.ChannelID)
}

func (m *MessageCaller) Permissions() (int64, error) {
	return m.Session.UserChannelPermissions(m.Event.Author.ID, m.Event.ChannelID)
}

func (m *MessageCaller) Reply(text string, _ bool) error {
	_, err := m.Session.ChannelMessageSendReply(m.Event.ChannelID, text, m.Event.SoftReference())
	return err
}

func (m *MessageCaller) ReplyEmbed(embed *discordgo.MessageEmbed, _ bool) error {
	_, err := m.Session.ChannelMessageSendComplex(m.Event.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: m.Event.SoftReference(),
	})
	return err
}

func (m *MessageCaller) Defer(bool) error {
	return m.Session.ChannelTyping(m.Event.ChannelID)
}

// InteractionCaller answers a slash command. The first reply responds to
// the interaction; later ones, or any after Defer, are followups.
type InteractionCaller struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate

	mu    sync.Mutex
	acked bool
}

func (i *InteractionCaller) GuildID() string   { return i.Event.GuildID }
func (i *InteractionCaller) ChannelID() string { return i.Event.ChannelID }

func (i *InteractionCaller) User() *discordgo.User {
	if i.Event.Member != nil && i.Event.Member.User != nil {
		return i.Event.Member.User
	}
	return i.Event.User
}

func (i *InteractionCaller) Names() (string, string) {
	return stateNames(i.Session, i.Event.GuildID, i.Event.ChannelID)
}

// Permissions are the member's resolved channel permissions, sent with the
// interaction.
func (i *InteractionCaller) Permissions() (int64, error) {
	if i.Event.Member != nil {
		return i.Event.Member.Permissions, nil
	}
	return 0, nil
}

func (i *InteractionCaller) Reply(text string, ephemeral bool) error {
	return i.respond(text, nil, ephemeral)
}

func (i *InteractionCaller) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return i.respond("", []*discordgo.MessageEmbed{embed}, ephemeral)
}

func (i *InteractionCaller) Defer(ephemeral bool) error {
	return i.ack(discordgo.InteractionResponseDeferredChannelMessageWithSource, ephemeral)
}

func (i *InteractionCaller) ack(kind discordgo.InteractionResponseType, ephemeral bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.acked {
		return nil
	}
	err := i.Session.InteractionRespond(i.Event.Interaction, &discordgo.InteractionResponse{
		Type: kind,
		Data: &discordgo.InteractionResponseData{Flags: flags(ephemeral)},
	})
	if err == nil {
		i.acked = true
	}
	return err
}

func (i *InteractionCaller) respond(text string, embeds []*discordgo.MessageEmbed, ephemeral bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.acked {
		_, err := i.Session.FollowupMessageCreate(i.Event.Interaction, true, &discordgo.WebhookParams{
			Content: text,
			Embeds:  embeds,
			Flags:   flags(ephemeral),
		})
		return err
	}

	err := i.Session.InteractionRespond(i.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Embeds:  embeds,
			Flags:   flags(ephemeral),
		},
	})
	if err == nil {
		i.acked = true
	}
	return err
}

// ComponentCaller answers a button press. Deferring acknowledges the press
// without posting anything, since the pressed message itself gets updated.
type ComponentCaller struct {
	*InteractionCaller
}

func NewComponentCaller(s *discordgo.Session, e *discordgo.InteractionCreate) *ComponentCaller {
	return &ComponentCaller{InteractionCaller: &InteractionCaller{Session: s, Event: e}}
}

func (c *ComponentCaller) Defer(bool) error {
	return c.ack(discordgo.InteractionResponseDeferredMessageUpdate, false)
}

func flags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func stateNames(s *discordgo.Session, guildID, channelID string) (guild, channel string) {
	if s == nil || s.State == nil {
		return "", ""
	}
	if g, err := s.State.Guild(guildID); err == nil && g != nil {
		guild = g.Name
	}
	if c, err := s.State.Channel(channelID); err == nil && c != nil {
		channel = c.Name
	}
	return guild, channel
}
