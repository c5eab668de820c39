// Package commandtest provides a recording command.Caller for tests.
package commandtest

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

type Reply struct {
	Text      string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Body is the reply text, or the embed description.
func (r Reply) Body() string {
	if r.Embed != nil {
		return r.Embed.Description
	}
	return r.Text
}

// Caller records replies instead of sending them.
type Caller struct {
	Guild    string
	Channel  string
	Author   *discordgo.User
	Perms    int64
	PermsErr error

	mu       sync.Mutex
	replies  []Reply
	deferred bool
}

func New(guildID, channelID, userID string) *Caller {
	return &Caller{
		Guild:   guildID,
		Channel: channelID,
		Author:  &discordgo.User{ID: userID, Username: "user-" + userID},
	}
}

func (c *Caller) GuildID() string             { return c.Guild }
func (c *Caller) ChannelID() string           { return c.Channel }
func (c *Caller) User() *discordgo.User       { return c.Author }
func (c *Caller) Names() (string, string)     { return "guild-" + c.Guild, "channel-" + c.Channel }
func (c *Caller) Permissions() (int64, error) { return c.Perms, c.PermsErr }

func (c *Caller) Reply(text string, ephemeral bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, Reply{Text: text, Ephemeral: ephemeral})
	return nil
}

func (c *Caller) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, Reply{Embed: embed, Ephemeral: ephemeral})
	return nil
}

func (c *Caller) Defer(bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred = true
	return nil
}

func (c *Caller) Replies() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Reply(nil), c.replies...)
}

// Last returns the most recent reply, or a zero Reply.
func (c *Caller) Last() Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return Reply{}
	}
	return c.replies[len(c.replies)-1]
}

func (c *Caller) Deferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deferred
}
