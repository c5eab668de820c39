package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/bwmarrin/discordgo"
)

// Caller is whoever invoked a command: a prefixed text message, a slash
// interaction or a button press. Commands reply through it without knowing
// which.
type Caller interface {
	GuildID() string
	ChannelID() string
	User() *discordgo.User
	// Names resolves the guild and channel names for logging. Either may be
	// empty.
	Names() (guild, channel string)
	Permissions() (int64, error)

	Reply(text string, ephemeral bool) error
	ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error
	// Defer acknowledges a slow command. Replies after Defer become
	// followups.
	Defer(ephemeral bool) error
}

// Context is what every command receives.
type Context struct {
	Caller Caller
	// Args are the whitespace separated words after the command name in a
	// text invocation.
	Args []string
	// Options are slash command options by name.
	Options map[string]string
	// CustomID is set for button presses.
	CustomID string
	// Text is set when the command came from a prefixed message, which
	// itself sits in the channel.
	Text bool
}

// Arg returns the named slash option, or the positional text argument at
// index.
func (c *Context) Arg(name string, index int) string {
	if v, ok := c.Options[name]; ok {
		return v
	}
	if index >= 0 && index < len(c.Args) {
		return c.Args[index]
	}
	return ""
}

// Rest returns the named slash option, or every text argument joined.
func (c *Context) Rest(name string) string {
	if v, ok := c.Options[name]; ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(strings.Join(c.Args, " "))
}

// UserID is the invoking user's ID, or "" when unknown.
func (c *Context) UserID() string {
	if u := c.Caller.User(); u != nil {
		return u.ID
	}
	return ""
}

// Fail replies with a short ephemeral error embed.
func (c *Context) Fail(format string, args ...any) error {
	return c.Caller.ReplyEmbed(&discordgo.MessageEmbed{
		Description: "⚠️ " + fmt.Sprintf(format, args...),
		Color:       ErrorColor,
	}, true)
}

// Info replies with a public embed.
func (c *Context) Info(format string, args ...any) error {
	return c.Caller.ReplyEmbed(&discordgo.MessageEmbed{
		Description: fmt.Sprintf(format, args...),
		Color:       EmbedColor,
	}, false)
}

// FromInvocation extracts the Context an adapter stored in inv.
func FromInvocation(inv *cmd.Invocation) (*Context, bool) {
	if inv == nil {
		return nil, false
	}
	c, ok := inv.Data.(*Context)
	return c, ok && c != nil && c.Caller != nil
}

// Run invokes c with cc, the entry point of every transport.
func Run(ctx context.Context, c cmd.Command, cc *Context) error {
	return c.Run(ctx, &cmd.Invocation{Args: cc.Args, Data: cc})
}
