package command

import (
	"context"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/music/nowplaying"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/bwmarrin/discordgo"
)

const (
	EmbedColor = nowplaying.EmbedColor
	ErrorColor = 0xd83c3e
)

// SlashProvider is implemented by commands exposed as slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// DiscordMeta lets middleware read a command's grouping and required
// permissions through any number of wrappers.
type DiscordMeta interface {
	Group() string
	Category() string
	UserPermissions() []int64
}

// DiscordCommand is what individual commands implement.
type DiscordCommand interface {
	Name() string
	Description() string
	Group() string
	Category() string
	UserPermissions() []int64
	Run(ctx context.Context, c *Context) error
}

// DiscordAdapter lifts a DiscordCommand into a cmd.Command so it can live in
// the registry and be wrapped by middleware.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string             { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string      { return a.Cmd.Description() }
func (a *DiscordAdapter) Group() string            { return a.Cmd.Group() }
func (a *DiscordAdapter) Category() string         { return a.Cmd.Category() }
func (a *DiscordAdapter) UserPermissions() []int64 { return a.Cmd.UserPermissions() }

func (a *DiscordAdapter) Aliases() []string {
	if al, ok := a.Cmd.(cmd.Aliased); ok {
		return al.Aliases()
	}
	return nil
}

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	c, ok := FromInvocation(inv)
	if !ok {
		return fmt.Errorf("command %s: missing caller context", a.Cmd.Name())
	}
	return a.Cmd.Run(ctx, c)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// RegisterCommand wraps c with mws and adds it to reg.
func RegisterCommand(reg *cmd.Registry, c DiscordCommand, mws ...cmd.Middleware) error {
	return reg.Register(cmd.Apply(&DiscordAdapter{Cmd: c}, mws...))
}

// Definition returns the slash definition of a registered command, looking
// through middleware wrappers. Commands without one yield nil.
func Definition(c cmd.Command) *discordgo.ApplicationCommand {
	sp, ok := cmd.Root(c).(SlashProvider)
	if !ok {
		return nil
	}
	def := sp.SlashDefinition()
	if def != nil && def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}
