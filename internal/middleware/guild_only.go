package middleware

import (
	"context"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/pkg/cmd"
)

// WithGuildOnly rejects invocations from direct messages.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if cc, ok := command.FromInvocation(inv); ok && cc.Caller.GuildID() == "" {
				return cc.Fail("This command only works in a server.")
			}
			return c.Run(ctx, inv)
		})
	}
}
