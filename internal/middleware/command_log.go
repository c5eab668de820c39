package middleware

import (
	"context"
	"time"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/storage"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/rs/zerolog"
)

// HistoryStore persists executed commands per guild.
type HistoryStore interface {
	AppendCommandHistory(guildID string, rec storage.CommandHistoryRecord) error
}

// WithCommandLogger logs every execution and appends it to the guild's
// command history. Button presses are logged but not stored.
func WithCommandLogger(store HistoryStore, logger zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			cc, ok := command.FromInvocation(inv)
			if !ok {
				return err
			}

			user := cc.Caller.User()
			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			ev = ev.Str("command", c.Name()).
				Str("guild", cc.Caller.GuildID()).
				Str("channel", cc.Caller.ChannelID()).
				Dur("took", time.Since(start))
			if user != nil {
				ev = ev.Str("user", user.Username)
			}
			if cc.CustomID != "" {
				ev = ev.Str("component", cc.CustomID)
			}
			ev.Msg("Command executed")

			if store == nil || cc.Caller.GuildID() == "" || cc.CustomID != "" || user == nil {
				return err
			}

			guildName, channelName := cc.Caller.Names()
			rec := storage.CommandHistoryRecord{
				ChannelID:   cc.Caller.ChannelID(),
				ChannelName: channelName,
				GuildName:   guildName,
				UserID:      user.ID,
				Username:    user.Username,
				Command:     c.Name(),
				Datetime:    time.Now(),
			}
			if e := store.AppendCommandHistory(cc.Caller.GuildID(), rec); e != nil {
				logger.Warn().Err(e).Str("command", c.Name()).Msg("Failed to record command history")
			}
			return err
		})
	}
}
