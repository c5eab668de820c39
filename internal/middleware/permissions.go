package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/bwmarrin/discordgo"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:     "Administrator",
	discordgo.PermissionManageGuild:       "Manage Server",
	discordgo.PermissionManageChannels:    "Manage Channels",
	discordgo.PermissionManageMessages:    "Manage Messages",
	discordgo.PermissionVoiceConnect:      "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:        "Speak",
	discordgo.PermissionVoiceMoveMembers:  "Move Members",
	discordgo.PermissionVoiceMuteMembers:  "Mute Members",
	discordgo.PermissionModerateMembers:   "Moderate Members",
	discordgo.PermissionSendMessages:      "Send Messages",
	discordgo.PermissionReadMessageHistory: "Read Message History",
}

// WithUserPermissionCheck requires the caller to hold at least one of the
// command's UserPermissions. Administrators and the developer always pass.
func WithUserPermissionCheck(developerID string) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			cc, ok := command.FromInvocation(inv)
			if !ok || cc.Caller.GuildID() == "" {
				return c.Run(ctx, inv)
			}

			meta, ok := cmd.As[command.DiscordMeta](c)
			if !ok || len(meta.UserPermissions()) == 0 {
				return c.Run(ctx, inv)
			}
			if developerID != "" && cc.UserID() == developerID {
				return c.Run(ctx, inv)
			}

			perms, err := cc.Caller.Permissions()
			if err != nil {
				return fmt.Errorf("failed to get user permissions: %w", err)
			}
			if HasAny(perms, meta.UserPermissions()) {
				return c.Run(ctx, inv)
			}

			return cc.Fail("You need at least one of the following permissions to run this command:\n`%s`",
				strings.Join(Describe(meta.UserPermissions()), "`, `"))
		})
	}
}

// HasAny reports whether perms grants administrator or any of required.
func HasAny(perms int64, required []int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, p := range required {
		if perms&p != 0 {
			return true
		}
	}
	return false
}

func Describe(required []int64) []string {
	names := make([]string, 0, len(required))
	for _, p := range required {
		name := PermissionNames[p]
		if name == "" {
			name = fmt.Sprintf("0x%x", p)
		}
		names = append(names, name)
	}
	return names
}
