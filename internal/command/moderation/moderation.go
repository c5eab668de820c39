// Package moderation holds the channel cleanup commands: purge and the
// tracked-bot auto delete settings.
package moderation

import (
	"regexp"

	"github.com/JeudiD/Ningyo/internal/config"
	"github.com/bwmarrin/discordgo"
)

type base struct{}

func (base) Group() string    { return "moderation" }
func (base) Category() string { return config.CategoryCleanup }

func (base) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageMessages}
}

var (
	mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)
	snowflake      = regexp.MustCompile(`^\d{15,21}$`)
)

// userID accepts a raw snowflake or a user mention.
func userID(s string) string {
	if m := mentionPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
