package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/bwmarrin/discordgo"
)

// Pinger reports the gateway heartbeat round trip. *discordgo.Session
// satisfies it.
type Pinger interface {
	HeartbeatLatency() time.Duration
}

type PingCommand struct {
	maintenance
	Session Pinger
}

func (*PingCommand) Name() string        { return "ping" }
func (*PingCommand) Description() string { return "Check bot latency" }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *PingCommand) Run(_ context.Context, cc *command.Context) error {
	var latency time.Duration
	if c.Session != nil {
		latency = c.Session.HeartbeatLatency()
	}
	return cc.Caller.Reply(fmt.Sprintf("🏓 Pong! %dms", latency.Milliseconds()), false)
}
