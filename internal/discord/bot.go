// Package discord connects the command registry and the music engine to a
// Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JeudiD/Ningyo/internal/config"
	"github.com/JeudiD/Ningyo/internal/logging"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// BotDelays looks up how long to wait before deleting a tracked bot's
// message.
type BotDelays interface {
	TrackedBotDelay(botID string) (time.Duration, bool)
}

// Bot owns the gateway session. Registry and Tracker must be set before Run.
type Bot struct {
	Registry *cmd.Registry
	Tracker  BotDelays

	cfg    *config.Config
	dg     *discordgo.Session
	log    zerolog.Logger
	hashes hashCache

	mu  sync.RWMutex
	ctx context.Context

	registered sync.Map
}

// New prepares a session without connecting it.
func New(cfg *config.Config, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentMessageContent

	return &Bot{
		cfg:    cfg,
		dg:     dg,
		log:    logging.Component(logger, "discord"),
		hashes: hashCache{dir: cfg.CommandCachePath},
		ctx:    context.Background(),
	}, nil
}

// Session is the underlying discordgo session, for the voice and message
// adapters.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Run connects and blocks until ctx ends, then closes the session.
func (b *Bot) Run(ctx context.Context) error {
	if b.Registry == nil {
		return fmt.Errorf("bot has no command registry")
	}
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, closing session")
	return b.dg.Close()
}

// runContext is the context handlers run commands under.
func (b *Bot) runContext() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	var serve []string
	for _, g := range r.Guilds {
		if b.leaveIfBlacklisted(s, g.ID) {
			continue
		}
		serve = append(serve, g.ID)
	}

	b.log.Info().Str("user", r.User.Username).Int("guilds", len(serve)).Msg("Discord bot is running")

	if !b.cfg.InitSlashCommands {
		b.log.Info().Msg("Slash command registration skipped")
		return
	}
	b.registerGuilds(b.runContext(), serve)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	if !b.cfg.InitSlashCommands {
		return
	}
	if err := b.registerCommands(b.runContext(), g.ID); err != nil {
		b.log.Error().Err(err).Str("guild", g.ID).Msg("Slash command registration failed")
	}
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !b.cfg.Blacklisted(guildID) {
		return false
	}
	b.log.Info().Str("guild", guildID).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
	return true
}
