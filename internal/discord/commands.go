package discord

import (
	"context"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/pkg/util"
	"github.com/bwmarrin/discordgo"
)

const registerWorkers = 4

// registerGuilds syncs slash commands for every guild, a few at a time. A
// failing guild is logged and does not stop the others.
func (b *Bot) registerGuilds(ctx context.Context, guildIDs []string) {
	_ = util.Parallel(ctx, guildIDs, registerWorkers, func(ctx context.Context, guildID string) error {
		if err := b.registerCommands(ctx, guildID); err != nil {
			b.log.Error().Err(err).Str("guild", guildID).Msg("Slash command registration failed")
		}
		return nil
	})
}

// registerCommands syncs a guild's slash commands with the registry:
// obsolete ones are deleted, changed or missing ones are created.
func (b *Bot) registerCommands(ctx context.Context, guildID string) error {
	if _, loaded := b.registered.LoadOrStore(guildID, struct{}{}); loaded {
		return nil
	}

	appID, err := b.appID()
	if err != nil {
		b.registered.Delete(guildID)
		return err
	}

	remote, err := b.dg.ApplicationCommands(appID, guildID, discordgo.WithContext(ctx))
	if err != nil {
		b.registered.Delete(guildID)
		return fmt.Errorf("list commands: %w", err)
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, rc := range remote {
		remoteByName[rc.Name] = rc
	}

	defs := b.definitions()
	wanted := make(map[string]string, len(defs))
	for _, d := range defs {
		wanted[d.Name] = hashCommand(d)
	}

	cached := b.hashes.load(guildID)
	log := b.log.With().Str("guild", guildID).Logger()

	for name, rc := range remoteByName {
		if _, ok := wanted[name]; ok {
			continue
		}
		if err := b.dg.ApplicationCommandDelete(appID, guildID, rc.ID, discordgo.WithContext(ctx)); err != nil {
			log.Warn().Err(err).Str("command", name).Msg("Failed to delete obsolete command")
			continue
		}
		delete(cached, name)
		log.Info().Str("command", name).Msg("Deleted obsolete command")
	}

	created := 0
	for _, d := range defs {
		_, exists := remoteByName[d.Name]
		if exists && cached[d.Name] == wanted[d.Name] {
			continue
		}
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, d, discordgo.WithContext(ctx)); err != nil {
			log.Warn().Err(err).Str("command", d.Name).Msg("Failed to register command")
			continue
		}
		cached[d.Name] = wanted[d.Name]
		created++
	}

	if err := b.hashes.save(guildID, cached); err != nil {
		log.Warn().Err(err).Msg("Failed to save command hashes")
	}
	log.Debug().Int("registered", created).Int("total", len(defs)).Msg("Slash commands synced")
	return nil
}

func (b *Bot) definitions() []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range b.Registry.GetAll() {
		if def := command.Definition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

func (b *Bot) appID() (string, error) {
	if b.cfg.ApplicationID != "" {
		return b.cfg.ApplicationID, nil
	}
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("fetch bot user: %w", err)
	}
	return u.ID, nil
}
