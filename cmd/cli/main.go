// Command cli holds maintenance tasks that run without a gateway connection.
//
//	cli wipe [--guild ID]   delete all global (or guild) application commands
//	cli bots                list tracked bots and their delays
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/JeudiD/Ningyo/internal/config"
	"github.com/JeudiD/Ningyo/internal/logging"
	"github.com/JeudiD/Ningyo/internal/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

var (
	okColor   = color.New(color.FgHiGreen)
	failColor = color.New(color.FgHiRed)
	dimColor  = color.New(color.FgHiBlack)
)

// commandAPI is the part of *discordgo.Session wipe needs.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// trackedBots is the part of *storage.Storage bots needs.
type trackedBots interface {
	TrackedBots() (map[string]int, error)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.New(logging.Config{Level: cfg.LogLevel, Format: "console"})

	switch os.Args[1] {
	case "wipe":
		err = runWipe(cfg, os.Args[2:])
	case "bots":
		err = runBots(cfg)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		failColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: cli wipe [--guild ID] | cli bots")
}

func runWipe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("wipe", flag.ContinueOnError)
	guildID := fs.String("guild", "", "guild to wipe instead of the global commands")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.ApplicationID == "" {
		return errors.New("APPLICATION_ID is required")
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return wipe(dg, cfg.ApplicationID, *guildID, os.Stdout)
}

func wipe(api commandAPI, appID, guildID string, out io.Writer) error {
	cmds, err := api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	scope := "global"
	if guildID != "" {
		scope = "guild " + guildID
	}
	if len(cmds) == 0 {
		dimColor.Fprintf(out, "No %s commands registered.\n", scope)
		return nil
	}

	failed := 0
	for _, c := range cmds {
		if err := api.ApplicationCommandDelete(appID, guildID, c.ID); err != nil {
			failColor.Fprintf(out, "✗ %s: %v\n", c.Name, err)
			failed++
			continue
		}
		okColor.Fprintf(out, "✓ %s\n", c.Name)
	}
	fmt.Fprintf(out, "Deleted %d/%d %s commands.\n", len(cmds)-failed, len(cmds), scope)
	if failed > 0 {
		return fmt.Errorf("%d command(s) could not be deleted", failed)
	}
	return nil
}

func runBots(cfg *config.Config) error {
	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return listBots(store, os.Stdout)
}

func listBots(store trackedBots, out io.Writer) error {
	bots, err := store.TrackedBots()
	if err != nil {
		return err
	}
	if len(bots) == 0 {
		dimColor.Fprintln(out, "No bots are tracked.")
		return nil
	}
	ids := make([]string, 0, len(bots))
	for id := range bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "%s\t%ds\n", id, bots[id])
	}
	return nil
}
