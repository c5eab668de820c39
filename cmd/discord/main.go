// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JeudiD/Ningyo/internal/command"
	"github.com/JeudiD/Ningyo/internal/command/core"
	"github.com/JeudiD/Ningyo/internal/command/moderation"
	"github.com/JeudiD/Ningyo/internal/command/music"
	"github.com/JeudiD/Ningyo/internal/config"
	"github.com/JeudiD/Ningyo/internal/discord"
	"github.com/JeudiD/Ningyo/internal/logging"
	"github.com/JeudiD/Ningyo/internal/middleware"
	"github.com/JeudiD/Ningyo/internal/music/nowplaying"
	"github.com/JeudiD/Ningyo/internal/music/parsers"
	"github.com/JeudiD/Ningyo/internal/music/parsers/ffmpeg"
	"github.com/JeudiD/Ningyo/internal/music/parsers/kkdai"
	"github.com/JeudiD/Ningyo/internal/music/parsers/ytdlp"
	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/internal/music/source_resolver"
	"github.com/JeudiD/Ningyo/internal/music/sources/spotify"
	"github.com/JeudiD/Ningyo/internal/music/sources/youtube"
	"github.com/JeudiD/Ningyo/internal/music/sources/ytmusic"
	"github.com/JeudiD/Ningyo/internal/music/stream"
	"github.com/JeudiD/Ningyo/internal/storage"
	"github.com/JeudiD/Ningyo/pkg/cmd"
	"github.com/JeudiD/Ningyo/pkg/jobmgr"
	"github.com/JeudiD/Ningyo/pkg/retrylimit"
	"github.com/rs/zerolog/log"
)

const appName = "Ningyo"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	logger.Info().Msgf("Starting %s bot...", appName)

	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("Failed to open storage")
	}
	defer store.Close()

	bot, err := discord.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Discord session")
	}
	session := bot.Session()

	jobLog := logging.Component(logger, "jobs")
	jobs := jobmgr.NewManager(func(msg string) { jobLog.Debug().Msg(msg) })

	retry := retrylimit.DefaultRetryConfig()
	retry.Logger = logging.Component(logger, "resolver")
	resolver := source_resolver.New(
		source_resolver.Config{
			Timeout: cfg.ResolveTimeout,
			Retry:   retry,
			Limiter: retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
			Logger:  logging.Component(logger, "resolver"),
		},
		[]source_resolver.Searcher{ytmusic.New(), youtube.New()},
		[]parsers.Extractor{
			kkdai.New(cfg.YouTubeProxy, logging.Component(logger, "kkdai")),
			ytdlp.New(cfg.YouTubeProxy),
			ffmpeg.New(),
		},
		spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
	)

	voice := &discord.Voice{Session: session}
	messenger := &discord.Messenger{Session: session}
	presenter := nowplaying.New(messenger, jobs, cfg.NowPlayingRefresh, logging.Component(logger, "nowplaying"))

	players := player.NewManager(player.Config{
		DefaultVolume:    cfg.DefaultVolume,
		IdlePollInterval: cfg.IdlePollInterval,
		IdleTimeout:      cfg.IdleTimeout,
		ClearQueueOnIdle: cfg.IdleClearQueue,
		Logger:           logging.Component(logger, "player"),
	}, player.Deps{
		Connector: voice,
		Streamer: stream.New(stream.Config{
			FFmpegPath:    cfg.FFmpegPath,
			MaxRecoveries: 3,
			Logger:        logging.Component(logger, "stream"),
		}),
		Display:   presenter,
		Occupancy: voice,
		Jobs:      jobs,
	})
	presenter.Attach(players)

	reg := cmd.NewRegistry()
	mws := []cmd.Middleware{
		middleware.WithGuildOnly(),
		middleware.WithUserPermissionCheck(cfg.DeveloperID),
		middleware.WithCommandLogger(store, logging.Component(logger, "commands")),
	}

	svc := &music.Service{
		Players:    players,
		Resolver:   resolver,
		Voice:      voice,
		NowPlaying: presenter,
		VolumeStep: cfg.VolumeStep,
	}
	cmds := append(svc.Commands(),
		&core.PingCommand{Session: session},
		&core.HelpCommand{Registry: reg, Prefix: cfg.CommandPrefix, AppName: appName},
		&moderation.PurgeCommand{Messages: messenger},
		&moderation.TrackBotCommand{Store: store},
		&moderation.UntrackBotCommand{Store: store},
		&moderation.TrackedBotsCommand{Store: store},
	)
	for _, c := range cmds {
		if err := command.RegisterCommand(reg, c, mws...); err != nil {
			logger.Fatal().Err(err).Str("command", c.Name()).Msg("Failed to register command")
		}
	}

	bot.Registry = reg
	bot.Tracker = store

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the session outlives the signal so voice connections can be closed
	botCtx, cancelBot := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- bot.Run(botCtx) }()

	select {
	case <-sigCtx.Done():
		logger.Info().Msg("Shutting down...")
		shutdown(players)
		cancelBot()
		err = <-errCh
	case err = <-errCh:
		cancelBot()
		shutdown(players)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Discord bot error")
	}
	logger.Info().Msg("Discord bot exited cleanly")
}

func shutdown(players *player.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	players.StopAll(ctx)
}
