package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken      string   `env:"DISCORD_TOKEN,required,notEmpty"`
	ApplicationID     string   `env:"APPLICATION_ID"`
	DeveloperID       string   `env:"DEVELOPER_ID"`
	GuildBlacklist    []string `env:"GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandPrefix     string   `env:"COMMAND_PREFIX" envDefault:"!"`

	StoragePath      string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	CommandCachePath string `env:"COMMAND_CACHE_PATH" envDefault:"data/commands"`

	IdlePollInterval  time.Duration `env:"IDLE_POLL_INTERVAL" envDefault:"60s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"300s"`
	IdleClearQueue    bool          `env:"IDLE_CLEAR_QUEUE" envDefault:"false"`
	NowPlayingRefresh time.Duration `env:"NOW_PLAYING_REFRESH" envDefault:"5s"`
	ResolveTimeout    time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"20s"`
	DefaultVolume     float64       `env:"DEFAULT_VOLUME" envDefault:"0.5"`
	VolumeStep        float64       `env:"VOLUME_STEP" envDefault:"0.1"`

	FFmpegPath          string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	YouTubeProxy        string `env:"YOUTUBE_PROXY"`
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"20"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
}

// Load reads .env files (if any) and parses the environment.
func Load(files ...string) (*Config, error) {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse builds a Config from the current process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_VOLUME must be within [0,1], got %v", c.DefaultVolume))
	}
	if c.VolumeStep <= 0 || c.VolumeStep > 1 {
		errs = append(errs, fmt.Errorf("VOLUME_STEP must be within (0,1], got %v", c.VolumeStep))
	}
	if c.IdlePollInterval <= 0 {
		errs = append(errs, errors.New("IDLE_POLL_INTERVAL must be positive"))
	}
	if c.IdleTimeout < c.IdlePollInterval {
		errs = append(errs, errors.New("IDLE_TIMEOUT must not be shorter than IDLE_POLL_INTERVAL"))
	}
	if c.NowPlayingRefresh <= 0 {
		errs = append(errs, errors.New("NOW_PLAYING_REFRESH must be positive"))
	}
	if c.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("RESOLVE_TIMEOUT must be positive"))
	}
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be empty"))
	}
	return errors.Join(errs...)
}

// Blacklisted reports whether the bot should refuse to serve the guild.
func (c *Config) Blacklisted(guildID string) bool {
	for _, id := range c.GuildBlacklist {
		if id == guildID {
			return true
		}
	}
	return false
}
