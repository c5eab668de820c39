package player

import (
	"errors"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/track"
)

type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	default:
		return "Idle"
	}
}

// StringEmoji renders the status for embeds.
func (s Status) StringEmoji() string {
	switch s {
	case StatusConnecting:
		return "🔌"
	case StatusPlaying:
		return "▶️"
	case StatusPaused:
		return "⏸"
	default:
		return "⏹"
	}
}

type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// Next cycles Off -> One -> All -> Off.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatOff
	}
}

func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "One"
	case RepeatAll:
		return "All"
	default:
		return "Off"
	}
}

var (
	ErrNotInVoiceChannel = errors.New("you need to be in a voice channel")
	ErrNotPlaying        = errors.New("nothing is playing")
	ErrNotPaused         = errors.New("playback is not paused")
	ErrPlaybackFailed    = errors.New("could not start playback")
)

// State is a read-only snapshot of a guild session. Version grows with every
// transition so renderers can drop stale snapshots.
type State struct {
	GuildID       string
	Version       uint64
	Status        Status
	Current       *track.Track
	Queue         []*track.Track
	Repeat        RepeatMode
	Volume        float64
	ChannelID     string
	TextChannelID string
	Elapsed       time.Duration
}
