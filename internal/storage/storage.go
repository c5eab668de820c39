package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JeudiD/Ningyo/datastore"
)

const (
	commandHistoryLimit = 50
	trackedBotsKey      = "tracked_bots"
	guildKeyPrefix      = "guild:"
)

var ErrBotNotTracked = errors.New("bot is not tracked")

type Storage struct {
	// mu keeps read-modify-write cycles on one key atomic
	mu sync.Mutex
	ds *datastore.DataStore
}

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Datetime    time.Time `json:"datetime"`
}

type Record struct {
	CommandsHistory []CommandHistoryRecord `json:"cmd_history"`
}

func New(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

// Open opens the datastore at path and wraps it.
func Open(path string) (*Storage, error) {
	ds, err := datastore.New(path)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// TrackBot registers a bot whose messages are deleted after delaySeconds.
func (s *Storage) TrackBot(botID string, delaySeconds int) error {
	if delaySeconds <= 0 {
		return fmt.Errorf("delay must be positive, got %d", delaySeconds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bots, err := s.trackedBotsLocked()
	if err != nil {
		return err
	}
	bots[botID] = delaySeconds
	return s.ds.Put(trackedBotsKey, bots)
}

func (s *Storage) UntrackBot(botID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bots, err := s.trackedBotsLocked()
	if err != nil {
		return err
	}
	if _, ok := bots[botID]; !ok {
		return ErrBotNotTracked
	}
	delete(bots, botID)
	return s.ds.Put(trackedBotsKey, bots)
}

// TrackedBotDelay returns the auto-delete delay for botID.
func (s *Storage) TrackedBotDelay(botID string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bots, err := s.trackedBotsLocked()
	if err != nil {
		return 0, false
	}
	secs, ok := bots[botID]
	return time.Duration(secs) * time.Second, ok
}

func (s *Storage) TrackedBots() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackedBotsLocked()
}

func (s *Storage) trackedBotsLocked() (map[string]int, error) {
	bots := make(map[string]int)
	if _, err := s.ds.Get(trackedBotsKey, &bots); err != nil {
		return nil, err
	}
	if bots == nil {
		bots = make(map[string]int)
	}
	return bots, nil
}

// AppendCommandHistory appends a record and keeps only the newest ones.
func (s *Storage) AppendCommandHistory(guildID string, rec CommandHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.guildRecordLocked(guildID)
	if err != nil {
		return err
	}

	record.CommandsHistory = append(record.CommandsHistory, rec)
	if n := len(record.CommandsHistory); n > commandHistoryLimit {
		record.CommandsHistory = record.CommandsHistory[n-commandHistoryLimit:]
	}
	return s.ds.Put(guildKeyPrefix+guildID, record)
}

func (s *Storage) CommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.guildRecordLocked(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}

func (s *Storage) guildRecordLocked(guildID string) (*Record, error) {
	var record Record
	if _, err := s.ds.Get(guildKeyPrefix+guildID, &record); err != nil {
		return nil, fmt.Errorf("load guild record: %w", err)
	}
	return &record, nil
}
