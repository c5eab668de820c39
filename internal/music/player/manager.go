package player

import (
	"context"
	"sync"
)

// Manager keeps one Player per guild.
type Manager struct {
	mu      sync.Mutex
	players map[string]*Player
	cfg     Config
	deps    Deps
}

func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{
		players: make(map[string]*Player),
		cfg:     cfg,
		deps:    deps,
	}
}

func (m *Manager) Get(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

func (m *Manager) GetOrCreate(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[guildID]; ok {
		return p
	}
	p := New(guildID, m.cfg, m.deps)
	m.players[guildID] = p
	return p
}

// Snapshot returns the state of a guild's session, if one exists.
func (m *Manager) Snapshot(guildID string) (State, bool) {
	p, ok := m.Get(guildID)
	if !ok {
		return State{}, false
	}
	return p.Snapshot(), true
}

// StopAll tears down every session, used on shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Stop(ctx)
		}()
	}
	wg.Wait()
}
