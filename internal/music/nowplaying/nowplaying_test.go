package nowplaying

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/player"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/JeudiD/Ningyo/pkg/jobmgr"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	mu       sync.Mutex
	next     int
	sent     []string
	edits    int
	deleted  []string
	failEdit bool
}

func (m *fakeMessenger) Send(_ context.Context, channelID string, _ Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("%s/%d", channelID, m.next)
	m.sent = append(m.sent, id)
	return id, nil
}

func (m *fakeMessenger) Edit(context.Context, string, string, Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEdit {
		return errors.New("unknown message")
	}
	m.edits++
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) counts() (sent, edits, deleted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent), m.edits, len(m.deleted)
}

type fakeStates struct {
	mu sync.Mutex
	st player.State
}

func (f *fakeStates) Snapshot(string) (player.State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st, true
}

func (f *fakeStates) set(st player.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st = st
}

func playing(version uint64) player.State {
	return player.State{
		GuildID:       "g",
		Version:       version,
		Status:        player.StatusPlaying,
		Current:       &track.Track{Title: "Song", WebpageURL: "https://youtu.be/x", Duration: 200},
		Volume:        0.5,
		TextChannelID: "text",
	}
}

func newPresenter(refresh time.Duration) (*Presenter, *fakeMessenger, *jobmgr.Manager) {
	m := &fakeMessenger{}
	jobs := jobmgr.NewManager(nil)
	return New(m, jobs, refresh, zerolog.Nop()), m, jobs
}

func TestRenderEditsInPlace(t *testing.T) {
	p, m, _ := newPresenter(0)
	ctx := context.Background()

	p.Render(ctx, playing(1))
	p.Render(ctx, playing(2))
	p.Render(ctx, playing(3))

	sent, edits, _ := m.counts()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 2, edits)
}

func TestRenderResendsWhenMessageIsGone(t *testing.T) {
	p, m, _ := newPresenter(0)
	ctx := context.Background()

	p.Render(ctx, playing(1))
	m.failEdit = true
	p.Render(ctx, playing(2))

	sent, edits, _ := m.counts()
	assert.Equal(t, 2, sent)
	assert.Zero(t, edits)
}

func TestRenderDropsStaleSnapshots(t *testing.T) {
	p, m, _ := newPresenter(0)
	ctx := context.Background()

	p.Render(ctx, playing(5))
	p.Render(ctx, playing(4))

	sent, edits, _ := m.counts()
	assert.Equal(t, 1, sent)
	assert.Zero(t, edits)
}

func TestIdleRemovesMessage(t *testing.T) {
	p, m, jobs := newPresenter(time.Hour)
	ctx := context.Background()

	p.Render(ctx, playing(1))
	assert.True(t, jobs.Running("nowplaying:g"))

	p.Render(ctx, player.State{GuildID: "g", Version: 2, Status: player.StatusIdle})
	assert.False(t, jobs.Running("nowplaying:g"))
	assert.Equal(t, []string{"text/1"}, m.deleted)

	// a second idle render has nothing left to delete
	p.Render(ctx, player.State{GuildID: "g", Version: 3, Status: player.StatusIdle})
	_, _, deleted := m.counts()
	assert.Equal(t, 1, deleted)
}

func TestRenderMovesToNewChannel(t *testing.T) {
	p, m, _ := newPresenter(0)
	ctx := context.Background()

	p.Render(ctx, playing(1))
	st := playing(2)
	st.TextChannelID = "other"
	p.Render(ctx, st)

	assert.Equal(t, []string{"text/1", "other/2"}, m.sent)
	assert.Equal(t, []string{"text/1"}, m.deleted)
}

func TestRepostSendsFreshMessage(t *testing.T) {
	p, m, _ := newPresenter(0)
	ctx := context.Background()

	p.Render(ctx, playing(1))
	p.Repost(ctx, playing(1))

	assert.Equal(t, []string{"text/1", "text/2"}, m.sent)
	assert.Equal(t, []string{"text/1"}, m.deleted)
}

func TestRefreshLoopStopsWhenNotPlaying(t *testing.T) {
	p, m, jobs := newPresenter(5 * time.Millisecond)
	states := &fakeStates{st: playing(1)}
	p.Attach(states)

	p.Render(context.Background(), playing(1))
	require.Eventually(t, func() bool {
		_, edits, _ := m.counts()
		return edits >= 2
	}, 2*time.Second, time.Millisecond)

	paused := playing(2)
	paused.Status = player.StatusPaused
	states.set(paused)

	require.Eventually(t, func() bool { return !jobs.Running("nowplaying:g") }, 2*time.Second, time.Millisecond)
}

func TestBuild(t *testing.T) {
	st := playing(1)
	st.Elapsed = 100 * time.Second
	st.Repeat = player.RepeatAll
	st.Queue = []*track.Track{{Title: "Next"}, {Title: "Later"}}
	st.Current.Requester = &track.Requester{ID: "42", Name: "someone"}

	msg := Build(st)
	require.NotNil(t, msg.Embed)
	assert.Contains(t, msg.Embed.Description, "[Song](https://youtu.be/x)")
	assert.Contains(t, msg.Embed.Description, "1:40 / 3:20")

	values := map[string]string{}
	for _, f := range msg.Embed.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "<@42>", values["Requested by"])
	assert.Equal(t, "All", values["Repeat"])
	assert.Equal(t, "50%", values["Volume"])
	assert.Equal(t, "Next (+1 more)", values["Up next"])

	require.Len(t, msg.Components, 2)
	first := msg.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, ButtonPause, first.CustomID)

	st.Status = player.StatusPaused
	first = Build(st).Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, ButtonResume, first.CustomID)
}

func TestProgress(t *testing.T) {
	live := &track.Track{}
	assert.True(t, strings.HasPrefix(Progress(90*time.Second, live), "🔴 LIVE"))

	bar := Progress(0, &track.Track{Duration: 60})
	assert.True(t, strings.HasPrefix(bar, "🔘"))
	assert.Contains(t, bar, "0:00 / 1:00")

	assert.Equal(t, "100%", VolumePercent(1))
	assert.Equal(t, "0%", VolumePercent(0))
}
