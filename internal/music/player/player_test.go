package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueTitles(st State) []string {
	out := make([]string, 0, len(st.Queue))
	for _, t := range st.Queue {
		out = append(out, t.Title)
	}
	return out
}

func TestPlayReportsStartAndPosition(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res, err := h.p.Play(ctx, &track.Track{Title: "A"}, "voice")
	require.NoError(t, err)
	assert.Equal(t, PlayResult{Started: true}, res)

	res, err = h.p.Play(ctx, &track.Track{Title: "B"}, "voice")
	require.NoError(t, err)
	assert.Equal(t, PlayResult{Position: 1}, res)

	res, err = h.p.Play(ctx, &track.Track{Title: "C"}, "voice")
	require.NoError(t, err)
	assert.Equal(t, PlayResult{Position: 2}, res)

	assert.Len(t, h.connector.joined(), 1)
	st := h.p.Snapshot()
	assert.Equal(t, StatusPlaying, st.Status)
	assert.Equal(t, "A", st.Current.Title)
	assert.Equal(t, "voice", st.ChannelID)
}

func TestPlaysEveryTrackOnceThenIdles(t *testing.T) {
	h := newHarness(t, nil)
	h.play(t, "A", "B", "C")
	h.waitStarted(t, 1)

	h.finishCurrent(t)
	h.finishCurrent(t)
	h.streamer.last().finish()

	h.waitStatus(t, StatusIdle)
	assert.Equal(t, []string{"A", "B", "C"}, h.streamer.titles())

	st := h.p.Snapshot()
	assert.Nil(t, st.Current)
	assert.Empty(t, st.Queue)

	last, ok := h.display.last()
	require.True(t, ok)
	assert.Equal(t, StatusIdle, last.Status)
}

func TestDuplicateCompletionAdvancesOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.play(t, "A", "B", "C")
	h.waitStarted(t, 1)

	first := h.streamer.last()
	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); first.finish() }()
	go func() { defer wg.Done(); first.Stop() }()
	go func() { defer wg.Done(); h.p.advance(context.Background(), first) }()
	go func() { defer wg.Done(); h.p.advance(context.Background(), first) }()
	wg.Wait()

	h.waitStarted(t, 2)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []string{"A", "B"}, h.streamer.titles())
	st := h.p.Snapshot()
	assert.Equal(t, "B", st.Current.Title)
	assert.Equal(t, []string{"C"}, queueTitles(st))
}

func TestRepeatOneReplaysCurrent(t *testing.T) {
	h := newHarness(t, nil)
	h.play(t, "A", "B")
	h.waitStarted(t, 1)
	assert.Equal(t, RepeatOne, h.p.CycleRepeat())

	for i := 0; i < 3; i++ {
		h.finishCurrent(t)
		assert.Equal(t, 1, len(h.p.Snapshot().Queue))
	}
	assert.Equal(t, []string{"A", "A", "A", "A"}, h.streamer.titles())
}

func TestRepeatAllRotates(t *testing.T) {
	h := newHarness(t, nil)
	h.play(t, "A", "B", "C")
	h.waitStarted(t, 1)
	h.p.CycleRepeat()
	assert.Equal(t, RepeatAll, h.p.CycleRepeat())

	original := queueTitles(h.p.Snapshot())
	for i := 0; i < 3; i++ {
		h.finishCurrent(t)
	}
	assert.Equal(t, original, queueTitles(h.p.Snapshot()))

	h.finishCurrent(t)
	h.finishCurrent(t)
	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C"}, h.streamer.titles())

	assert.Equal(t, RepeatOff, h.p.CycleRepeat())
}

func TestFailedStartSkipsToNextTrack(t *testing.T) {
	h := newHarness(t, nil)
	h.streamer.fail["bad"] = true

	_, err := h.p.Play(context.Background(), &track.Track{Title: "bad"}, "voice")
	assert.ErrorIs(t, err, ErrPlaybackFailed)
	assert.Equal(t, StatusIdle, h.p.Snapshot().Status)

	h.play(t, "A", "bad", "C")
	h.waitStarted(t, 1)
	h.finishCurrent(t)
	assert.Equal(t, []string{"A", "C"}, h.streamer.titles())
}

func TestPauseResumeSkipValidation(t *testing.T) {
	h := newHarness(t, nil)

	assert.ErrorIs(t, h.p.Pause(), ErrNotPlaying)
	assert.ErrorIs(t, h.p.Resume(), ErrNotPaused)
	assert.ErrorIs(t, h.p.Skip(), ErrNotPlaying)

	h.play(t, "A")
	h.waitStarted(t, 1)
	pb := h.streamer.last()

	assert.ErrorIs(t, h.p.Resume(), ErrNotPaused)
	require.NoError(t, h.p.Pause())
	assert.True(t, pb.isPaused())
	assert.Equal(t, StatusPaused, h.p.Snapshot().Status)
	assert.ErrorIs(t, h.p.Pause(), ErrNotPlaying)
	assert.ErrorIs(t, h.p.Skip(), ErrNotPlaying)

	require.NoError(t, h.p.Resume())
	assert.False(t, pb.isPaused())
	assert.Equal(t, StatusPlaying, h.p.Snapshot().Status)

	require.NoError(t, h.p.Skip())
	h.waitStatus(t, StatusIdle)
}

func TestVolumeClamps(t *testing.T) {
	h := newHarness(t, func(c *Config, _ *Deps) { c.DefaultVolume = 0.9 })

	for i := 0; i < 5; i++ {
		h.p.AdjustVolume(0.1)
	}
	assert.Equal(t, 1.0, h.p.Snapshot().Volume)

	h.p.SetVolume(0.1)
	for i := 0; i < 5; i++ {
		h.p.AdjustVolume(-0.1)
	}
	assert.Equal(t, 0.0, h.p.Snapshot().Volume)

	h.play(t, "A")
	h.waitStarted(t, 1)
	assert.Equal(t, 0.0, h.streamer.last().currentVolume())
	assert.Equal(t, 0.3, h.p.SetVolume(0.3))
	assert.Equal(t, 0.3, h.streamer.last().currentVolume())
}

func TestConcurrentVolumeStepsAllApply(t *testing.T) {
	h := newHarness(t, func(c *Config, _ *Deps) { c.DefaultVolume = 0 })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.p.AdjustVolume(0.01)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0.5, h.p.Snapshot().Volume)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.p.Stop(ctx))
	require.NoError(t, h.p.Stop(ctx))
	assert.Equal(t, StatusIdle, h.p.Snapshot().Status)
	assert.Empty(t, h.connector.joined())
}

func TestStopTearsDownSession(t *testing.T) {
	h := newHarness(t, nil)
	h.play(t, "A", "B")
	h.waitStarted(t, 1)
	h.p.CycleRepeat()
	h.p.SetVolume(1)
	pb := h.streamer.last()

	require.NoError(t, h.p.Stop(context.Background()))

	st := h.p.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Nil(t, st.Current)
	assert.Empty(t, st.Queue)
	assert.Equal(t, RepeatOff, st.Repeat)
	assert.Equal(t, 0.5, st.Volume)
	assert.Empty(t, st.ChannelID)
	assert.Equal(t, 1, h.connector.joined()[0].disconnectCount())

	select {
	case <-pb.Done():
	default:
		t.Fatal("playback still running after stop")
	}

	// the stopped playback must not start the next track
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.streamer.count())

	last, _ := h.display.last()
	assert.Equal(t, StatusIdle, last.Status)

	require.NoError(t, h.p.Stop(context.Background()))
	assert.Equal(t, 1, h.connector.joined()[0].disconnectCount())
}

func TestEnsureConnected(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, h.p.EnsureConnected(ctx, ""), ErrNotInVoiceChannel)
	assert.Empty(t, h.connector.joined())

	require.NoError(t, h.p.EnsureConnected(ctx, "one"))
	require.NoError(t, h.p.EnsureConnected(ctx, "one"))
	require.Len(t, h.connector.joined(), 1)

	conn := h.connector.joined()[0]
	require.NoError(t, h.p.EnsureConnected(ctx, "two"))
	assert.Len(t, h.connector.joined(), 1)
	assert.Equal(t, []string{"two"}, conn.moves)

	conn.setReady(false)
	require.NoError(t, h.p.EnsureConnected(ctx, "two"))
	assert.Len(t, h.connector.joined(), 2)
	assert.Equal(t, 1, conn.disconnectCount())
	assert.Equal(t, StatusIdle, h.p.Snapshot().Status)
}

func TestJoinFailureLeavesQueueUntouched(t *testing.T) {
	h := newHarness(t, nil)
	h.connector.err = errors.New("missing permissions")

	_, err := h.p.Play(context.Background(), &track.Track{Title: "A"}, "voice")
	assert.ErrorContains(t, err, "missing permissions")

	st := h.p.Snapshot()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Empty(t, st.Queue)
	assert.Zero(t, h.streamer.count())
}

func TestPaginate(t *testing.T) {
	tracks := make([]*track.Track, 25)
	for i := range tracks {
		tracks[i] = &track.Track{}
	}

	pages := Paginate(tracks, PageSize)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Entries, 10)
	assert.Len(t, pages[1].Entries, 10)
	assert.Len(t, pages[2].Entries, 5)

	want := 1
	for _, page := range pages {
		assert.Equal(t, 3, page.Total)
		for _, e := range page.Entries {
			assert.Equal(t, want, e.Position)
			assert.Same(t, tracks[want-1], e.Track)
			want++
		}
	}

	assert.Empty(t, Paginate(nil, PageSize))
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := NewQueue()
	_, ok := q.Dequeue()
	assert.False(t, ok)

	a := &track.Track{Title: "A"}
	q.Enqueue(a)
	got, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Same(t, a, got)
	assert.Zero(t, q.Len())
}

func TestManager(t *testing.T) {
	m := NewManager(Config{}, Deps{})
	_, ok := m.Snapshot("g")
	assert.False(t, ok)

	p := m.GetOrCreate("g")
	assert.Same(t, p, m.GetOrCreate("g"))

	st, ok := m.Snapshot("g")
	assert.True(t, ok)
	assert.Equal(t, "g", st.GuildID)

	m.StopAll(context.Background())
}
