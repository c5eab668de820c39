package player

import (
	"slices"

	"github.com/JeudiD/Ningyo/internal/music/track"
)

// PageSize is the number of entries per queue listing page.
const PageSize = 10

// Queue is an ordered list of tracks. It is not safe for concurrent use; the
// owning Player guards it.
type Queue struct {
	items []*track.Track
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(t *track.Track) {
	q.items = append(q.items, t)
}

// Dequeue pops the head; ok is false when the queue is empty.
func (q *Queue) Dequeue() (t *track.Track, ok bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	t = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true
}

// PeekAll returns a copy of the queue in play order.
func (q *Queue) PeekAll() []*track.Track {
	return slices.Clone(q.items)
}

func (q *Queue) Clear() {
	q.items = nil
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Index returns the zero-based position of t, or -1.
func (q *Queue) Index(t *track.Track) int {
	return slices.Index(q.items, t)
}

// Entry is a queue item with its 1-based position across all pages.
type Entry struct {
	Position int
	Track    *track.Track
}

type Page struct {
	Number  int
	Total   int
	Entries []Entry
}

// Paginate splits tracks into pages of size entries. An empty list yields no
// pages.
func Paginate(tracks []*track.Track, size int) []Page {
	if size <= 0 {
		size = PageSize
	}
	total := (len(tracks) + size - 1) / size

	pages := make([]Page, 0, total)
	for i := 0; i < len(tracks); i += size {
		end := min(i+size, len(tracks))
		page := Page{Number: len(pages) + 1, Total: total, Entries: make([]Entry, 0, end-i)}
		for j := i; j < end; j++ {
			page.Entries = append(page.Entries, Entry{Position: j + 1, Track: tracks[j]})
		}
		pages = append(pages, page)
	}
	return pages
}
