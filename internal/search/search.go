package search

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	rankfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mross/tempo/internal/domain"
)

// Kind identifies what an index entry refers to.
type Kind int

const (
	KindTrack Kind = iota
	KindAlbum
	KindPlaylist
)

// Entry is one searchable item.
type Entry struct {
	Kind     Kind
	ID       string
	Title    string
	Subtitle string // artist for tracks and albums
}

// Result is a match with highlight metadata.
type Result struct {
	Entry
	MatchedIndexes []int
	Score          int
}

// Index is the local search index over the mirrored library. Titles
// are lowercased once at index time so a keystroke-driven filter does
// no per-query allocation beyond the match set.
type Index struct {
	mu          sync.RWMutex
	entries     []Entry
	lowerTitles []string
	seen        map[string]bool
	logger      *slog.Logger
}

// String returns the lowercase title at i (implements fuzzy.Source).
func (x *Index) String(i int) string { return x.lowerTitles[i] }

// Len returns the number of indexed entries (implements fuzzy.Source).
func (x *Index) Len() int { return len(x.entries) }

// NewIndex creates an empty search index.
func NewIndex(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{seen: make(map[string]bool), logger: logger}
}

// IndexTracks adds tracks, deduplicating by id.
func (x *Index) IndexTracks(tracks []domain.Track) {
	entries := make([]Entry, 0, len(tracks))
	for _, t := range tracks {
		entries = append(entries, Entry{
			Kind:     KindTrack,
			ID:       t.ID,
			Title:    t.Name,
			Subtitle: t.DisplayArtist(),
		})
	}
	x.add("track:", entries)
}

// IndexAlbums adds albums, deduplicating by id.
func (x *Index) IndexAlbums(albums []domain.Album) {
	entries := make([]Entry, 0, len(albums))
	for _, a := range albums {
		entries = append(entries, Entry{
			Kind:     KindAlbum,
			ID:       a.ID,
			Title:    a.Name,
			Subtitle: a.AlbumArtist,
		})
	}
	x.add("album:", entries)
}

// IndexPlaylists adds playlists, deduplicating by id.
func (x *Index) IndexPlaylists(playlists []domain.Playlist) {
	entries := make([]Entry, 0, len(playlists))
	for _, p := range playlists {
		entries = append(entries, Entry{
			Kind:  KindPlaylist,
			ID:    p.ID,
			Title: p.Name,
		})
	}
	x.add("playlist:", entries)
}

func (x *Index) add(prefix string, entries []Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()

	added := 0
	for _, e := range entries {
		key := prefix + e.ID
		if x.seen[key] {
			continue
		}
		x.seen[key] = true
		x.entries = append(x.entries, e)
		x.lowerTitles = append(x.lowerTitles, strings.ToLower(e.Title))
		added++
	}
	x.logger.Debug("indexed entries", "added", added, "total", len(x.entries))
}

// Clear empties the index. Used on logout.
func (x *Index) Clear() {
	x.mu.Lock()
	x.entries = nil
	x.lowerTitles = nil
	x.seen = make(map[string]bool)
	x.mu.Unlock()
}

// Filter returns entries matching query with the matched character
// positions, best first. Drives the as-you-type filter.
func (x *Index) Filter(query string) []Result {
	x.mu.RLock()
	defer x.mu.RUnlock()

	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" || len(x.entries) == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(query, x)
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Entry:          x.entries[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// Best returns up to limit entries ranked by edit distance to query.
// Looser than Filter: it tolerates typos, so it backs the jump-to
// prompt rather than the incremental filter.
func (x *Index) Best(query string, limit int) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" || len(x.entries) == 0 {
		return nil
	}

	ranks := rankfuzzy.RankFindNormalizedFold(query, x.lowerTitles)
	sort.Sort(ranks)

	if limit <= 0 || limit > len(ranks) {
		limit = len(ranks)
	}
	out := make([]Entry, 0, limit)
	for _, r := range ranks[:limit] {
		out = append(out, x.entries[r.OriginalIndex])
	}
	return out
}
