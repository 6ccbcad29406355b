package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mross/tempo/internal/artcache"
	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/jellyfin"
	"github.com/mross/tempo/internal/player"
	"github.com/mross/tempo/internal/queue"
)

// prefetchWindow is how many upcoming tracks get their artwork warmed
// when a track loads.
const prefetchWindow = 3

// Context kinds. An album context gets the next-album continuation at
// queue exhaustion; a playlist just wraps.
type contextKind int

const (
	contextNone contextKind = iota
	contextAlbum
	contextPlaylist
)

// Source builds server URLs for streams and artwork.
type Source interface {
	StreamURL(trackID string) string
	ImageURL(itemID string, preset jellyfin.ImagePreset) string
}

// Library is the slice of the library index the engine needs.
type Library interface {
	Albums(ctx context.Context, onRefresh func([]domain.Album)) ([]domain.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error)
	Tracks() []domain.Track
	SyncTracks(ctx context.Context) (tracks, added []domain.Track, err error)
}

// Engine orchestrates the queue, the audio backend, and artwork
// resolution, and fans events out to subscribers. All queue mutation
// happens under one mutex; the audio backend's own events feed back in
// through a single goroutine.
type Engine struct {
	mu           sync.Mutex
	queue        *queue.Queue
	kind         contextKind
	busy         bool
	current      domain.Track
	loaded       bool
	playerStatus player.Status

	player  player.Player
	library Library
	source  Source
	art     *artcache.Cache // may be nil
	slot    *artcache.Slot
	logger  *slog.Logger

	subsMu sync.Mutex
	subs   []*Subscription

	closed chan struct{}
}

// New creates an Engine and starts consuming backend events. rng may
// be nil; tests pass a seeded source.
func New(p player.Player, lib Library, src Source, art *artcache.Cache, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		queue:   queue.New(rng),
		player:  p,
		library: lib,
		source:  src,
		art:     art,
		logger:  logger,
		closed:  make(chan struct{}),
	}
	if art != nil {
		e.slot = artcache.NewSlot(art, func(data []byte) {
			e.broadcast(func(s *Subscription) { s.sendArtwork(ArtworkChange{Data: data}) })
		})
	}
	go e.eventLoop()
	return e
}

// Subscribe returns a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	sub := newSubscription()
	e.subsMu.Lock()
	e.subs = append(e.subs, sub)
	e.subsMu.Unlock()
	return sub
}

// Unsubscribe removes a subscription and closes its Done channel.
func (e *Engine) Unsubscribe(sub *Subscription) {
	e.subsMu.Lock()
	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			sub.close()
			break
		}
	}
	e.subsMu.Unlock()
}

func (e *Engine) broadcast(send func(*Subscription)) {
	e.subsMu.Lock()
	for _, s := range e.subs {
		send(s)
	}
	e.subsMu.Unlock()
}

// PlayAlbum starts playback of an album from startIndex.
func (e *Engine) PlayAlbum(ctx context.Context, albumID string, startIndex int) error {
	if !e.begin() {
		return nil
	}
	defer e.end()

	tracks, err := e.library.AlbumTracks(ctx, albumID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Start(tracks, startIndex, albumID)
	e.kind = contextAlbum
	e.playCurrent(ctx, true)
	return nil
}

// PlayPlaylist starts playback of a playlist from startIndex.
func (e *Engine) PlayPlaylist(ctx context.Context, playlistID string, startIndex int) error {
	if !e.begin() {
		return nil
	}
	defer e.end()

	tracks, err := e.library.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Start(tracks, startIndex, playlistID)
	e.kind = contextPlaylist
	e.playCurrent(ctx, true)
	return nil
}

// ShuffleAll shuffles the entire library into a fresh queue. The
// cached flat track list is used when present; otherwise a sync runs
// first.
func (e *Engine) ShuffleAll(ctx context.Context) error {
	if !e.begin() {
		return nil
	}
	defer e.end()

	tracks := e.library.Tracks()
	synced := false
	if len(tracks) == 0 {
		var err error
		tracks, _, err = e.library.SyncTracks(ctx)
		if err != nil {
			return err
		}
		synced = true
	}

	e.mu.Lock()
	e.queue.StartShuffled(tracks)
	e.kind = contextNone
	e.playCurrent(ctx, true)
	e.mu.Unlock()

	if !synced {
		go e.refreshTracks()
	}
	return nil
}

// ToggleShuffle flips shuffle mode. Turning it on pins the playing
// track; turning it off rebuilds the queue from the playing track's
// album in its natural order, whatever the queue was built from. A
// track with no album collapses to a single-entry queue.
func (e *Engine) ToggleShuffle(ctx context.Context) error {
	if !e.begin() {
		return nil
	}
	defer e.end()

	e.mu.Lock()
	if !e.queue.Shuffled() {
		e.queue.ShuffleOn()
		e.emitQueueLocked()
		e.mu.Unlock()
		go e.refreshTracks()
		return nil
	}

	current, hasCurrent := e.queue.Current()
	e.mu.Unlock()

	var natural []domain.Track
	contextID := ""
	kind := contextNone
	if hasCurrent {
		if current.AlbumID != "" {
			var err error
			natural, err = e.library.AlbumTracks(ctx, current.AlbumID)
			if err != nil {
				return err
			}
			contextID = current.AlbumID
			kind = contextAlbum
		} else {
			natural = []domain.Track{current}
		}
	}

	e.mu.Lock()
	e.queue.RestoreOrder(natural, contextID)
	if hasCurrent {
		e.kind = kind
	}
	e.emitQueueLocked()
	e.mu.Unlock()
	return nil
}

// refreshTracks re-syncs the flat track list off the hot path and
// feeds any new tracks into the live shuffled queue. Shuffle
// operations trigger it so long sessions pick up library additions.
func (e *Engine) refreshTracks() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, added, err := e.library.SyncTracks(ctx)
	if err != nil {
		e.logger.Warn("background track sync failed", "error", err)
		return
	}
	e.AbsorbNewTracks(added)
}

// AbsorbNewTracks feeds freshly synced tracks into a live shuffled
// queue. Anything else ignores them; the next queue build will include
// them naturally.
func (e *Engine) AbsorbNewTracks(added []domain.Track) {
	if len(added) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.queue.Shuffled() || e.queue.Len() == 0 {
		return
	}
	e.queue.Augment(added)
	e.logger.Info("absorbed new tracks into live queue", "count", len(added))
	e.emitQueueLocked()
}

// Toggle flips play/pause. A no-op with nothing loaded.
func (e *Engine) Toggle() {
	e.mu.Lock()
	loaded := e.loaded
	status := e.playerStatus
	e.mu.Unlock()
	if !loaded {
		return
	}
	if status == player.StatusPlaying {
		e.player.Pause()
	} else {
		e.player.Play()
	}
}

// Next skips to the following track.
func (e *Engine) Next(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked(ctx, e.queue.CurrentIndex()+1)
}

// Previous moves to the preceding track; at the first track it
// restarts it.
func (e *Engine) Previous(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked(ctx, e.queue.CurrentIndex()-1)
}

// JumpTo plays the track at index.
func (e *Engine) JumpTo(ctx context.Context, index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked(ctx, index)
}

// SeekBy moves the playhead by delta, clamping at zero.
func (e *Engine) SeekBy(delta time.Duration) {
	pos := e.player.Position() + delta.Seconds()
	if pos < 0 {
		pos = 0
	}
	e.player.SeekTo(pos)
}

// SeekTo moves the playhead to an absolute position.
func (e *Engine) SeekTo(pos time.Duration) {
	e.player.SeekTo(pos.Seconds())
}

// Status returns the transport state as last reported by the backend.
func (e *Engine) Status() player.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return player.StatusStopped
	}
	return e.playerStatus
}

// Position returns the playhead position.
func (e *Engine) Position() time.Duration {
	return time.Duration(e.player.Position() * float64(time.Second))
}

// Duration resolves the authoritative track duration. Catalog metadata
// wins whenever the backend's value is missing, garbage, or a
// placeholder of a second or less, which some decoders report before
// the stream is fully probed.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	track := e.current
	loaded := e.loaded
	e.mu.Unlock()

	reported := e.player.Duration()
	metadata := time.Duration(0)
	if loaded {
		metadata = track.Duration()
	}

	if metadata > 0 && (reported <= 1 || math.IsNaN(reported) || math.IsInf(reported, 0)) {
		return metadata
	}
	if reported > 0 && !math.IsNaN(reported) && !math.IsInf(reported, 0) {
		return time.Duration(reported * float64(time.Second))
	}
	return metadata
}

// Current returns the loaded track, if any.
func (e *Engine) Current() (domain.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.loaded
}

// QueueSnapshot returns the queue contents, index, and shuffle flag.
func (e *Engine) QueueSnapshot() ([]domain.Track, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Tracks(), e.queue.CurrentIndex(), e.queue.Shuffled()
}

// Close stops the backend and closes every subscription.
func (e *Engine) Close() error {
	select {
	case <-e.closed:
		return nil
	default:
	}
	close(e.closed)

	e.subsMu.Lock()
	for _, s := range e.subs {
		s.close()
	}
	e.subs = nil
	e.subsMu.Unlock()

	return e.player.Close()
}

// advanceLocked applies the queue's boundary policy and loads whatever
// track the position lands on. Caller holds e.mu.
func (e *Engine) advanceLocked(ctx context.Context, target int) {
	switch e.queue.Advance(target) {
	case queue.Empty:
		return
	case queue.NextAlbum:
		if e.kind == contextAlbum {
			contextID := e.queue.ContextID()
			go e.playNextAlbum(ctx, contextID)
			return
		}
		// Playlist exhaustion wraps like shuffle does.
		e.queue.Advance(0)
	}
	e.playCurrent(ctx, true)
}

// playNextAlbum continues into the album after the one the queue was
// built from, wrapping at the end of the album list.
func (e *Engine) playNextAlbum(ctx context.Context, currentAlbumID string) {
	albums, err := e.library.Albums(ctx, nil)
	if err != nil || len(albums) == 0 {
		e.logger.Warn("next-album continuation failed", "error", err)
		e.continuationFailed(err)
		return
	}

	next := albums[0]
	for i, a := range albums {
		if a.ID == currentAlbumID {
			next = albums[(i+1)%len(albums)]
			break
		}
	}

	tracks, err := e.library.AlbumTracks(ctx, next.ID)
	if err != nil || len(tracks) == 0 {
		e.logger.Warn("next-album continuation failed", "album", next.ID, "error", err)
		e.continuationFailed(err)
		return
	}

	e.logger.Info("continuing into next album", "album", next.Name)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Start(tracks, 0, next.ID)
	e.kind = contextAlbum
	e.playCurrent(ctx, true)
}

// continuationFailed tells subscribers playback stopped because the
// next album could not be fetched. Without it the stop is silent.
func (e *Engine) continuationFailed(err error) {
	if err == nil {
		err = domain.ErrNotFound
	}
	e.broadcast(func(s *Subscription) {
		s.sendError(ErrorEvent{Err: fmt.Errorf("next album unavailable: %w", err)})
	})
}

// playCurrent loads the queue's current track into the backend and
// kicks off artwork resolution. Caller holds e.mu. With autoplay and a
// backend that refuses to start, the state reverts to paused instead
// of failing the whole operation.
func (e *Engine) playCurrent(ctx context.Context, autoplay bool) {
	track, ok := e.queue.Current()
	if !ok {
		e.loaded = false
		return
	}
	e.current = track
	e.loaded = true

	e.broadcast(func(s *Subscription) {
		s.sendTrack(TrackChange{Track: track, Index: e.queue.CurrentIndex(), QueueLen: e.queue.Len()})
	})

	if e.slot != nil {
		lq := e.source.ImageURL(track.AlbumID, jellyfin.ImageLQ)
		hq := e.source.ImageURL(track.AlbumID, jellyfin.ImageHQ)
		e.slot.Load(ctx, lq, hq)
	}
	if e.art != nil {
		var urls []string
		for _, t := range e.queue.Upcoming(prefetchWindow) {
			urls = append(urls, e.source.ImageURL(t.AlbumID, jellyfin.ImageHQ))
		}
		e.art.Prefetch(ctx, urls...)
	}

	if err := e.player.Load(e.source.StreamURL(track.ID), autoplay); err != nil {
		e.logger.Warn("playback start refused, staying paused", "track", track.ID, "error", err)
		e.playerStatus = player.StatusPaused
		e.broadcast(func(s *Subscription) {
			s.sendState(StateChange{Status: player.StatusPaused})
		})
		return
	}

	status := player.StatusPaused
	if autoplay {
		status = player.StatusPlaying
	}
	e.playerStatus = status
	e.broadcast(func(s *Subscription) {
		s.sendState(StateChange{Status: status})
	})
}

func (e *Engine) emitQueueLocked() {
	tracks := e.queue.Tracks()
	index := e.queue.CurrentIndex()
	shuffled := e.queue.Shuffled()
	e.broadcast(func(s *Subscription) {
		s.sendQueue(QueueChange{Tracks: tracks, Index: index, Shuffled: shuffled})
	})
}

// begin marks a queue-building operation in progress; overlapping
// requests are dropped rather than queued, so a double press cannot
// build two queues.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// eventLoop consumes backend events until Close.
func (e *Engine) eventLoop() {
	events := e.player.Events()
	for {
		select {
		case <-e.closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handlePlayerEvent(ev)
		}
	}
}

func (e *Engine) handlePlayerEvent(ev player.Event) {
	switch ev.Kind {
	case player.EventEnded:
		e.mu.Lock()
		e.advanceLocked(context.Background(), e.queue.CurrentIndex()+1)
		e.mu.Unlock()
	case player.EventStatusChanged:
		e.mu.Lock()
		e.playerStatus = ev.Status
		e.mu.Unlock()
		e.broadcast(func(s *Subscription) {
			s.sendState(StateChange{Status: ev.Status})
		})
	case player.EventPosition:
		pos := time.Duration(ev.Position * float64(time.Second))
		dur := e.Duration()
		e.broadcast(func(s *Subscription) {
			s.sendPosition(PositionChange{Position: pos, Duration: dur})
		})
	}
}
