//go:build linux

package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/mross/tempo/internal/playback"
	"github.com/mross/tempo/internal/player"
)

// Adapter exposes the playback engine over MPRIS so desktop media keys
// and lock-screen widgets control it. Registration is best-effort: a
// missing session bus is not an error worth surfacing.
type Adapter struct {
	engine *playback.Engine
	server *server.Server
}

// New creates and starts an MPRIS adapter for the engine.
func New(engine *playback.Engine) (*Adapter, error) {
	a := &Adapter{engine: engine}
	a.server = server.NewServer("tempo", &rootAdapter{}, &playerAdapter{engine: engine})

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }
func (r *rootAdapter) Quit() error  { return nil }

func (r *rootAdapter) CanQuit() (bool, error)      { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }

func (r *rootAdapter) Identity() (string, error) {
	return "Tempo", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/aac", "audio/mpeg", "audio/flac"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	engine *playback.Engine
}

func (p *playerAdapter) Next() error {
	p.engine.Next(context.Background())
	return nil
}

func (p *playerAdapter) Previous() error {
	p.engine.Previous(context.Background())
	return nil
}

func (p *playerAdapter) Pause() error {
	if p.engine.Status() == player.StatusPlaying {
		p.engine.Toggle()
	}
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.engine.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	if p.engine.Status() == player.StatusPlaying {
		p.engine.Toggle()
	}
	return nil
}

func (p *playerAdapter) Play() error {
	if p.engine.Status() == player.StatusPaused {
		p.engine.Toggle()
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	p.engine.SeekBy(time.Duration(offset) * time.Microsecond)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.engine.SeekTo(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.engine.Status() {
	case player.StatusPlaying:
		return types.PlaybackStatusPlaying, nil
	case player.StatusPaused:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error)    { return 1.0, nil }
func (p *playerAdapter) SetRate(_ float64) error   { return nil }
func (p *playerAdapter) Volume() (float64, error)  { return 1.0, nil }
func (p *playerAdapter) SetVolume(_ float64) error { return nil }

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track, ok := p.engine.Current()
	if !ok {
		return types.Metadata{}, nil
	}

	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.ID)),
		Length:  types.Microseconds(p.engine.Duration().Microseconds()),
		Title:   track.Name,
		Artist:  []string{track.DisplayArtist()},
		Album:   track.Album,
	}, nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.engine.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return 1.0, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return 1.0, nil }

func (p *playerAdapter) CanGoNext() (bool, error) {
	tracks, _, _ := p.engine.QueueSnapshot()
	return len(tracks) > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	_, index, _ := p.engine.QueueSnapshot()
	return index > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	tracks, _, _ := p.engine.QueueSnapshot()
	return len(tracks) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error)   { return true, nil }
func (p *playerAdapter) CanSeek() (bool, error)    { return true, nil }
func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	_, _, shuffled := p.engine.QueueSnapshot()
	return shuffled, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(on bool) error {
	if _, _, shuffled := p.engine.QueueSnapshot(); shuffled != on {
		return p.engine.ToggleShuffle(context.Background())
	}
	return nil
}

// formatTrackID maps an opaque catalog id onto a valid D-Bus object
// path.
func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/tempo/track/%d", h.Sum64())
}
