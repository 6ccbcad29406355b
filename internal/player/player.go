package player

// Status is the transport state of the underlying player.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// EventKind identifies an asynchronous player event.
type EventKind int

const (
	// EventEnded fires when the current track finished naturally.
	EventEnded EventKind = iota
	// EventStatusChanged fires when play/pause state flips.
	EventStatusChanged
	// EventPosition fires roughly once a second with the new position.
	EventPosition
)

// Event is an asynchronous notification from the player.
type Event struct {
	Kind     EventKind
	Status   Status
	Position float64 // seconds
}

// Player is the audio backend contract. Load prepares a stream without
// starting it; Play and Pause flip transport state. Duration returns 0
// until the backend has probed the stream, which for some remote
// transcodes is never.
type Player interface {
	Load(url string, autoplay bool) error
	Play() error
	Pause() error
	Stop() error
	SeekTo(seconds float64) error
	Position() float64
	Duration() float64
	Events() <-chan Event
	Close() error
}
