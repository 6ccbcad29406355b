package playback

const eventBufferSize = 16

// Subscription provides event channels for one subscriber. Sends never
// block: a slow consumer loses events rather than stalling playback.
type Subscription struct {
	TrackChanged    <-chan TrackChange
	StateChanged    <-chan StateChange
	PositionChanged <-chan PositionChange
	QueueChanged    <-chan QueueChange
	ArtworkChanged  <-chan ArtworkChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	trackCh    chan TrackChange
	stateCh    chan StateChange
	positionCh chan PositionChange
	queueCh    chan QueueChange
	artworkCh  chan ArtworkChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		trackCh:    make(chan TrackChange, eventBufferSize),
		stateCh:    make(chan StateChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		artworkCh:  make(chan ArtworkChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.TrackChanged = s.trackCh
	s.StateChanged = s.stateCh
	s.PositionChanged = s.positionCh
	s.QueueChanged = s.queueCh
	s.ArtworkChanged = s.artworkCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
	}
}

func (s *Subscription) sendPosition(e PositionChange) {
	select {
	case s.positionCh <- e:
	default:
	}
}

func (s *Subscription) sendQueue(e QueueChange) {
	select {
	case s.queueCh <- e:
	default:
	}
}

func (s *Subscription) sendArtwork(e ArtworkChange) {
	select {
	case s.artworkCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}
