package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/playback"
	"github.com/mross/tempo/internal/player"
	"github.com/mross/tempo/internal/search"
	"github.com/mross/tempo/internal/tui/styles"
)

// Pane identifies which panel has keyboard focus
type Pane int

const (
	PaneBrowse Pane = iota
	PaneQueue
)

// Tab identifies the active browse listing
type Tab int

const (
	TabAlbums Tab = iota
	TabPlaylists
)

const seekStep = 10 * time.Second

// Model is the main Bubble Tea model for the application
type Model struct {
	engine    Controller
	library   Library
	searchIdx *search.Index
	logout    func() error

	sub             *playback.Subscription
	albumRefresh    chan []domain.Album
	playlistRefresh chan []domain.Playlist

	// Browse state
	albums    []domain.Album
	playlists []domain.Playlist
	visible   []int // indexes into the active listing after filtering
	cursor    int
	tab       Tab
	pane      Pane

	filter    textinput.Model
	filtering bool

	jump    textinput.Model
	jumping bool

	// Queue state mirrored from engine events
	queue       []domain.Track
	queueIndex  int
	shuffled    bool
	queueCursor int

	// Player state mirrored from engine events
	current  domain.Track
	hasTrack bool
	status   player.Status
	position time.Duration
	duration time.Duration
	artwork  bool

	trackCount int
	spin       spinner.Model
	loading    bool

	statusMsg     string
	statusIsErr   bool
	confirmLogout bool
	showHelp      bool

	width  int
	height int
	ready  bool
}

// New creates the application model. The logout callback tears down
// stored credentials and caches; nil disables the logout key.
func New(engine Controller, lib Library, searchIdx *search.Index, logout func() error) Model {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/"
	filter.CharLimit = 64

	jump := textinput.New()
	jump.Placeholder = "jump to"
	jump.Prompt = "> "
	jump.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle

	return Model{
		engine:          engine,
		library:         lib,
		searchIdx:       searchIdx,
		logout:          logout,
		sub:             engine.Subscribe(),
		albumRefresh:    make(chan []domain.Album, 1),
		playlistRefresh: make(chan []domain.Playlist, 1),
		filter:          filter,
		jump:            jump,
		spin:            sp,
		loading:         true,
	}
}

// Init starts the catalog loads and the engine event watcher
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		LoadAlbumsCmd(m.library, m.albumRefresh),
		LoadPlaylistsCmd(m.library, m.playlistRefresh),
		WatchAlbumRefreshCmd(m.albumRefresh),
		WatchPlaylistRefreshCmd(m.playlistRefresh),
		SyncTracksCmd(m.library, m.engine),
		m.WatchEngineCmd(),
		m.spin.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case AlbumsLoadedMsg:
		m.albums = msg.Albums
		m.loading = false
		m.searchIdx.IndexAlbums(msg.Albums)
		m.applyFilter()
		return m, nil

	case AlbumsRefreshedMsg:
		m.albums = msg.Albums
		m.searchIdx.IndexAlbums(msg.Albums)
		m.applyFilter()
		return m, WatchAlbumRefreshCmd(m.albumRefresh)

	case PlaylistsLoadedMsg:
		m.playlists = msg.Playlists
		m.searchIdx.IndexPlaylists(msg.Playlists)
		m.applyFilter()
		return m, nil

	case PlaylistsRefreshedMsg:
		m.playlists = msg.Playlists
		m.searchIdx.IndexPlaylists(msg.Playlists)
		m.applyFilter()
		return m, WatchPlaylistRefreshCmd(m.playlistRefresh)

	case TracksSyncedMsg:
		m.trackCount = msg.Total
		m.searchIdx.IndexTracks(m.library.Tracks())
		if msg.Added > 0 {
			m.statusMsg = pluralize(msg.Added, "new track", "new tracks")
			m.statusIsErr = false
			return m, ClearStatusCmd(3 * time.Second)
		}
		return m, nil

	case EngineTrackMsg:
		m.current = msg.Event.Track
		m.hasTrack = true
		m.artwork = false
		m.position = 0
		m.duration = msg.Event.Track.Duration()
		return m, m.WatchEngineCmd()

	case EngineStateMsg:
		m.status = msg.Event.Status
		return m, m.WatchEngineCmd()

	case EnginePositionMsg:
		m.position = msg.Event.Position
		if msg.Event.Duration > 0 {
			m.duration = msg.Event.Duration
		}
		return m, m.WatchEngineCmd()

	case EngineQueueMsg:
		m.queue = msg.Event.Tracks
		m.queueIndex = msg.Event.Index
		m.shuffled = msg.Event.Shuffled
		if m.queueCursor >= len(m.queue) {
			m.queueCursor = max(0, len(m.queue)-1)
		}
		return m, m.WatchEngineCmd()

	case EngineArtworkMsg:
		m.artwork = len(msg.Event.Data) > 0
		return m, m.WatchEngineCmd()

	case EngineErrorMsg:
		m.statusMsg = msg.Event.Err.Error()
		m.statusIsErr = true
		return m, tea.Batch(m.WatchEngineCmd(), ClearStatusCmd(5*time.Second))

	case EngineClosedMsg:
		return m, tea.Quit

	case ErrMsg:
		m.loading = false
		m.statusMsg = msg.Error()
		m.statusIsErr = true
		return m, ClearStatusCmd(5 * time.Second)

	case StatusNoteMsg:
		m.statusMsg = msg.Message
		m.statusIsErr = msg.IsError
		return m, ClearStatusCmd(3 * time.Second)

	case ClearStatusMsg:
		m.statusMsg = ""
		m.statusIsErr = false
		return m, nil

	case LogoutDoneMsg:
		if msg.Err != nil {
			m.confirmLogout = false
			m.statusMsg = "logout failed: " + msg.Err.Error()
			m.statusIsErr = true
			return m, ClearStatusCmd(5 * time.Second)
		}
		return m, tea.Quit
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "esc", "?", "q":
			m.showHelp = false
		}
		return m, nil
	}

	if m.confirmLogout {
		switch msg.String() {
		case "y", "Y":
			return m, LogoutCmd(m.logout)
		case "n", "N", "esc":
			m.confirmLogout = false
		}
		return m, nil
	}

	// Filter typing captures everything except control keys
	if m.filtering {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.filter.SetValue("")
			m.filter.Blur()
			m.applyFilter()
			return m, nil
		case "enter":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	// Jump typing likewise; the query only resolves on enter.
	if m.jumping {
		switch msg.String() {
		case "esc":
			m.jumping = false
			m.jump.SetValue("")
			m.jump.Blur()
			return m, nil
		case "enter":
			query := m.jump.Value()
			m.jumping = false
			m.jump.SetValue("")
			m.jump.Blur()
			return m.jumpTo(query)
		}
		var cmd tea.Cmd
		m.jump, cmd = m.jump.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "esc":
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
		return m, nil

	case "/":
		if m.pane == PaneBrowse {
			m.filtering = true
			m.filter.Focus()
		}
		return m, nil

	case "f":
		m.jumping = true
		m.jump.Focus()
		return m, nil

	case "tab":
		if m.pane == PaneBrowse {
			m.pane = PaneQueue
		} else {
			m.pane = PaneBrowse
		}
		return m, nil

	case "1":
		m.tab = TabAlbums
		m.pane = PaneBrowse
		m.cursor = 0
		m.applyFilter()
		return m, nil

	case "2":
		m.tab = TabPlaylists
		m.pane = PaneBrowse
		m.cursor = 0
		m.applyFilter()
		return m, nil

	case "j", "down":
		m.moveCursor(1)
		return m, nil

	case "k", "up":
		m.moveCursor(-1)
		return m, nil

	case "g", "home":
		m.setCursor(0)
		return m, nil

	case "G", "end":
		m.setCursor(m.listLen() - 1)
		return m, nil

	case "enter":
		return m.handleEnter()

	case " ":
		m.engine.Toggle()
		return m, nil

	case "n":
		return m, m.asyncEngine(func(ctx context.Context) { m.engine.Next(ctx) })

	case "p":
		return m, m.asyncEngine(func(ctx context.Context) { m.engine.Previous(ctx) })

	case "s":
		return m, ToggleShuffleCmd(m.engine)

	case "S":
		return m, ShuffleAllCmd(m.engine)

	case "left":
		m.engine.SeekBy(-seekStep)
		return m, nil

	case "right":
		m.engine.SeekBy(seekStep)
		return m, nil

	case "r":
		return m, SyncTracksCmd(m.library, m.engine)

	case "L":
		if m.logout != nil {
			m.confirmLogout = true
		}
		return m, nil
	}

	return m, nil
}

// handleEnter plays the browse selection or jumps within the queue
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.pane == PaneQueue {
		if len(m.queue) == 0 {
			return m, nil
		}
		target := m.queueCursor
		return m, m.asyncEngine(func(ctx context.Context) { m.engine.JumpTo(ctx, target) })
	}

	idx, ok := m.selectedIndex()
	if !ok {
		return m, nil
	}
	if m.tab == TabAlbums {
		return m, PlayAlbumCmd(m.engine, m.albums[idx].ID)
	}
	return m, PlayPlaylistCmd(m.engine, m.playlists[idx].ID)
}

// jumpTo moves the browse selection to the best typo-tolerant match
// for query. A track match lands on the track's album.
func (m Model) jumpTo(query string) (tea.Model, tea.Cmd) {
	if query == "" {
		return m, nil
	}
	for _, e := range m.searchIdx.Best(query, 8) {
		kind, id := e.Kind, e.ID
		if kind == search.KindTrack {
			albumID := m.albumOfTrack(id)
			if albumID == "" {
				continue
			}
			kind, id = search.KindAlbum, albumID
		}
		if m.focusEntry(kind, id) {
			return m, nil
		}
	}
	m.statusMsg = "no match for " + strconv.Quote(query)
	m.statusIsErr = false
	return m, ClearStatusCmd(3 * time.Second)
}

func (m Model) albumOfTrack(trackID string) string {
	for _, t := range m.library.Tracks() {
		if t.ID == trackID {
			return t.AlbumID
		}
	}
	return ""
}

// focusEntry selects id in its listing, clearing any filter so the
// cursor lands on the full list.
func (m *Model) focusEntry(kind search.Kind, id string) bool {
	switch kind {
	case search.KindAlbum:
		for i, a := range m.albums {
			if a.ID == id {
				m.tab = TabAlbums
				m.pane = PaneBrowse
				m.filter.SetValue("")
				m.applyFilter()
				m.cursor = i
				return true
			}
		}
	case search.KindPlaylist:
		for i, p := range m.playlists {
			if p.ID == id {
				m.tab = TabPlaylists
				m.pane = PaneBrowse
				m.filter.SetValue("")
				m.applyFilter()
				m.cursor = i
				return true
			}
		}
	}
	return false
}

// asyncEngine runs a possibly blocking engine call off the UI loop
func (m Model) asyncEngine(fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(context.Background())
		return nil
	}
}

func (m *Model) moveCursor(delta int) {
	m.setCursor(m.activeCursor() + delta)
}

func (m *Model) setCursor(pos int) {
	limit := m.listLen()
	if limit == 0 {
		pos = 0
	} else if pos < 0 {
		pos = 0
	} else if pos >= limit {
		pos = limit - 1
	}
	if m.pane == PaneQueue {
		m.queueCursor = pos
	} else {
		m.cursor = pos
	}
}

func (m Model) activeCursor() int {
	if m.pane == PaneQueue {
		return m.queueCursor
	}
	return m.cursor
}

func (m Model) listLen() int {
	if m.pane == PaneQueue {
		return len(m.queue)
	}
	return len(m.visible)
}

// selectedIndex resolves the browse cursor to an index into the
// unfiltered listing
func (m Model) selectedIndex() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return 0, false
	}
	return m.visible[m.cursor], true
}

// applyFilter rebuilds the visible index list for the active tab from
// the fuzzy matches of the current filter text
func (m *Model) applyFilter() {
	query := m.filter.Value()

	var size int
	if m.tab == TabAlbums {
		size = len(m.albums)
	} else {
		size = len(m.playlists)
	}

	if query == "" {
		m.visible = make([]int, size)
		for i := range m.visible {
			m.visible[i] = i
		}
		m.clampBrowseCursor()
		return
	}

	wantKind := search.KindAlbum
	if m.tab == TabPlaylists {
		wantKind = search.KindPlaylist
	}

	byID := make(map[string]int, size)
	if m.tab == TabAlbums {
		for i, a := range m.albums {
			byID[a.ID] = i
		}
	} else {
		for i, p := range m.playlists {
			byID[p.ID] = i
		}
	}

	m.visible = m.visible[:0]
	for _, r := range m.searchIdx.Filter(query) {
		if r.Kind != wantKind {
			continue
		}
		if i, ok := byID[r.ID]; ok {
			m.visible = append(m.visible, i)
		}
	}
	m.clampBrowseCursor()
}

func (m *Model) clampBrowseCursor() {
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
}

// Close releases the engine subscription. Called by main after the
// program exits.
func (m Model) Close() {
	if m.sub != nil {
		m.engine.Unsubscribe(m.sub)
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + plural
}
