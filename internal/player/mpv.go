package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

const (
	connectTimeout = 5 * time.Second
	connectRetry   = 50 * time.Millisecond
)

// Property observation ids
const (
	obsTimePos = 1
	obsPause   = 2
)

// MPV drives an mpv subprocess over its JSON IPC socket. mpv handles
// the actual HTTP audio stream; this side only issues commands and
// tracks observed properties.
type MPV struct {
	cmd    *exec.Cmd
	conn   net.Conn
	logger *slog.Logger

	mu       sync.Mutex
	reqID    int
	pending  map[int]chan mpvResponse
	position float64
	duration float64
	status   Status
	loaded   bool

	events chan Event
	done   chan struct{}
}

type mpvResponse struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int             `json:"request_id"`
}

type mpvEvent struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	RequestID int             `json:"request_id"`
	Error     string          `json:"error"`
}

// NewMPV spawns mpv in idle mode and connects to its IPC socket.
// command defaults to "mpv" from PATH; extraArgs are appended to the
// invocation after the flags the controller depends on.
func NewMPV(command string, extraArgs []string, logger *slog.Logger) (*MPV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if command == "" {
		command = "mpv"
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", command, err)
	}

	socketPath := filepath.Join(os.TempDir(), fmt.Sprintf("tempo-mpv-%d.sock", os.Getpid()))
	os.Remove(socketPath)

	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--keep-open=no",
		"--input-ipc-server=" + socketPath,
	}
	args = append(args, extraArgs...)
	cmd := exec.Command(command, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	conn, err := dialWithRetry(socketPath, connectTimeout)
	if err != nil {
		cmd.Process.Kill()
		return nil, fmt.Errorf("failed to connect to mpv ipc: %w", err)
	}

	m := &MPV{
		cmd:     cmd,
		conn:    conn,
		logger:  logger,
		pending: make(map[int]chan mpvResponse),
		status:  StatusStopped,
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
	}
	go m.readLoop()

	if err := m.command("observe_property", obsTimePos, "time-pos"); err != nil {
		m.Close()
		return nil, err
	}
	if err := m.command("observe_property", obsPause, "pause"); err != nil {
		m.Close()
		return nil, err
	}

	logger.Info("mpv started", "socket", socketPath)
	return m, nil
}

func dialWithRetry(socketPath string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(connectRetry)
	}
}

// Load replaces the current stream. With autoplay false mpv is paused
// before the file loads, so nothing plays until Play.
func (m *MPV) Load(url string, autoplay bool) error {
	if err := m.setProperty("pause", !autoplay); err != nil {
		return err
	}
	if err := m.command("loadfile", url, "replace"); err != nil {
		return err
	}

	m.mu.Lock()
	m.loaded = true
	m.position = 0
	m.duration = 0
	m.setStatusLocked(statusFor(!autoplay))
	m.mu.Unlock()
	return nil
}

func statusFor(paused bool) Status {
	if paused {
		return StatusPaused
	}
	return StatusPlaying
}

func (m *MPV) Play() error {
	return m.setProperty("pause", false)
}

func (m *MPV) Pause() error {
	return m.setProperty("pause", true)
}

func (m *MPV) Stop() error {
	err := m.command("stop")
	m.mu.Lock()
	m.loaded = false
	m.position = 0
	m.duration = 0
	m.setStatusLocked(StatusStopped)
	m.mu.Unlock()
	return err
}

func (m *MPV) SeekTo(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return m.command("seek", seconds, "absolute")
}

func (m *MPV) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Duration returns mpv's probed duration in seconds, 0 when unknown.
// Remote transcodes often never report one; callers fall back to
// catalog metadata.
func (m *MPV) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MPV) Events() <-chan Event {
	return m.events
}

func (m *MPV) Close() error {
	select {
	case <-m.done:
		return nil
	default:
	}
	close(m.done)

	m.command("quit")
	m.conn.Close()
	if m.cmd.Process != nil {
		m.cmd.Process.Kill()
		m.cmd.Wait()
	}
	return nil
}

// command issues a synchronous IPC command and waits for its reply.
func (m *MPV) command(args ...interface{}) error {
	m.mu.Lock()
	m.reqID++
	id := m.reqID
	ch := make(chan mpvResponse, 1)
	m.pending[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}()

	payload, err := json.Marshal(map[string]interface{}{
		"command":    args,
		"request_id": id,
	})
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	if _, err := m.conn.Write(payload); err != nil {
		return fmt.Errorf("mpv ipc write failed: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return fmt.Errorf("mpv command failed: %s", resp.Error)
		}
		return nil
	case <-time.After(connectTimeout):
		return fmt.Errorf("mpv command timed out")
	case <-m.done:
		return fmt.Errorf("mpv closed")
	}
}

func (m *MPV) setProperty(name string, value interface{}) error {
	return m.command("set_property", name, value)
}

// readLoop demultiplexes the IPC stream: command replies route to
// their waiters, events update observed state.
func (m *MPV) readLoop() {
	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for scanner.Scan() {
		line := scanner.Bytes()

		var ev mpvEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			m.logger.Debug("unparseable mpv message", "line", string(line))
			continue
		}

		if ev.Event == "" {
			// Command reply
			var resp mpvResponse
			if err := json.Unmarshal(line, &resp); err != nil {
				continue
			}
			m.mu.Lock()
			ch, ok := m.pending[resp.RequestID]
			m.mu.Unlock()
			if ok {
				ch <- resp
			}
			continue
		}

		m.handleEvent(ev)
	}
}

func (m *MPV) handleEvent(ev mpvEvent) {
	switch ev.Event {
	case "property-change":
		m.handleProperty(ev)
	case "end-file":
		if ev.Reason == "eof" {
			m.mu.Lock()
			m.loaded = false
			m.setStatusLocked(StatusStopped)
			m.mu.Unlock()
			m.emit(Event{Kind: EventEnded})
		}
	}
}

func (m *MPV) handleProperty(ev mpvEvent) {
	switch ev.Name {
	case "time-pos":
		var pos float64
		if json.Unmarshal(ev.Data, &pos) != nil {
			return
		}
		m.mu.Lock()
		changed := int(pos) != int(m.position)
		m.position = pos
		m.mu.Unlock()
		if changed {
			m.emit(Event{Kind: EventPosition, Position: pos})
		}
		// Duration is polled lazily alongside position updates.
		m.refreshDuration()
	case "pause":
		var paused bool
		if json.Unmarshal(ev.Data, &paused) != nil {
			return
		}
		m.mu.Lock()
		if m.loaded {
			m.setStatusLocked(statusFor(paused))
			status := m.status
			m.mu.Unlock()
			m.emit(Event{Kind: EventStatusChanged, Status: status})
			return
		}
		m.mu.Unlock()
	}
}

// refreshDuration asks mpv for the stream duration. Fires its own
// request asynchronously; the reply lands in readLoop.
func (m *MPV) refreshDuration() {
	m.mu.Lock()
	if m.duration > 0 {
		m.mu.Unlock()
		return
	}
	m.reqID++
	id := m.reqID
	ch := make(chan mpvResponse, 1)
	m.pending[id] = ch
	m.mu.Unlock()

	payload, _ := json.Marshal(map[string]interface{}{
		"command":    []interface{}{"get_property", "duration"},
		"request_id": id,
	})
	payload = append(payload, '\n')
	if _, err := m.conn.Write(payload); err != nil {
		return
	}

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.pending, id)
			m.mu.Unlock()
		}()
		select {
		case resp := <-ch:
			var d float64
			if resp.Error == "success" && json.Unmarshal(resp.Data, &d) == nil && d > 0 {
				m.mu.Lock()
				m.duration = d
				m.mu.Unlock()
			}
		case <-time.After(time.Second):
		case <-m.done:
		}
	}()
}

func (m *MPV) setStatusLocked(s Status) {
	m.status = s
}

// emit drops events when the consumer lags rather than blocking the
// read loop.
func (m *MPV) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}
