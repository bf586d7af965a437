package audio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	ipcConnectTimeout = 2 * time.Second
	ipcRequestTimeout = 250 * time.Millisecond
)

// MPVBackend plays files through one mpv subprocess per track and controls
// it over mpv's JSON IPC socket.
type MPVBackend struct {
	bin       string
	socketDir string
	logger    zerolog.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	conn       net.Conn
	reader     *bufio.Reader
	socketPath string
	busy       bool
	volume     int
	reqID      int64
}

// NewMPVBackend creates an mpv-based backend. bin is the mpv executable.
func NewMPVBackend(bin, socketDir string, volume int, logger zerolog.Logger) *MPVBackend {
	return &MPVBackend{
		bin:       bin,
		socketDir: socketDir,
		volume:    volume,
		logger:    logger.With().Str("component", "mpv").Logger(),
	}
}

// PlayFile stops any current process and launches mpv for path.
func (b *MPVBackend) PlayFile(path string, durationHintMS int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	socketPath := filepath.Join(b.socketDir, fmt.Sprintf("skald-mpv-%d.sock", time.Now().UnixNano()))
	cmd := exec.Command(b.bin,
		"--no-video",
		"--no-terminal",
		"--idle=no",
		fmt.Sprintf("--volume=%d", b.volume),
		"--input-ipc-server="+socketPath,
		path,
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	b.cmd = cmd
	b.socketPath = socketPath
	b.busy = true

	// Watchdog: flips busy off when this process exits, whatever the cause.
	go b.watch(cmd, socketPath)

	if err := b.connectLocked(); err != nil {
		// Playback still runs; only IPC control is degraded.
		b.logger.Warn().Err(err).Msg("mpv ipc connect failed")
	}

	b.logger.Debug().Str("path", path).Int("pid", cmd.Process.Pid).Msg("mpv started")
	return nil
}

func (b *MPVBackend) watch(cmd *exec.Cmd, socketPath string) {
	err := cmd.Wait()

	b.mu.Lock()
	if b.cmd == cmd {
		b.busy = false
		b.closeConnLocked()
		b.cmd = nil
	}
	b.mu.Unlock()

	_ = os.Remove(socketPath)
	if err != nil {
		b.logger.Debug().Err(err).Msg("mpv exited")
	}
}

func (b *MPVBackend) connectLocked() error {
	deadline := time.Now().Add(ipcConnectTimeout)
	for {
		conn, err := net.Dial("unix", b.socketPath)
		if err == nil {
			b.conn = conn
			b.reader = bufio.NewReader(conn)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("dial mpv socket: %w", err)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func (b *MPVBackend) closeConnLocked() {
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
		b.reader = nil
	}
}

type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type mpvResponse struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int64           `json:"request_id"`
	Event     string          `json:"event"`
}

// command issues one IPC command and waits for its reply, bounded by
// ipcRequestTimeout. mpv interleaves event notifications on the same
// socket; replies are matched by request id.
func (b *MPVBackend) command(args ...any) (json.RawMessage, error) {
	if b.conn == nil {
		return nil, fmt.Errorf("mpv ipc not connected")
	}

	b.reqID++
	req := mpvRequest{Command: args, RequestID: b.reqID}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(ipcRequestTimeout)
	if err := b.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if _, err := b.conn.Write(append(payload, '\n')); err != nil {
		b.closeConnLocked()
		return nil, fmt.Errorf("write mpv command: %w", err)
	}

	for {
		line, err := b.reader.ReadBytes('\n')
		if err != nil {
			b.closeConnLocked()
			return nil, fmt.Errorf("read mpv response: %w", err)
		}

		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Event != "" || resp.RequestID != req.RequestID {
			continue
		}
		if resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	}
}

func (b *MPVBackend) setProperty(name string, value any) error {
	_, err := b.command("set_property", name, value)
	return err
}

func (b *MPVBackend) getFloatProperty(name string) (float64, error) {
	data, err := b.command("get_property", name)
	if err != nil {
		return 0, err
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return 0, err
	}
	return value, nil
}

// Pause suspends the current process without tearing it down, so resume
// continues from the same position.
func (b *MPVBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setProperty("pause", true)
}

// Resume continues paused playback.
func (b *MPVBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setProperty("pause", false)
}

// Stop kills the current process. Safe to call when nothing is playing.
func (b *MPVBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	return nil
}

func (b *MPVBackend) stopLocked() {
	if b.cmd == nil {
		return
	}
	if b.conn != nil {
		_, _ = b.command("quit")
	}
	if b.cmd != nil && b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
	b.closeConnLocked()
	b.cmd = nil
	b.busy = false
}

// Seek jumps to an absolute position in seconds.
func (b *MPVBackend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.command("seek", seconds, "absolute")
	return err
}

// SetVolume applies the volume to the running process and remembers it for
// the next one.
func (b *MPVBackend) SetVolume(percent int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = percent
	if b.conn != nil {
		return b.setProperty("volume", percent)
	}
	return nil
}

// PositionMS queries the current playback position.
func (b *MPVBackend) PositionMS() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seconds, err := b.getFloatProperty("playback-time")
	if err != nil {
		return 0, err
	}
	return int64(seconds * 1000), nil
}

// DurationMS queries the current track duration.
func (b *MPVBackend) DurationMS() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seconds, err := b.getFloatProperty("duration")
	if err != nil {
		return 0, err
	}
	return int64(seconds * 1000), nil
}

// Busy reports whether an mpv process is still producing audio.
func (b *MPVBackend) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

func (b *MPVBackend) Kind() string { return "mpv" }

// Close tears down any running process.
func (b *MPVBackend) Close() error {
	return b.Stop()
}
