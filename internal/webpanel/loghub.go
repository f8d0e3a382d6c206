package webpanel

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultLogBacklog is how many recent lines a new stream subscriber gets.
const DefaultLogBacklog = 200

// LogHub keeps the most recent log lines and fans new ones out to
// subscribers. It is an io.Writer so it can sit behind zerolog.
type LogHub struct {
	mu    sync.Mutex
	lines []string
	start int
	size  int
	subs  map[chan string]struct{}
}

// NewLogHub creates a hub remembering up to capacity lines.
func NewLogHub(capacity int) *LogHub {
	if capacity <= 0 {
		capacity = DefaultLogBacklog
	}
	return &LogHub{
		lines: make([]string, capacity),
		subs:  make(map[chan string]struct{}),
	}
}

// Write stores every non-empty line in p. It never fails, so a slow dashboard
// cannot break logging.
func (h *LogHub) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			h.Publish(line)
		}
	}
	return len(p), nil
}

// Publish appends a line and hands it to every subscriber. Subscribers whose
// buffer is full miss the line.
func (h *LogHub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := (h.start + h.size) % len(h.lines)
	h.lines[idx] = line
	if h.size < len(h.lines) {
		h.size++
	} else {
		h.start = (h.start + 1) % len(h.lines)
	}

	for ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Recent returns the remembered lines, oldest first.
func (h *LogHub) Recent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recentLocked()
}

func (h *LogHub) recentLocked() []string {
	out := make([]string, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.lines[(h.start+i)%len(h.lines)]
	}
	return out
}

// Subscribe registers a listener and returns the backlog as of that moment,
// so no line is both replayed and delivered. The returned func unregisters
// the listener.
func (h *LogHub) Subscribe() ([]string, <-chan string, func()) {
	ch := make(chan string, 64)

	h.mu.Lock()
	backlog := h.recentLocked()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return backlog, ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Subscribers reports how many listeners are attached.
func (h *LogHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// handleLogStream upgrades to a websocket, replays the backlog and then
// forwards new lines until the client goes away.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Log stream upgrade failed")
		return
	}
	defer conn.CloseNow()

	backlog, lines, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// We never expect client messages; CloseRead handles pings and closes.
	ctx := conn.CloseRead(r.Context())

	for _, line := range backlog {
		if err := writeLine(ctx, conn, line); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case line := <-lines:
			if err := writeLine(ctx, conn, line); err != nil {
				return
			}
		}
	}
}

func writeLine(ctx context.Context, conn *websocket.Conn, line string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(line))
}
