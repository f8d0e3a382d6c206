package webpanel

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCommandHistory is how many command reports the panel remembers.
const DefaultCommandHistory = 500

// CommandEntry is one slash command invocation reported by the bot.
type CommandEntry struct {
	Command   string    `json:"command"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	GuildID   string    `json:"guild_id,omitempty"`
	GuildName string    `json:"guild_name,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// ServerInfo describes one guild the bot is in.
type ServerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	IconURL     string `json:"icon_url,omitempty"`
}

// CommandLog is a bounded, newest-wins history of command reports.
type CommandLog struct {
	mu      sync.RWMutex
	entries []CommandEntry
	limit   int
}

// NewCommandLog creates a log keeping at most limit entries.
func NewCommandLog(limit int) *CommandLog {
	if limit <= 0 {
		limit = DefaultCommandHistory
	}
	return &CommandLog{limit: limit}
}

// Add appends an entry, evicting the oldest one when full.
func (l *CommandLog) Add(e CommandEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.limit {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.limit-1]
	}
	l.entries = append(l.entries, e)
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (l *CommandLog) Recent(n int) []CommandEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]CommandEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len returns the number of remembered entries.
func (l *CommandLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// ServerRegistry holds the last guild snapshot pushed by the bot.
type ServerRegistry struct {
	mu        sync.RWMutex
	servers   []ServerInfo
	updatedAt time.Time
}

// Replace swaps in a new snapshot.
func (r *ServerRegistry) Replace(servers []ServerInfo, at time.Time) {
	sorted := slices.Clone(servers)
	slices.SortFunc(sorted, func(a, b ServerInfo) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = sorted
	r.updatedAt = at
}

// List returns the snapshot sorted by name and the time it was pushed.
func (r *ServerRegistry) List() ([]ServerInfo, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.servers), r.updatedAt
}

// ServersUpdate is the body of a server list push.
type ServersUpdate struct {
	Servers []ServerInfo `json:"servers"`
}

func (s *Server) handleCommandReport(w http.ResponseWriter, r *http.Request) {
	var e CommandEntry
	if err := decodeJSON(r, &e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if e.Command == "" {
		respondError(w, http.StatusBadRequest, "command is required")
		return
	}
	if e.At.IsZero() {
		e.At = s.now()
	}

	s.commands.Add(e)

	status := "ok"
	if !e.Success {
		status = "failed"
	}
	s.hub.Publish(fmt.Sprintf("%s CMD /%s by %s (%s) in %s: %s",
		e.At.UTC().Format(time.RFC3339), e.Command, e.Username, e.UserID, guildLabel(e), status))

	respondOK(w, nil)
}

func guildLabel(e CommandEntry) string {
	switch {
	case e.GuildName != "":
		return e.GuildName
	case e.GuildID != "":
		return e.GuildID
	default:
		return "DM"
	}
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	respondOK(w, s.commands.Recent(limit))
}

func (s *Server) handleServersUpdate(w http.ResponseWriter, r *http.Request) {
	var body ServersUpdate
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.servers.Replace(body.Servers, s.now())
	respondOK(w, map[string]int{"count": len(body.Servers)})
}

func (s *Server) handleListServers(w http.ResponseWriter, _ *http.Request) {
	servers, updatedAt := s.servers.List()
	data := map[string]any{"servers": servers}
	if !updatedAt.IsZero() {
		data["updated_at"] = updatedAt
	}
	respondOK(w, data)
}
