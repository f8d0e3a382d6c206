package game

import (
	"cmp"
	"errors"
	"slices"
	"sync"
)

// Registration errors.
var (
	ErrNilGame      = errors.New("cannot register nil game")
	ErrEmptyCommand = errors.New("game command cannot be empty")
)

// Registry maps slash commands to single-shot games. Registering a command
// again replaces the earlier game.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Game
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]Game)}
}

// Register adds g under its command.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return ErrNilGame
	}
	cmd := g.Command()
	if cmd == "" {
		return ErrEmptyCommand
	}

	r.mu.Lock()
	r.games[cmd] = g
	r.mu.Unlock()
	return nil
}

// Get looks a game up by command.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[command]
	return g, ok
}

// List returns the games ordered by command.
func (r *Registry) List() []Game {
	r.mu.RLock()
	out := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Game) int { return cmp.Compare(a.Command(), b.Command()) })
	return out
}

// Count returns how many games are registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Commands returns the registered commands in order.
func (r *Registry) Commands() []string {
	games := r.List()
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.Command()
	}
	return out
}
