package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arsenal-bot/internal/handler"
)

func replying(text string) handler.Func {
	return func(context.Context, *handler.Request) (*handler.Reply, error) {
		return handler.Text("%s", text), nil
	}
}

func newTestRouter() *Router {
	r := NewRouter(RecoveryMiddleware())
	r.Command("balance", replying("balance"))
	r.Command("ticket", replying("ticket"))
	r.Command("ticket close", replying("ticket close"), Ephemeral())
	r.Component("bj_hit", replying("hit"), Updates())
	r.Component("bj_hitter", replying("hitter"))
	return r
}

func TestRouterLookup(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name      string
		req       *handler.Request
		want      string
		ephemeral bool
		update    bool
	}{
		{"plain command", &handler.Request{Command: "balance"}, "balance", false, false},
		{"exact subcommand", &handler.Request{Command: "ticket", Subcommand: "close"}, "ticket close", true, false},
		{"bare command serves subcommands", &handler.Request{Command: "ticket", Subcommand: "stats"}, "ticket", false, false},
		{"component with id", &handler.Request{CustomID: "bj_hit:abc"}, "hit", false, true},
		{"component exact", &handler.Request{CustomID: "bj_hit"}, "hit", false, true},
		{"longer prefix", &handler.Request{CustomID: "bj_hitter:1"}, "hitter", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, ok := r.Lookup(tt.req)
			require.True(t, ok)
			assert.Equal(t, tt.ephemeral, rt.Ephemeral)
			assert.Equal(t, tt.update, rt.Update)

			reply, err := rt.Fn(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply.Content)
		})
	}
}

func TestRouterUnknown(t *testing.T) {
	r := newTestRouter()

	_, ok := r.Lookup(&handler.Request{CustomID: "bj_hi:1"})
	assert.False(t, ok)
	_, ok = r.Lookup(&handler.Request{Command: "missing"})
	assert.False(t, ok)

	_, err := r.Dispatch(context.Background(), &handler.Request{Command: "missing"})
	assert.ErrorIs(t, err, ErrUnknownInteraction)
}

func TestRouterAppliesMiddleware(t *testing.T) {
	r := NewRouter(RecoveryMiddleware())
	r.Command("explode", func(context.Context, *handler.Request) (*handler.Reply, error) {
		panic("kaboom")
	})

	_, err := r.Dispatch(context.Background(), &handler.Request{Command: "explode"})
	assert.ErrorIs(t, err, ErrPanic)
}
