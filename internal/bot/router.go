package bot

import (
	"context"
	"errors"
	"strings"

	"arsenal-bot/internal/handler"
)

// ErrUnknownInteraction is returned for commands or buttons with no route.
var ErrUnknownInteraction = errors.New("unknown command or button")

// Route is a registered handler plus how to acknowledge it when it runs
// long enough that Discord needs a deferred response.
type Route struct {
	Fn handler.Func
	// Ephemeral defers as a private "thinking" message.
	Ephemeral bool
	// Update defers by acknowledging the button without a new message.
	Update bool
}

// RouteOption tweaks a Route.
type RouteOption func(*Route)

// Ephemeral marks a route whose replies only the caller sees.
func Ephemeral() RouteOption {
	return func(r *Route) { r.Ephemeral = true }
}

// Updates marks a route that edits the message its button belongs to.
func Updates() RouteOption {
	return func(r *Route) { r.Update = true }
}

type componentRoute struct {
	prefix string
	route  Route
}

// Router maps slash commands and button ids to handlers.
type Router struct {
	commands   map[string]Route
	components []componentRoute
	middleware []Middleware
}

// NewRouter creates a Router applying mws to every route.
func NewRouter(mws ...Middleware) *Router {
	return &Router{commands: make(map[string]Route), middleware: mws}
}

func (r *Router) route(fn handler.Func, opts []RouteOption) Route {
	rt := Route{Fn: Chain(fn, r.middleware...)}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

// Command registers a slash command. name is "command" or
// "command subcommand"; a bare command name also serves its subcommands.
func (r *Router) Command(name string, fn handler.Func, opts ...RouteOption) {
	r.commands[name] = r.route(fn, opts)
}

// Component registers a button handler for ids equal to prefix or starting
// with prefix followed by a colon.
func (r *Router) Component(prefix string, fn handler.Func, opts ...RouteOption) {
	r.components = append(r.components, componentRoute{prefix: prefix, route: r.route(fn, opts)})
}

// Lookup finds the route for a request.
func (r *Router) Lookup(req *handler.Request) (Route, bool) {
	if req.CustomID != "" {
		for _, c := range r.components {
			if req.CustomID == c.prefix || strings.HasPrefix(req.CustomID, c.prefix+":") {
				return c.route, true
			}
		}
		return Route{}, false
	}

	if req.Subcommand != "" {
		if rt, ok := r.commands[req.Command+" "+req.Subcommand]; ok {
			return rt, true
		}
	}
	rt, ok := r.commands[req.Command]
	return rt, ok
}

// Dispatch runs the request's handler.
func (r *Router) Dispatch(ctx context.Context, req *handler.Request) (*handler.Reply, error) {
	rt, ok := r.Lookup(req)
	if !ok {
		return nil, ErrUnknownInteraction
	}
	return rt.Fn(ctx, req)
}
