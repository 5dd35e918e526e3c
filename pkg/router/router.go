// Package router maps dashboard paths to named pages and applies the
// navigation guard before every move.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/swiftwave-org/swctl/pkg/log"
)

// ErrNotFound is returned for a path no route matches.
var ErrNotFound = errors.New("no route matches path")

// ErrTooManyRedirects is returned when redirects do not settle.
var ErrTooManyRedirects = errors.New("too many redirects")

const defaultMaxRedirects = 10

// Location is a resolved navigation target.
type Location struct {
	Name   string
	Path   string
	Params map[string]string
	Query  url.Values
}

// String renders path and query. Slashes in query values are kept literal.
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + strings.ReplaceAll(l.Query.Encode(), "%2F", "/")
}

// Options configures a Router.
type Options struct {
	Routes       []Route
	MaxRedirects int
	Logger       log.Logger
}

// Router resolves paths against the route table and tracks the current
// location.
type Router struct {
	mux          *mux.Router
	guard        *Guard
	redirects    map[string]string
	maxRedirects int
	logger       log.Logger

	mu      sync.RWMutex
	current Location
	history []Location
}

// New builds a router over the route table.
func New(guard *Guard, opts Options) (*Router, error) {
	if guard == nil {
		return nil, fmt.Errorf("router requires a guard")
	}
	routes := opts.Routes
	if routes == nil {
		routes = Routes
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	r := &Router{
		mux:          mux.NewRouter(),
		guard:        guard,
		redirects:    map[string]string{},
		maxRedirects: opts.MaxRedirects,
		logger:       logger.WithComponent("router"),
	}

	for _, fr := range Flatten(routes) {
		route := r.mux.NewRoute().Path(fr.Path)
		name := fr.Name
		if name == "" {
			name = "redirect:" + fr.Path
		}
		if r.mux.Get(name) != nil {
			return nil, fmt.Errorf("duplicate route name %q", name)
		}
		route.Name(name)
		if err := route.GetError(); err != nil {
			return nil, fmt.Errorf("invalid route %q: %w", fr.Path, err)
		}
		if fr.Redirect != "" {
			r.redirects[name] = fr.Redirect
		}
	}
	return r, nil
}

// Guard returns the navigation guard.
func (r *Router) Guard() *Guard {
	return r.guard
}

// Resolve matches rawPath without applying the guard.
func (r *Router) Resolve(rawPath string) (Location, error) {
	u, err := url.Parse(rawPath)
	if err != nil {
		return Location{}, fmt.Errorf("invalid path %q: %w", rawPath, err)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: u.Path}}
	var match mux.RouteMatch
	if !r.mux.Match(req, &match) || match.Route == nil {
		return Location{}, fmt.Errorf("%w: %s", ErrNotFound, u.Path)
	}

	loc := Location{
		Name:   match.Route.GetName(),
		Path:   u.Path,
		Params: match.Vars,
		Query:  u.Query(),
	}
	return loc, nil
}

// URL builds the path of a named route from key/value parameter pairs.
func (r *Router) URL(name string, pairs ...string) (string, error) {
	route := r.mux.Get(name)
	if route == nil {
		return "", fmt.Errorf("%w: unknown route name %q", ErrNotFound, name)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("failed to build %q: %w", name, err)
	}
	return u.Path, nil
}

// Navigate resolves rawPath, follows route redirects and guard redirects,
// and records the final location.
func (r *Router) Navigate(rawPath string) (Location, error) {
	target := rawPath
	for i := 0; i <= r.maxRedirects; i++ {
		loc, err := r.Resolve(target)
		if err != nil {
			return Location{}, err
		}

		if to, ok := r.redirects[loc.Name]; ok {
			r.logger.Debug("Route redirect", log.Str("from", loc.Path), log.Str("to", to))
			target = to
			continue
		}

		if redirect := r.guard.Check(loc); redirect != nil {
			r.logger.Debug("Navigation redirected",
				log.Str("from", loc.Path),
				log.Str("to", redirect.String()),
				log.Str("state", string(r.guard.State())))
			target = redirect.String()
			continue
		}

		r.mu.Lock()
		r.current = loc
		r.history = append(r.history, loc)
		r.mu.Unlock()
		return loc, nil
	}
	return Location{}, fmt.Errorf("%w navigating to %s", ErrTooManyRedirects, rawPath)
}

// Current returns the last location navigated to.
func (r *Router) Current() Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// History returns every location navigated to, oldest first.
func (r *Router) History() []Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Location(nil), r.history...)
}
