// Package router maps client paths to pages and applies the session gates.
//
// Routes come from a YAML table; the default one is embedded. A route may be
// private (login required) and may restrict access to a set of roles.
package router

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/roles"
	"gopkg.in/yaml.v3"
)

// NotFoundPage is rendered for paths no route matches.
const NotFoundPage = "notfound"

//go:embed routes.yaml
var defaultRoutes []byte

var ErrInvalidTable = errors.New("invalid routing table")

// Route is one entry of the routing table.
type Route struct {
	Path    string
	Page    string
	Title   string
	Private bool
	Roles   []roles.Role

	segments []string
	wildcard bool
}

// Gated reports whether the route restricts roles.
func (r Route) Gated() bool {
	return len(r.Roles) > 0
}

type rawRoute struct {
	Path    string   `yaml:"path"`
	Page    string   `yaml:"page"`
	Title   string   `yaml:"title"`
	Private bool     `yaml:"private"`
	Roles   []string `yaml:"roles"`
}

type rawTable struct {
	Routes []rawRoute `yaml:"routes"`
}

// Table is a validated routing table.
type Table struct {
	routes []Route
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Load parses a YAML routing table. Unknown role names, duplicate paths and
// misplaced wildcards are errors. A route with roles is always private.
func Load(r io.Reader) (*Table, error) {
	var raw rawTable
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(raw.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", ErrInvalidTable)
	}

	t := &Table{}
	seen := make(map[string]struct{}, len(raw.Routes))

	for i, rr := range raw.Routes {
		route, err := compile(rr)
		if err != nil {
			return nil, fmt.Errorf("%w: route %d: %v", ErrInvalidTable, i, err)
		}
		if _, dup := seen[route.Path]; dup {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrInvalidTable, route.Path)
		}
		seen[route.Path] = struct{}{}
		t.routes = append(t.routes, route)
	}
	return t, nil
}

// LoadFile reads a routing table from path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routes: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded routing table.
func Default() *Table {
	t, err := Load(strings.NewReader(string(defaultRoutes)))
	if err != nil {
		panic(err)
	}
	return t
}

func compile(rr rawRoute) (Route, error) {
	if !strings.HasPrefix(rr.Path, "/") {
		return Route{}, fmt.Errorf("path %q must start with /", rr.Path)
	}
	if rr.Page == "" {
		return Route{}, fmt.Errorf("path %q has no page", rr.Path)
	}

	route := Route{
		Path:     rr.Path,
		Page:     rr.Page,
		Title:    rr.Title,
		Private:  rr.Private || len(rr.Roles) > 0,
		segments: split(rr.Path),
	}

	for i, seg := range route.segments {
		switch {
		case seg == "*":
			if i != len(route.segments)-1 {
				return Route{}, fmt.Errorf("path %q: * must be the last segment", rr.Path)
			}
			route.wildcard = true
		case seg == ":":
			return Route{}, fmt.Errorf("path %q: unnamed parameter", rr.Path)
		}
	}
	if route.wildcard {
		route.segments = route.segments[:len(route.segments)-1]
	}

	for _, name := range rr.Roles {
		r, ok := roles.Parse(name)
		if !ok {
			return Route{}, fmt.Errorf("path %q: unknown role %q", rr.Path, name)
		}
		route.Roles = append(route.Roles, r)
	}
	return route, nil
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// rank orders matching routes. Any exact route beats every wildcard route;
// within each group more static segments beat parameters.
type rank struct {
	exact bool
	score int
}

func (a rank) beats(b rank) bool {
	if a.exact != b.exact {
		return a.exact
	}
	return a.score > b.score
}

// match reports whether path matches the route, its parameters, and its rank.
func (r Route) match(segs []string) (map[string]string, rank, bool) {
	if r.wildcard {
		if len(segs) < len(r.segments) {
			return nil, rank{}, false
		}
	} else if len(segs) != len(r.segments) {
		return nil, rank{}, false
	}

	var params map[string]string
	score := 0
	for i, seg := range r.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = segs[i]
			score++
			continue
		}
		if seg != segs[i] {
			return nil, rank{}, false
		}
		score += 2
	}
	return params, rank{exact: !r.wildcard, score: score}, true
}
