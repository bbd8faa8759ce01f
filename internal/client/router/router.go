package router

import (
	"errors"
	"net/url"

	"github.com/dmitrijs2005/civicreport/internal/client/gate"
	"github.com/dmitrijs2005/civicreport/internal/client/session"
	"github.com/dmitrijs2005/civicreport/internal/roles"
)

// MaxRedirects bounds how many gate redirects Navigate follows.
const MaxRedirects = 4

var ErrTooManyRedirects = errors.New("too many redirects")

// Decision is where a navigation ended up. Outcome is gate.Render or
// gate.Placeholder; redirects have already been followed and are listed in
// Redirects.
type Decision struct {
	Outcome   gate.Outcome
	Route     Route
	Path      string
	Params    map[string]string
	Redirects []string
}

// Param returns a path parameter, or "" when absent.
func (d Decision) Param(name string) string {
	return d.Params[name]
}

// Router resolves paths against a Table.
type Router struct {
	table    *Table
	notFound Route
}

func New(t *Table) *Router {
	return &Router{
		table:    t,
		notFound: Route{Path: "", Page: NotFoundPage, Title: "Not found"},
	}
}

// Resolve finds the most specific route for path. Unknown paths resolve to
// the not-found page.
func (r *Router) Resolve(path string) (Route, map[string]string) {
	segs := split(clean(path))

	var (
		best   rank
		found  *Route
		params map[string]string
	)
	for i := range r.table.routes {
		route := &r.table.routes[i]
		p, rk, ok := route.match(segs)
		if ok && (found == nil || rk.beats(best)) {
			best, found, params = rk, route, p
		}
	}
	if found == nil {
		return r.notFound, nil
	}
	return *found, params
}

// Navigate resolves path and applies the private gate, then the role gate.
// A loading session stops at a placeholder without redirecting.
func (r *Router) Navigate(st session.State, path string) (Decision, error) {
	var redirects []string
	path = clean(path)

	for {
		route, params := r.Resolve(path)
		d := Decision{Route: route, Path: path, Params: params, Redirects: redirects}

		g := gate.Decision{Outcome: gate.Render}
		if route.Private {
			g = gate.Private(st)
		}
		if g.Outcome == gate.Render && route.Gated() {
			g = gate.Role(st.Role(), route.Roles)
		}

		switch g.Outcome {
		case gate.Placeholder, gate.Render:
			d.Outcome = g.Outcome
			return d, nil
		}

		if len(redirects) == MaxRedirects {
			return Decision{}, ErrTooManyRedirects
		}
		redirects = append(redirects, path)
		path = g.To
	}
}

// Home returns the landing path of a role's area.
func Home(st session.State) string {
	switch st.Role() {
	case roles.User:
		return "/user"
	case roles.Staff:
		return "/staff"
	case roles.Admin:
		return "/admin"
	default:
		return gate.LandingPath
	}
}

func clean(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return path
}
