package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/client/gate"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
	"github.com/dmitrijs2005/civicreport/internal/client/services"
)

func (a *App) getStatus() string {
	var parts []string

	st := a.store.Snapshot()
	switch {
	case st.Loading:
		parts = append(parts, "…")
	case st.IsAuthenticated():
		parts = append(parts, st.Session.Name+"/"+st.Role().String())
	}
	parts = append(parts, string(a.Mode()))

	path := a.current.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("(%s) %s", strings.Join(parts, " "), path)
}

// Navigate resolves path through the router and renders the resulting page.
// While the stored session is still loading a placeholder is shown and the
// navigation completes once the store is ready.
func (a *App) Navigate(ctx context.Context, path string) error {
	d, err := a.router.Navigate(a.store.Snapshot(), path)
	if err != nil {
		return err
	}

	if d.Outcome == gate.Placeholder {
		a.println(mutedStyle.Render("Loading…"))
		select {
		case <-a.store.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
		if d, err = a.router.Navigate(a.store.Snapshot(), path); err != nil {
			return err
		}
	}

	for _, from := range d.Redirects {
		a.logger.Debug(ctx, "redirected", "from", from, "to", d.Path)
	}
	if len(d.Redirects) > 0 {
		a.println(mutedStyle.Render(fmt.Sprintf("%s is not available, showing %s", d.Redirects[0], d.Path)))
	}

	a.current = d
	return a.render(ctx, d)
}

func (a *App) render(ctx context.Context, d router.Decision) error {
	p, ok := a.pages[d.Route.Page]
	if !ok {
		p = a.pages[router.NotFoundPage]
	}
	if d.Route.Title != "" {
		a.println(renderTitle(d.Route.Title))
	}
	return p.render(ctx, d)
}

// Refresh renders the current page again.
func (a *App) Refresh(ctx context.Context) error {
	return a.Navigate(ctx, a.current.Path)
}

// Home goes to the landing page of the current role.
func (a *App) Home(ctx context.Context) error {
	return a.Navigate(ctx, router.Home(a.store.Snapshot()))
}

// Action runs a command provided by the current page. It reports false when
// the page has no such command.
func (a *App) Action(ctx context.Context, cmd string, args []string) (bool, error) {
	p, ok := a.pages[a.current.Route.Page]
	if !ok {
		return false, nil
	}
	act, ok := p.actions[cmd]
	if !ok {
		return false, nil
	}
	return true, act.run(ctx, a.current, args)
}

// PageHelp lists the commands of the current page.
func (a *App) PageHelp() []string {
	p, ok := a.pages[a.current.Route.Page]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(p.actions))
	for name, act := range p.actions {
		out = append(out, fmt.Sprintf("%-10s %s", name, act.help))
	}
	sort.Strings(out)
	return out
}

func (a *App) Chat(ctx context.Context, text string) error {
	if answer := a.chat.Ask(ctx, text); answer != "" {
		a.println(labelStyle.Render("assistant: ") + answer)
	}
	return nil
}

func (a *App) IsLoggedIn() bool {
	return a.store.Snapshot().IsAuthenticated()
}

// handleError reports err. A rejected session is logged out and the user is
// sent to the sign-in page.
func (a *App) handleError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if services.IsAuthError(err) && a.IsLoggedIn() {
		a.println(errorStyle.Render("Your session is no longer valid, please sign in again."))
		if lerr := a.auth.Logout(ctx); lerr != nil {
			a.printErr(lerr)
		}
		if nerr := a.Navigate(ctx, gate.LoginPath); nerr != nil {
			a.printErr(nerr)
		}
		return
	}
	if errors.Is(err, client.ErrUnavailable) {
		a.println(errorStyle.Render("Server unavailable, try again later."))
		return
	}
	a.printErr(err)
}
