package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
)

type action struct {
	help string
	run  func(ctx context.Context, d router.Decision, args []string) error
}

type page struct {
	render  func(ctx context.Context, d router.Decision) error
	actions map[string]action
}

var errUsage = errors.New("wrong arguments, see 'help'")

// buildPages maps page names from the routing table to their renderers.
func (a *App) buildPages() map[string]page {
	return map[string]page{
		"landing":           {render: a.landingPage},
		"auth":              {render: a.authPage},
		"contact":           {render: a.contactPage},
		"privacy":           {render: a.privacyPage},
		router.NotFoundPage: {render: a.notFoundPage},
		"profile":           {render: a.profilePage},

		"user.dashboard":   {render: a.userDashboardPage},
		"user.reports":     {render: a.userReportsPage, actions: a.openActions("/user/reports/")},
		"user.report":      {render: a.issuePage, actions: a.photoActions()},
		"user.raise":       {render: a.raisePage, actions: a.raiseActions()},
		"user.feed":        {render: a.feedPage, actions: a.feedActions()},
		"user.local":       {render: a.localPage, actions: a.localActions()},
		"user.departments": {render: a.departmentsPage},

		"staff.dashboard": {render: a.staffDashboardPage, actions: a.openActions("/staff/issues/")},
		"staff.issue":     {render: a.issuePage, actions: a.staffIssueActions()},

		"admin.dashboard": {render: a.adminDashboardPage},
		"admin.issues":    {render: a.adminIssuesPage, actions: a.adminIssuesActions()},
		"admin.issue":     {render: a.issuePage, actions: a.adminIssueActions()},
		"admin.staff":     {render: a.adminStaffPage, actions: a.adminStaffActions()},
		"admin.analytics": {render: a.analyticsPage},
	}
}

func (a *App) landingPage(ctx context.Context, d router.Decision) error {
	a.println("Report civic problems in your neighbourhood and follow them until they are fixed.")
	a.println("")
	a.println("  1. Take a photo of the problem and share its location.")
	a.println("  2. Pick a category and describe what is wrong.")
	a.println("  3. Track your ticket while the right department resolves it.")
	a.println("")
	if st := a.store.Snapshot(); st.IsAuthenticated() {
		a.println(fmt.Sprintf("Signed in as %s. Type 'home' to open your dashboard.", st.Session.Name))
	} else {
		a.println("Type 'login' or 'register' to get started, 'chat <question>' to ask the assistant.")
	}
	return nil
}

func (a *App) authPage(ctx context.Context, d router.Decision) error {
	if a.IsLoggedIn() {
		a.println("You are signed in. Type 'home' or 'logout'.")
		return nil
	}
	a.println("Type 'login' to sign in or 'register' to create a citizen account.")
	return nil
}

func (a *App) contactPage(ctx context.Context, d router.Decision) error {
	a.println("Municipal helpdesk: open Monday to Saturday, 9:00 to 18:00.")
	a.println("For emergencies call the local emergency number, do not file a report.")
	return nil
}

func (a *App) privacyPage(ctx context.Context, d router.Decision) error {
	a.println("Reports include the photo, location and description you submit.")
	a.println("Your name is shown to staff handling your report. 'Remember me' keeps")
	a.println("your session in a local file on this device until you log out.")
	return nil
}

func (a *App) notFoundPage(ctx context.Context, d router.Decision) error {
	a.println(fmt.Sprintf("Nothing here at %s. Type 'home' to go back.", d.Path))
	return nil
}

func (a *App) profilePage(ctx context.Context, d router.Decision) error {
	p, err := a.issues.Me(ctx)
	if err != nil {
		return err
	}
	a.println(renderField("Name", p.Name))
	a.println(renderField("Username", p.Username))
	a.println(renderField("Role", p.Role.String()))
	if p.Department != "" {
		a.println(renderField("Department", p.Department))
	}
	return nil
}

func (a *App) departmentsPage(ctx context.Context, d router.Decision) error {
	for _, dep := range civic.Departments {
		var cats []string
		for _, c := range civic.Categories {
			if civic.DepartmentFor(c) == dep {
				cats = append(cats, c)
			}
		}
		line := labelStyle.Render(dep)
		if len(cats) > 0 {
			line += mutedStyle.Render("  " + strings.Join(cats, ", "))
		}
		a.println(line)
	}
	return nil
}

// issuePage shows the issue named by the :id parameter.
func (a *App) issuePage(ctx context.Context, d router.Decision) error {
	is, err := a.issues.Get(ctx, d.Param("id"))
	if err != nil {
		return err
	}
	a.println(renderIssue(is))
	return nil
}

func (a *App) openActions(prefix string) map[string]action {
	return map[string]action{
		"open": {
			help: "<ticket>  show one issue",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				if len(args) != 1 {
					return errUsage
				}
				return a.Navigate(ctx, prefix+args[0])
			},
		},
	}
}

func (a *App) photoActions() map[string]action {
	return map[string]action{
		"photo": {
			help: "print a link to the photo",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				url, err := a.issues.PhotoURL(ctx, d.Param("id"))
				if err != nil {
					return err
				}
				a.println(url)
				return nil
			},
		},
	}
}

// merge combines action sets; later sets win.
func merge(sets ...map[string]action) map[string]action {
	out := make(map[string]action)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}
