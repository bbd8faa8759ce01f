package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
)

func (a *App) staffDashboardPage(ctx context.Context, d router.Decision) error {
	assigned, err := a.issues.List(ctx, api.ListIssuesRequest{Scope: api.ScopeAssigned})
	if err != nil {
		return err
	}

	open := 0
	for _, is := range assigned {
		if civic.Status(is.Status) != civic.StatusResolved {
			open++
		}
	}
	a.println(renderField("Assigned to you", fmt.Sprintf("%d (%d open)", len(assigned), open)))
	a.println(renderIssueTable(assigned))
	return nil
}

// statusAction moves the issue on the current page forward in the workflow.
func (a *App) statusAction() action {
	return action{
		help: "<status>  pending|acknowledged|assigned|in-progress|resolved",
		run: func(ctx context.Context, d router.Decision, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			st, ok := civic.ParseStatus(args[0])
			if !ok {
				return fmt.Errorf("unknown status %q", args[0])
			}
			is, err := a.issues.UpdateStatus(ctx, d.Param("id"), string(st))
			if err != nil {
				return err
			}
			a.println(okStyle.Render(fmt.Sprintf("%s is now %s", is.ID, is.Status)))
			return nil
		},
	}
}

func (a *App) staffIssueActions() map[string]action {
	return merge(a.photoActions(), map[string]action{"status": a.statusAction()})
}
