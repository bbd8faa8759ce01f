package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
	"github.com/dmitrijs2005/civicreport/internal/common"
)

func (a *App) adminDashboardPage(ctx context.Context, d router.Decision) error {
	an, err := a.issues.Analytics(ctx)
	if err != nil {
		return err
	}
	a.println(renderField("Total issues", strconv.Itoa(an.Total)))
	a.println(renderField("Pending", strconv.Itoa(an.ByStatus[string(civic.StatusPending)])))
	a.println(renderField("In progress", strconv.Itoa(an.ByStatus[string(civic.StatusInProgress)])))
	a.println(renderField("Resolved", strconv.Itoa(an.ByStatus[string(civic.StatusResolved)])))
	a.println(renderField("Resolution rate", fmt.Sprintf("%.1f%%", an.ResolutionRate*100)))
	return nil
}

func (a *App) analyticsPage(ctx context.Context, d router.Decision) error {
	an, err := a.issues.Analytics(ctx)
	if err != nil {
		return err
	}
	a.println(renderCounts("By status", an.ByStatus, statusNames()))
	a.println(renderCounts("By category", an.ByCategory, civic.Categories))
	a.println(renderCounts("By severity", an.BySeverity, severityNames()))
	a.println(renderField("Resolution rate", fmt.Sprintf("%.1f%%", an.ResolutionRate*100)))
	return nil
}

func (a *App) adminIssuesPage(ctx context.Context, d router.Decision) error {
	req := a.issueFilter
	req.Scope = api.ScopeAll

	list, err := a.issues.List(ctx, req)
	if err != nil {
		return err
	}
	if f := describeFilter(req); f != "" {
		a.println(mutedStyle.Render("Filter: " + f))
	}
	a.println(renderIssueTable(list))
	return nil
}

func describeFilter(r api.ListIssuesRequest) string {
	var parts []string
	if r.Status != "" {
		parts = append(parts, "status="+r.Status)
	}
	if r.Category != "" {
		parts = append(parts, "category="+r.Category)
	}
	if r.Severity != "" {
		parts = append(parts, "severity="+r.Severity)
	}
	return strings.Join(parts, " ")
}

// parseFilter reads "status=pending severity=high category=Water Supply".
// A category value may contain spaces and runs until the next key.
func parseFilter(args []string) (api.ListIssuesRequest, error) {
	var r api.ListIssuesRequest
	var key string
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			if key != "category" {
				return r, errUsage
			}
			r.Category += " " + arg
			continue
		}
		key = k
		switch k {
		case "status":
			st, ok := civic.ParseStatus(v)
			if !ok {
				return r, fmt.Errorf("unknown status %q", v)
			}
			r.Status = string(st)
		case "severity":
			sev, ok := civic.ParseSeverity(v)
			if !ok {
				return r, fmt.Errorf("unknown severity %q", v)
			}
			r.Severity = string(sev)
		case "category":
			r.Category = v
		default:
			return r, fmt.Errorf("unknown filter %q", k)
		}
	}
	if r.Category != "" && !civic.ValidCategory(r.Category) {
		return r, fmt.Errorf("unknown category %q", r.Category)
	}
	return r, nil
}

func (a *App) adminIssuesActions() map[string]action {
	return merge(a.openActions("/admin/issues/"), map[string]action{
		"filter": {
			help: "status=.. severity=.. category=..  narrow the list",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				f, err := parseFilter(args)
				if err != nil {
					return err
				}
				a.issueFilter = f
				return a.adminIssuesPage(ctx, d)
			},
		},
		"clear": {
			help: "remove the filter",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				a.issueFilter = api.ListIssuesRequest{}
				return a.adminIssuesPage(ctx, d)
			},
		},
	})
}

func (a *App) adminIssueActions() map[string]action {
	return merge(a.photoActions(), map[string]action{
		"status": a.statusAction(),
		"assign": {
			help: "<staff id>  route the issue to a staff member",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				if len(args) != 1 {
					return errUsage
				}
				is, err := a.issues.Assign(ctx, d.Param("id"), args[0])
				if err != nil {
					return err
				}
				a.println(okStyle.Render(fmt.Sprintf("%s assigned to %s", is.ID, is.AssigneeName)))
				return nil
			},
		},
		"staff": {
			help: "list staff to pick an assignee",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				return a.adminStaffPage(ctx, d)
			},
		},
	})
}

func (a *App) adminStaffPage(ctx context.Context, d router.Decision) error {
	staff, err := a.issues.Staff(ctx)
	if err != nil {
		return err
	}
	a.println(renderStaffTable(staff))
	return nil
}

func (a *App) adminStaffActions() map[string]action {
	return map[string]action{
		"add": {
			help: "create a staff account",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				username, err := getSimpleText(a.reader, "Username", a.out)
				if err != nil {
					return err
				}
				name, err := getSimpleText(a.reader, "Full name", a.out)
				if err != nil {
					return err
				}
				dept, err := getSimpleText(a.reader, "Department ("+strings.Join(civic.Departments, ", ")+")", a.out)
				if err != nil {
					return err
				}
				if !civic.ValidDepartment(dept) {
					return fmt.Errorf("unknown department %q", dept)
				}
				password, err := getPassword(a.out)
				if err != nil {
					return err
				}
				defer common.WipeByteArray(password)

				m, err := a.issues.CreateStaff(ctx, username, name, dept, password)
				if err != nil {
					return err
				}
				a.println(okStyle.Render(fmt.Sprintf("Staff account %s created (%s)", m.Username, m.ID)))
				return a.adminStaffPage(ctx, d)
			},
		},
	}
}
