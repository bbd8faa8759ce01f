package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
	"github.com/dmitrijs2005/civicreport/internal/client/wizard"
)

const defaultRadiusKm = 2.0

func (a *App) userDashboardPage(ctx context.Context, d router.Decision) error {
	mine, err := a.issues.List(ctx, api.ListIssuesRequest{Scope: api.ScopeMine})
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, is := range mine {
		counts[is.Status]++
	}
	a.println(renderField("Total reports", strconv.Itoa(len(mine))))
	a.println(renderCounts("By status", counts, statusNames()))
	a.println("")
	a.println(mutedStyle.Render("go /user/raise to report a problem, go /user/reports to see your reports"))
	return nil
}

func (a *App) userReportsPage(ctx context.Context, d router.Decision) error {
	mine, err := a.issues.List(ctx, api.ListIssuesRequest{Scope: api.ScopeMine})
	if err != nil {
		return err
	}
	a.println(renderIssueTable(mine))
	return nil
}

func (a *App) feedPage(ctx context.Context, d router.Decision) error {
	recent, err := a.issues.List(ctx, api.ListIssuesRequest{Scope: api.ScopeRecent, Limit: 20})
	if err != nil {
		return err
	}
	a.println(renderIssueTable(recent))
	return nil
}

func (a *App) feedActions() map[string]action {
	return map[string]action{
		"upvote": {
			help: "<ticket>  support an issue",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				if len(args) != 1 {
					return errUsage
				}
				is, err := a.issues.Upvote(ctx, args[0])
				if err != nil {
					return err
				}
				a.println(okStyle.Render(fmt.Sprintf("%s now has %d upvotes", is.ID, is.Upvotes)))
				return nil
			},
		},
	}
}

func (a *App) localPage(ctx context.Context, d router.Decision) error {
	if a.nearby == nil {
		a.println(mutedStyle.Render("Type 'near <lat,lng> [radius km]' to list issues around a point."))
		return nil
	}
	a.println(renderIssueTable(a.nearby))
	return nil
}

func (a *App) localActions() map[string]action {
	return map[string]action{
		"near": {
			help: "<lat,lng> [km]  issues within a radius",
			run: func(ctx context.Context, d router.Decision, args []string) error {
				if len(args) < 1 || len(args) > 2 {
					return errUsage
				}
				lat, lng, err := parseLatLng(args[0])
				if err != nil {
					return err
				}
				radius := defaultRadiusKm
				if len(args) == 2 {
					if radius, err = strconv.ParseFloat(args[1], 64); err != nil || radius <= 0 {
						return errUsage
					}
				}
				list, err := a.issues.List(ctx, api.ListIssuesRequest{Scope: api.ScopeNearby, Lat: lat, Lng: lng, RadiusKm: radius})
				if err != nil {
					return err
				}
				a.nearby = list
				a.println(renderIssueTable(list))
				return nil
			},
		},
	}
}

func parseLatLng(s string) (float64, float64, error) {
	latS, lngS, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, wizard.ErrBadLocation
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err1 != nil || err2 != nil || !civic.ValidCoordinates(lat, lng) {
		return 0, 0, wizard.ErrBadLocation
	}
	return lat, lng, nil
}

func (a *App) raisePage(ctx context.Context, d router.Decision) error {
	w := a.wizard
	switch w.Step() {
	case wizard.StepCapture:
		a.println(labelStyle.Render("Step 1 of 3: photo and location"))
		a.println(renderField("Photo", orDash(w.PhotoPath())))
		if lat, lng, ok := w.Location(); ok {
			a.println(renderField("Location", fmt.Sprintf("%.5f, %.5f  %s", lat, lng, w.Digipin())))
		} else {
			a.println(renderField("Location", "-"))
		}
		a.println(mutedStyle.Render("photo <file>, location <lat,lng>, then next"))
	case wizard.StepDetails:
		a.println(labelStyle.Render("Step 2 of 3: details"))
		a.println(renderField("Category", orDash(w.Category())))
		a.println(renderField("Criticality", string(w.Severity())))
		a.println(renderField("Title", orDash(w.Title())))
		a.println(renderField("Description", orDash(w.Description())))
		a.println(mutedStyle.Render("category <n>, severity low|medium|high, title <text>, describe [text], submit, back"))
		for i, c := range civic.Categories {
			a.println(mutedStyle.Render(fmt.Sprintf("  %d. %s", i+1, c)))
		}
	case wizard.StepConfirm:
		a.println(labelStyle.Render("Step 3 of 3: submitted"))
		a.println(okStyle.Render("Your ticket id is " + w.Ticket()))
		a.println(mutedStyle.Render("Track it under My Reports. Type 'reset' to report another problem."))
	}
	return nil
}

func (a *App) raiseActions() map[string]action {
	w := a.wizard
	refresh := func(ctx context.Context, d router.Decision) error {
		return a.raisePage(ctx, d)
	}
	return map[string]action{
		"photo": {help: "<file>  attach a JPEG or PNG", run: func(ctx context.Context, d router.Decision, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			if err := w.SetPhoto(args[0]); err != nil {
				return err
			}
			return refresh(ctx, d)
		}},
		"location": {help: "<lat,lng>  where the problem is", run: func(ctx context.Context, d router.Decision, args []string) error {
			if err := w.ParseLocation(strings.Join(args, "")); err != nil {
				return err
			}
			return refresh(ctx, d)
		}},
		"next": {help: "continue to details", run: func(ctx context.Context, d router.Decision, args []string) error {
			if err := w.Next(); err != nil {
				return err
			}
			return refresh(ctx, d)
		}},
		"back": {help: "return to photo and location", run: func(ctx context.Context, d router.Decision, args []string) error {
			w.Back()
			return refresh(ctx, d)
		}},
		"category": {help: "<n|name>  pick a category", run: func(ctx context.Context, d router.Decision, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			name := strings.Join(args, " ")
			if n, err := strconv.Atoi(name); err == nil && n >= 1 && n <= len(civic.Categories) {
				name = civic.Categories[n-1]
			}
			if err := w.SetCategory(name); err != nil {
				return err
			}
			return refresh(ctx, d)
		}},
		"severity": {help: "low|medium|high", run: func(ctx context.Context, d router.Decision, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			if err := w.SetSeverity(args[0]); err != nil {
				return err
			}
			return refresh(ctx, d)
		}},
		"title": {help: "<text>  short title (defaults to the category)", run: func(ctx context.Context, d router.Decision, args []string) error {
			w.SetTitle(strings.Join(args, " "))
			return refresh(ctx, d)
		}},
		"describe": {help: "[text]  what is wrong (more than 10 characters)", run: func(ctx context.Context, d router.Decision, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				var err error
				if text, err = GetMultiline(a.reader, "Describe the problem", a.out); err != nil {
					return err
				}
			}
			w.SetDescription(text)
			return refresh(ctx, d)
		}},
		"submit": {help: "send the report", run: func(ctx context.Context, d router.Decision, args []string) error {
			_, err := w.Submit(ctx)
			if rerr := refresh(ctx, d); err == nil {
				err = rerr
			}
			return err
		}},
		"reset": {help: "start over", run: func(ctx context.Context, d router.Decision, args []string) error {
			w.Reset()
			return refresh(ctx, d)
		}},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
