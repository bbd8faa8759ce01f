// Package wizard implements the three-step "Raise a Problem" flow: photo and
// location, then details, then confirmation with the ticket id.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/client/services"
	"github.com/dmitrijs2005/civicreport/internal/filex"
)

// MinDescription is the description length that must be exceeded.
const MinDescription = 10

type Step uint8

const (
	StepCapture Step = iota + 1
	StepDetails
	StepConfirm
)

var (
	ErrIncomplete       = errors.New("step is incomplete")
	ErrBadLocation      = errors.New(`location must be "lat,lng" with valid coordinates`)
	ErrBadCategory      = errors.New("unknown category")
	ErrBadSeverity      = errors.New("criticality must be low, medium or high")
	ErrAlreadyConfirm   = errors.New("report already submitted")
	ErrShortDescription = fmt.Errorf("description must be longer than %d characters", MinDescription)
)

// Submitter creates the issue on the server.
type Submitter interface {
	Create(ctx context.Context, in services.NewIssue) (*api.Issue, error)
}

// Wizard holds the draft between steps. It is not safe for concurrent use.
type Wizard struct {
	submitter Submitter
	readPhoto func(path string) ([]byte, string, error)

	step        Step
	photoPath   string
	photo       *services.Photo
	hasLocation bool
	lat, lng    float64
	category    string
	severity    civic.Severity
	title       string
	description string
	submitted   *api.Issue
}

func New(s Submitter) *Wizard {
	w := &Wizard{submitter: s, readPhoto: filex.ReadPhoto}
	w.Reset()
	return w
}

// Reset returns to the first step with an empty draft.
func (w *Wizard) Reset() {
	*w = Wizard{
		submitter: w.submitter,
		readPhoto: w.readPhoto,
		step:      StepCapture,
		severity:  civic.SeverityMedium,
	}
}

func (w *Wizard) Step() Step { return w.step }

// SetPhoto reads a JPEG or PNG file from disk.
func (w *Wizard) SetPhoto(path string) error {
	data, ct, err := w.readPhoto(path)
	if err != nil {
		return err
	}
	w.photoPath = path
	w.photo = &services.Photo{Data: data, ContentType: ct}
	return nil
}

func (w *Wizard) PhotoPath() string { return w.photoPath }

func (w *Wizard) SetLocation(lat, lng float64) error {
	if !civic.ValidCoordinates(lat, lng) {
		return ErrBadLocation
	}
	w.lat, w.lng, w.hasLocation = lat, lng, true
	return nil
}

// ParseLocation accepts "lat,lng".
func (w *Wizard) ParseLocation(s string) error {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return ErrBadLocation
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(a), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err1 != nil || err2 != nil {
		return ErrBadLocation
	}
	return w.SetLocation(lat, lng)
}

// Location returns the coordinates and whether they are set.
func (w *Wizard) Location() (lat, lng float64, ok bool) {
	return w.lat, w.lng, w.hasLocation
}

// Digipin returns the location code, or "" before a location is set.
func (w *Wizard) Digipin() string {
	if !w.hasLocation {
		return ""
	}
	return civic.Digipin(w.lat, w.lng)
}

func (w *Wizard) SetCategory(c string) error {
	if !civic.ValidCategory(c) {
		return ErrBadCategory
	}
	w.category = c
	return nil
}

func (w *Wizard) SetSeverity(s string) error {
	sev, ok := civic.ParseSeverity(s)
	if !ok {
		return ErrBadSeverity
	}
	w.severity = sev
	return nil
}

func (w *Wizard) SetTitle(t string)       { w.title = strings.TrimSpace(t) }
func (w *Wizard) SetDescription(d string) { w.description = strings.TrimSpace(d) }

func (w *Wizard) Category() string         { return w.category }
func (w *Wizard) Severity() civic.Severity { return w.severity }
func (w *Wizard) Description() string      { return w.description }

// Title defaults to the category.
func (w *Wizard) Title() string {
	if w.title != "" {
		return w.title
	}
	return w.category
}

func (w *Wizard) CaptureComplete() bool {
	return w.photo != nil && w.hasLocation
}

func (w *Wizard) DetailsComplete() bool {
	return w.category != "" && w.severity != "" && len([]rune(w.description)) > MinDescription
}

// Missing lists what the current step still needs.
func (w *Wizard) Missing() []string {
	var out []string
	switch w.step {
	case StepCapture:
		if w.photo == nil {
			out = append(out, "photo")
		}
		if !w.hasLocation {
			out = append(out, "location")
		}
	case StepDetails:
		if w.category == "" {
			out = append(out, "category")
		}
		if len([]rune(w.description)) <= MinDescription {
			out = append(out, "description")
		}
	}
	return out
}

// Next advances from the capture step. The details step is left only by
// Submit.
func (w *Wizard) Next() error {
	switch w.step {
	case StepCapture:
		if !w.CaptureComplete() {
			return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(w.Missing(), ", "))
		}
		w.step = StepDetails
		return nil
	case StepDetails:
		return fmt.Errorf("%w: submit the report to continue", ErrIncomplete)
	default:
		return ErrAlreadyConfirm
	}
}

// Back returns to the previous step. The confirmation step is final.
func (w *Wizard) Back() {
	if w.step == StepDetails {
		w.step = StepCapture
	}
}

// Submit creates the issue and moves to the confirmation step.
func (w *Wizard) Submit(ctx context.Context) (*api.Issue, error) {
	if w.step == StepConfirm {
		return nil, ErrAlreadyConfirm
	}
	if !w.CaptureComplete() || w.step != StepDetails {
		return nil, fmt.Errorf("%w: complete the photo and location step first", ErrIncomplete)
	}
	if !w.DetailsComplete() {
		if len([]rune(w.description)) <= MinDescription && w.category != "" {
			return nil, ErrShortDescription
		}
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(w.Missing(), ", "))
	}

	issue, err := w.submitter.Create(ctx, services.NewIssue{
		Title:       w.Title(),
		Description: w.description,
		Category:    w.category,
		Severity:    string(w.severity),
		Lat:         w.lat,
		Lng:         w.lng,
		Photo:       w.photo,
	})
	if issue != nil {
		w.submitted = issue
		w.step = StepConfirm
	}
	return issue, err
}

// Ticket returns the id of the submitted issue, or "".
func (w *Wizard) Ticket() string {
	if w.submitted == nil {
		return ""
	}
	return w.submitted.ID
}
