package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/roles"
	"github.com/dmitrijs2005/civicreport/internal/server/auth"
	"github.com/dmitrijs2005/civicreport/internal/server/metrics"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
)

// Chatbot intents.
const (
	IntentTicketStatus = "ticket_status"
	IntentMyReports    = "my_reports"
	IntentDepartments  = "departments"
	IntentDigipin      = "digipin"
	IntentRaise        = "raise"
	IntentHelp         = "help"
)

const (
	maxQueryLen     = 500
	myReportsLimit  = 5
	helpMessage     = "I can help you with:\n• Checking ticket status (e.g. 'CIT-2026-1A2B3C4D')\n• Listing your reports ('my reports')\n• Finding the department that handles a problem ('departments')\n• Understanding DigiPin codes\n• Raising a new problem"
	digipinMessage  = "A DigiPin is the short location code attached to every report, e.g. DIG-28613-77209. It is derived from the latitude and longitude you give when raising a problem, so staff can find the spot quickly."
	raiseMessage    = "To raise a problem, log in and open 'raise'. You will add a photo and the location, then choose a category, the criticality and a description. You get a ticket id like CIT-2026-1A2B3C4D to track it."
	myReportsNoAuth = "Please log in so I can look up your reports."
)

var ticketRe = regexp.MustCompile(`(?i)\bCIT-\d{4}-[0-9a-f]+\b`)

// ChatReply is the assistant's answer.
type ChatReply struct {
	Response     string
	RequiresAuth bool
}

type issueLookup interface {
	Get(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, p auth.Principal, q ListQuery) ([]models.Issue, error)
}

// Chatbot answers help-desk questions with a few keyword intents.
type Chatbot struct {
	issues  issueLookup
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewChatbot(issues issueLookup, logger logging.Logger, mt *metrics.Metrics) *Chatbot {
	return &Chatbot{issues: issues, logger: logger.With("module", "chatbot"), metrics: mt}
}

// Intent classifies query.
func Intent(query string) string {
	q := strings.ToLower(query)
	switch {
	case ticketRe.MatchString(query):
		return IntentTicketStatus
	case containsAny(q, "my report", "my ticket", "my issue", "my complaint"):
		return IntentMyReports
	case strings.Contains(q, "department"):
		return IntentDepartments
	case strings.Contains(q, "digipin"):
		return IntentDigipin
	case containsAny(q, "raise", "new ticket", "create", "report a", "complain"):
		return IntentRaise
	default:
		return IntentHelp
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Answer replies to query sent by userID, which is empty for anonymous
// callers.
func (c *Chatbot) Answer(ctx context.Context, query, userID string) (*ChatReply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", common.ErrValidation)
	}
	if len(query) > maxQueryLen {
		return nil, fmt.Errorf("%w: query is too long", common.ErrValidation)
	}

	intent := Intent(query)
	c.metrics.ChatQuery(intent)
	c.logger.Debug(ctx, "chat query", "intent", intent, "anonymous", userID == "")

	switch intent {
	case IntentTicketStatus:
		return c.ticketStatus(ctx, ticketRe.FindString(query))
	case IntentMyReports:
		return c.myReports(ctx, userID)
	case IntentDepartments:
		return &ChatReply{Response: departmentsMessage()}, nil
	case IntentDigipin:
		return &ChatReply{Response: digipinMessage}, nil
	case IntentRaise:
		return &ChatReply{Response: raiseMessage}, nil
	default:
		return &ChatReply{Response: helpMessage}, nil
	}
}

func (c *Chatbot) ticketStatus(ctx context.Context, id string) (*ChatReply, error) {
	id = strings.ToUpper(id)
	issue, err := c.issues.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &ChatReply{Response: fmt.Sprintf("I couldn't find ticket %s. Please check the id.", id)}, nil
		}
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s (%s) is %s. Department: %s.", issue.ID, issue.Title, issue.Status, issue.Department)
	if issue.AssigneeName != "" {
		fmt.Fprintf(&b, " Assigned to %s.", issue.AssigneeName)
	}
	return &ChatReply{Response: b.String()}, nil
}

func (c *Chatbot) myReports(ctx context.Context, userID string) (*ChatReply, error) {
	if userID == "" {
		return &ChatReply{Response: myReportsNoAuth, RequiresAuth: true}, nil
	}

	list, err := c.issues.List(ctx, auth.Principal{UserID: userID, Role: roles.User}, ListQuery{Scope: ScopeMine})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return &ChatReply{Response: "You haven't raised any problems yet."}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d report(s):", len(list))
	for i, is := range list {
		if i == myReportsLimit {
			fmt.Fprintf(&b, "\n• and %d more", len(list)-myReportsLimit)
			break
		}
		fmt.Fprintf(&b, "\n• %s %s: %s", is.ID, is.Title, is.Status)
	}
	return &ChatReply{Response: b.String()}, nil
}

func departmentsMessage() string {
	var b strings.Builder
	b.WriteString("Problems are routed to these departments:")
	for _, cat := range civic.Categories {
		fmt.Fprintf(&b, "\n• %s → %s", cat, civic.DepartmentFor(cat))
	}
	return b.String()
}
