package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/civicreport/internal/api"
	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/client/config"
	"github.com/dmitrijs2005/civicreport/internal/client/router"
	"github.com/dmitrijs2005/civicreport/internal/client/services"
	"github.com/dmitrijs2005/civicreport/internal/client/session"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/roles"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	chain *session.Chain
	store *session.Store

	loginAs   *session.Session
	loginErr  error
	pingErr   error
	logoutErr error

	registered []string
	logouts    int
	remember   bool
}

func (f *fakeAuth) Restore(ctx context.Context) {}

func (f *fakeAuth) Login(ctx context.Context, username string, password []byte, remember bool) (*session.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.remember = remember
	rc, err := f.chain.Save(ctx, *f.loginAs, remember)
	if err != nil {
		return nil, err
	}
	if err := f.store.Login(rc); err != nil {
		return nil, err
	}
	s := rc.Session()
	return &s, nil
}

func (f *fakeAuth) Register(ctx context.Context, username, name string, password []byte) error {
	f.registered = append(f.registered, username)
	return nil
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logouts++
	if err := f.store.Logout(ctx); err != nil {
		return err
	}
	return f.logoutErr
}

func (f *fakeAuth) Ping(ctx context.Context) error  { return f.pingErr }
func (f *fakeAuth) Close(ctx context.Context) error { return nil }

type fakeIssues struct {
	issues    []api.Issue
	lastList  api.ListIssuesRequest
	created   []services.NewIssue
	statusSet map[string]string
	assigned  map[string]string
	staff     []api.StaffMember
	analytics *api.AnalyticsResponse
	err       error
}

func (f *fakeIssues) find(id string) (*api.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.issues {
		if f.issues[i].ID == id {
			return &f.issues[i], nil
		}
	}
	return nil, client.ErrNotFound
}

func (f *fakeIssues) Create(ctx context.Context, in services.NewIssue) (*api.Issue, error) {
	f.created = append(f.created, in)
	is := api.Issue{ID: "CIT-2026-0000abcd", Title: in.Title, Category: in.Category, Status: "pending"}
	f.issues = append(f.issues, is)
	return &is, nil
}

func (f *fakeIssues) Get(ctx context.Context, id string) (*api.Issue, error) { return f.find(id) }

func (f *fakeIssues) List(ctx context.Context, req api.ListIssuesRequest) ([]api.Issue, error) {
	f.lastList = req
	if f.err != nil {
		return nil, f.err
	}
	return f.issues, nil
}

func (f *fakeIssues) UpdateStatus(ctx context.Context, id, status string) (*api.Issue, error) {
	is, err := f.find(id)
	if err != nil {
		return nil, err
	}
	if f.statusSet == nil {
		f.statusSet = map[string]string{}
	}
	f.statusSet[id] = status
	is.Status = status
	return is, nil
}

func (f *fakeIssues) Assign(ctx context.Context, id, staffID string) (*api.Issue, error) {
	is, err := f.find(id)
	if err != nil {
		return nil, err
	}
	if f.assigned == nil {
		f.assigned = map[string]string{}
	}
	f.assigned[id] = staffID
	is.AssigneeID, is.AssigneeName = staffID, "Priya"
	return is, nil
}

func (f *fakeIssues) Upvote(ctx context.Context, id string) (*api.Issue, error) {
	is, err := f.find(id)
	if err != nil {
		return nil, err
	}
	is.Upvotes++
	return is, nil
}

func (f *fakeIssues) PhotoURL(ctx context.Context, id string) (string, error) {
	if _, err := f.find(id); err != nil {
		return "", err
	}
	return "https://photos.example/" + id, nil
}

func (f *fakeIssues) Staff(ctx context.Context) ([]api.StaffMember, error) { return f.staff, f.err }

func (f *fakeIssues) CreateStaff(ctx context.Context, username, name, department string, password []byte) (*api.StaffMember, error) {
	m := api.StaffMember{ID: "s-" + username, Username: username, Name: name, Department: department}
	f.staff = append(f.staff, m)
	return &m, nil
}

func (f *fakeIssues) Analytics(ctx context.Context) (*api.AnalyticsResponse, error) {
	return f.analytics, f.err
}

func (f *fakeIssues) Me(ctx context.Context) (*api.Profile, error) {
	return &api.Profile{ID: "u1", Username: "ravi", Name: "Ravi", Role: roles.User}, f.err
}

type fakeBot struct{ reply string }

func (b fakeBot) SendQuery(ctx context.Context, query, userID string) (*client.ChatReply, error) {
	return &client.ChatReply{Response: b.reply}, nil
}

type testApp struct {
	*App
	out    *bytes.Buffer
	auth   *fakeAuth
	issues *fakeIssues
	store  *session.Store
}

// newTestApp builds an App over fakes. A nil sess leaves the user signed out.
// The store is initialized unless loading is true.
func newTestApp(t *testing.T, sess *session.Session, input string, loading bool) *testApp {
	t.Helper()
	ctx := context.Background()

	chain := session.NewChain(common.SessionStorageKey, session.NewMemoryBackend(), session.NewMemoryBackend(), logging.Nop{})
	store := session.NewStore(chain, chain, logging.Nop{})
	if !loading {
		store.Initialize(ctx)
	}
	if sess != nil {
		rc, err := chain.Save(ctx, *sess, false)
		require.NoError(t, err)
		require.NoError(t, store.Login(rc))
	}

	auth := &fakeAuth{chain: chain, store: store}
	issues := &fakeIssues{}
	chat := services.NewChatService(fakeBot{reply: "Ticket CIT-1 is pending."}, store, logging.Nop{})
	out := &bytes.Buffer{}

	a := newApp(&config.Config{}, logging.Nop{}, auth, issues, chat, store, router.New(router.Default()), strings.NewReader(input), out)

	return &testApp{App: a, out: out, auth: auth, issues: issues, store: store}
}

func citizen() *session.Session {
	return &session.Session{ID: "u1", Name: "Ravi", Role: roles.User, Token: "t"}
}

func staffer() *session.Session {
	return &session.Session{ID: "s1", Name: "Priya", Role: roles.Staff, Token: "t"}
}

func admin() *session.Session {
	return &session.Session{ID: "a1", Name: "Root", Role: roles.Admin, Token: "t"}
}
