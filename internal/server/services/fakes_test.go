package services

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/dbx"
	"github.com/dmitrijs2005/civicreport/internal/roles"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
	issuesrepo "github.com/dmitrijs2005/civicreport/internal/server/repositories/issues"
	refreshtokensrepo "github.com/dmitrijs2005/civicreport/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/civicreport/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int

	createErr error
	getErr    error
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, v := range f.byID {
		if v.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	f.nextID++
	c := *u
	c.ID = "new-" + strconv.Itoa(f.nextID)
	f.byID[c.ID] = &c
	return &c, nil
}

func (f *fakeUsersRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, v := range f.byID {
		if v.UserName == login {
			c := *v
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *v
	return &c, nil
}

func (f *fakeUsersRepo) ListStaff(context.Context) ([]models.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StaffMember
	for _, v := range f.byID {
		if v.Role == roles.Staff {
			out = append(out, models.StaffMember{User: *v})
		}
	}
	return out, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu      sync.Mutex
	tokens  map[string]*models.RefreshToken
	deleted []string

	findErr   error
	delErr    error
	createErr error
	purged    int64
}

func newFakeRefreshRepo(tokens ...*models.RefreshToken) *fakeRefreshRepo {
	r := &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
	for _, t := range tokens {
		r.tokens[t.Token] = t
	}
	return r
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.tokens, token)
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return f.purged, nil
}

// --- issues ---

type fakeIssuesRepo struct {
	mu     sync.Mutex
	issues map[string]*models.Issue
	votes  map[string]bool
	users  *fakeUsersRepo

	lastFilter models.IssueFilter
	lastBox    *models.Box
	setErr     error
	casFails   bool
}

func newFakeIssuesRepo(users *fakeUsersRepo, issues ...*models.Issue) *fakeIssuesRepo {
	r := &fakeIssuesRepo{issues: map[string]*models.Issue{}, votes: map[string]bool{}, users: users}
	for _, is := range issues {
		r.issues[is.ID] = is
	}
	return r
}

func (f *fakeIssuesRepo) withNames(is models.Issue) models.Issue {
	if u, err := f.users.GetByID(context.Background(), is.ReporterID); err == nil {
		is.ReporterName = u.Name
	}
	if is.AssigneeID != "" {
		if u, err := f.users.GetByID(context.Background(), is.AssigneeID); err == nil {
			is.AssigneeName = u.Name
		}
	}
	return is
}

func (f *fakeIssuesRepo) Create(_ context.Context, is *models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.issues[is.ID]; ok {
		return common.ErrorAlreadyExists
	}
	c := *is
	f.issues[is.ID] = &c
	return nil
}

func (f *fakeIssuesRepo) Get(_ context.Context, id string) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	is, ok := f.issues[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := f.withNames(*is)
	return &c, nil
}

func (f *fakeIssuesRepo) List(_ context.Context, flt models.IssueFilter, box *models.Box) ([]models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter, f.lastBox = flt, box

	var out []models.Issue
	for _, is := range f.issues {
		switch {
		case flt.ReporterID != "" && is.ReporterID != flt.ReporterID,
			flt.AssigneeID != "" && is.AssigneeID != flt.AssigneeID,
			flt.Status != "" && is.Status != flt.Status,
			flt.Category != "" && is.Category != flt.Category,
			flt.Severity != "" && is.Severity != flt.Severity:
			continue
		}
		if box != nil && (is.Lat < box.MinLat || is.Lat > box.MaxLat || is.Lng < box.MinLng || is.Lng > box.MaxLng) {
			continue
		}
		out = append(out, f.withNames(*is))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeIssuesRepo) SetStatus(_ context.Context, id string, from, to civic.Status, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	is, ok := f.issues[id]
	if !ok || is.Status != from || f.casFails {
		return false, nil
	}
	is.Status, is.UpdatedAt = to, at
	if to == civic.StatusResolved {
		is.ResolvedAt = &at
	}
	return true, nil
}

func (f *fakeIssuesRepo) Assign(_ context.Context, id, staffID string, status civic.Status, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	is, ok := f.issues[id]
	if !ok {
		return common.ErrorNotFound
	}
	is.AssigneeID, is.Status, is.UpdatedAt = staffID, status, at
	return nil
}

func (f *fakeIssuesRepo) Upvote(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := id + "/" + userID
	if f.votes[key] {
		return false, nil
	}
	f.votes[key] = true
	f.issues[id].Upvotes++
	return true, nil
}

func (f *fakeIssuesRepo) Counts(context.Context) (*models.IssueCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &models.IssueCounts{ByStatus: map[string]int{}, ByCategory: map[string]int{}, BySeverity: map[string]int{}}
	for _, is := range f.issues {
		c.Total++
		c.ByStatus[string(is.Status)]++
		c.ByCategory[is.Category]++
		c.BySeverity[string(is.Severity)]++
	}
	return c, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	i *fakeIssuesRepo
}

func newFakeRepoManager(users ...*models.User) *fakeRepoManager {
	u := newFakeUsersRepo(users...)
	return &fakeRepoManager{u: u, r: newFakeRefreshRepo(), i: newFakeIssuesRepo(u)}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Issues(db dbx.DBTX) issuesrepo.Repository               { return m.i }

// --- photos ---

type fakePhotos struct {
	putKey, putType string
	err             error
}

func (f *fakePhotos) PresignPut(_ context.Context, key, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.putKey, f.putType = key, contentType
	return "https://s3.test/put/" + key, nil
}

func (f *fakePhotos) PresignGet(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://s3.test/get/" + key, nil
}

// --- fixtures ---

var (
	citizenRavi = &models.User{ID: "u-ravi", UserName: "ravi", Name: "Ravi", Role: roles.User}
	staffPriya  = &models.User{ID: "s-priya", UserName: "priya", Name: "Priya", Role: roles.Staff, Department: "Road"}
	adminAsha   = &models.User{ID: "a-asha", UserName: "asha", Name: "Asha", Role: roles.Admin}
)

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}
