package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/server/auth"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newIssueService(t *testing.T, rm *fakeRepoManager, photos *fakePhotos) *IssueService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	if photos == nil {
		photos = &fakePhotos{}
	}
	s := NewIssueService(db, rm, photos, logging.Nop{}, nil)
	s.now = func() time.Time { return fixedNow }
	s.newUUID = func() uuid.UUID { return uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000") }
	return s
}

func seedIssue(id string, st civic.Status, mods ...func(*models.Issue)) *models.Issue {
	is := &models.Issue{
		ID:         id,
		Title:      "Pothole",
		Category:   "Road & Infrastructure",
		Department: "Road",
		Status:     st,
		Severity:   civic.SeverityMedium,
		ReporterID: citizenRavi.ID,
		Lat:        12.9716,
		Lng:        77.5946,
		CreatedAt:  fixedNow.Add(-time.Hour),
	}
	for _, m := range mods {
		m(is)
	}
	return is
}

func withIssues(rm *fakeRepoManager, issues ...*models.Issue) {
	for _, is := range issues {
		rm.i.issues[is.ID] = is
	}
}

var (
	pRavi  = auth.Principal{UserID: citizenRavi.ID, Role: citizenRavi.Role}
	pPriya = auth.Principal{UserID: staffPriya.ID, Role: staffPriya.Role}
	pAsha  = auth.Principal{UserID: adminAsha.ID, Role: adminAsha.Role}
)

func TestTicketID(t *testing.T) {
	id := TicketID(fixedNow, uuid.New())
	assert.Regexp(t, regexp.MustCompile(`^CIT-2026-[0-9A-F]{8}$`), id)
}

func TestIssueService_Create(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi))
	photos := &fakePhotos{}
	s := newIssueService(t, rm, photos)

	is, url, err := s.Create(context.Background(), pRavi, NewIssue{
		Description:      "  Street light flickering all night  ",
		Category:         "Street Lighting",
		Lat:              12.9716,
		Lng:              77.5946,
		PhotoContentType: "image/png",
	})
	require.NoError(t, err)

	assert.Equal(t, "CIT-2026-1A2B3C4D", is.ID)
	assert.Equal(t, "Street Lighting", is.Title)
	assert.Equal(t, "Street light flickering all night", is.Description)
	assert.Equal(t, "Electricity", is.Department)
	assert.Equal(t, civic.StatusPending, is.Status)
	assert.Equal(t, civic.SeverityMedium, is.Severity)
	assert.Equal(t, "DIG-12971-77594", is.Digipin)
	assert.Equal(t, "Ravi", is.ReporterName)
	assert.Equal(t, fixedNow, is.CreatedAt)

	assert.Equal(t, "image/png", photos.putType)
	assert.Regexp(t, `^issues/2026/03/CIT-2026-1A2B3C4D/`, photos.putKey)
	assert.Equal(t, photos.putKey, is.PhotoKey)
	assert.Equal(t, "https://s3.test/put/"+is.PhotoKey, url)
}

func TestIssueService_CreateWithoutPhoto(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi))
	s := newIssueService(t, rm, nil)

	is, url, err := s.Create(context.Background(), pRavi, NewIssue{
		Title:       "Overflowing bin",
		Description: "Bin not emptied for a week",
		Category:    "Waste Management",
		Severity:    "HIGH",
	})
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Empty(t, is.PhotoKey)
	assert.Equal(t, civic.SeverityHigh, is.Severity)
	assert.Equal(t, "Sanitation", is.Department)
}

func TestIssueService_CreateValidation(t *testing.T) {
	valid := NewIssue{Description: "Broken pipe on the corner", Category: "Water Supply"}

	cases := map[string]func(*NewIssue){
		"short description": func(n *NewIssue) { n.Description = "leak" },
		"ten characters":    func(n *NewIssue) { n.Description = "0123456789" },
		"unknown category":  func(n *NewIssue) { n.Category = "Parks" },
		"unknown severity":  func(n *NewIssue) { n.Severity = "urgent" },
		"bad latitude":      func(n *NewIssue) { n.Lat = 91 },
		"bad longitude":     func(n *NewIssue) { n.Lng = -181 },
		"photo type":        func(n *NewIssue) { n.PhotoContentType = "image/gif" },
	}
	for name, mod := range cases {
		t.Run(name, func(t *testing.T) {
			s := newIssueService(t, newFakeRepoManager(), nil)
			in := valid
			mod(&in)
			_, _, err := s.Create(context.Background(), pRavi, in)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestIssueService_CreatePresignError(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi))
	s := newIssueService(t, rm, &fakePhotos{err: errBoom{}})

	_, _, err := s.Create(context.Background(), pRavi, NewIssue{
		Description:      "Broken pipe on the corner",
		Category:         "Water Supply",
		PhotoContentType: "image/jpeg",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, rm.i.issues, "nothing may be stored when the upload cannot be presigned")
}

func TestIssueService_Get(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi))
	withIssues(rm, seedIssue("CIT-2026-AAAA0001", civic.StatusPending))
	s := newIssueService(t, rm, nil)

	is, err := s.Get(context.Background(), " cit-2026-aaaa0001 ")
	require.NoError(t, err)
	assert.Equal(t, "CIT-2026-AAAA0001", is.ID)

	_, err = s.Get(context.Background(), "CIT-2026-FFFFFFFF")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIssueService_ListScopes(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi), cloneUser(staffPriya))
	withIssues(rm,
		seedIssue("CIT-2026-AAAA0001", civic.StatusPending),
		seedIssue("CIT-2026-AAAA0002", civic.StatusAssigned, func(is *models.Issue) { is.AssigneeID = staffPriya.ID }),
		seedIssue("CIT-2026-AAAA0003", civic.StatusPending, func(is *models.Issue) { is.ReporterID = "someone-else" }),
	)
	s := newIssueService(t, rm, nil)
	ctx := context.Background()

	mine, err := s.List(ctx, pRavi, ListQuery{Scope: ScopeMine})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, err := s.List(ctx, pPriya, ListQuery{Scope: ScopeAssigned})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Priya", assigned[0].AssigneeName)

	_, err = s.List(ctx, pRavi, ListQuery{Scope: ScopeAssigned})
	assert.ErrorIs(t, err, common.ErrorForbidden)
	_, err = s.List(ctx, pRavi, ListQuery{Scope: ScopeAll})
	assert.ErrorIs(t, err, common.ErrorForbidden)

	all, err := s.List(ctx, pAsha, ListQuery{Scope: ScopeAll, Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.List(ctx, pRavi, ListQuery{Scope: ScopeRecent})
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, rm.i.lastFilter.Limit)

	_, err = s.List(ctx, pRavi, ListQuery{Scope: "everything"})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.List(ctx, pAsha, ListQuery{Scope: ScopeAll, Status: "closed"})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.List(ctx, pAsha, ListQuery{Scope: ScopeAll, Category: "Parks"})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.List(ctx, pAsha, ListQuery{Scope: ScopeAll, Limit: maxListLimit + 1})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestIssueService_ListNearby(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi))
	at := func(lat, lng float64) func(*models.Issue) {
		return func(is *models.Issue) { is.Lat, is.Lng = lat, lng }
	}
	withIssues(rm,
		seedIssue("CIT-2026-0000000A", civic.StatusPending, at(12.9800, 77.5946)), // ~0.9 km
		seedIssue("CIT-2026-0000000B", civic.StatusPending, at(12.9720, 77.5950)), // ~0.06 km
		seedIssue("CIT-2026-0000000C", civic.StatusPending, at(13.1000, 77.5946)), // ~14 km
		seedIssue("CIT-2026-0000000D", civic.StatusPending, at(12.9850, 77.6080)), // box corner, ~2.1 km
	)
	s := newIssueService(t, rm, nil)

	got, err := s.List(context.Background(), pRavi, ListQuery{Scope: ScopeNearby, Lat: 12.9716, Lng: 77.5946})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, is := range got {
		ids = append(ids, is.ID)
	}
	assert.Equal(t, []string{"CIT-2026-0000000B", "CIT-2026-0000000A"}, ids)
	require.NotNil(t, rm.i.lastBox)
	assert.InDelta(t, 12.9716-2.0/111, rm.i.lastBox.MinLat, 1e-9)

	limited, err := s.List(context.Background(), pRavi, ListQuery{Scope: ScopeNearby, Lat: 12.9716, Lng: 77.5946, RadiusKm: 20, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "CIT-2026-0000000B", limited[0].ID)

	_, err = s.List(context.Background(), pRavi, ListQuery{Scope: ScopeNearby, Lat: 12.9, Lng: 77.5, RadiusKm: 500})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.List(context.Background(), pRavi, ListQuery{Scope: ScopeNearby, Lat: 100})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBoundingBox_ClampsAtPole(t *testing.T) {
	b := boundingBox(89.99, 0, 50)
	assert.Equal(t, 90.0, b.MaxLat)
	assert.Equal(t, -180.0, b.MinLng)
	assert.Equal(t, 180.0, b.MaxLng)
}

func TestIssueService_UpdateStatus(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi), cloneUser(staffPriya))
	withIssues(rm,
		seedIssue("CIT-2026-AAAA0001", civic.StatusAssigned, func(is *models.Issue) { is.AssigneeID = staffPriya.ID }),
		seedIssue("CIT-2026-AAAA0002", civic.StatusPending),
	)
	s := newIssueService(t, rm, nil)
	ctx := context.Background()

	is, err := s.UpdateStatus(ctx, pPriya, "CIT-2026-AAAA0001", "in progress")
	require.NoError(t, err)
	assert.Equal(t, civic.StatusInProgress, is.Status)

	_, err = s.UpdateStatus(ctx, pPriya, "CIT-2026-AAAA0001", "acknowledged")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = s.UpdateStatus(ctx, pPriya, "CIT-2026-AAAA0002", "acknowledged")
	assert.ErrorIs(t, err, common.ErrorForbidden, "staff may only move their own assignments")

	is, err = s.UpdateStatus(ctx, pAsha, "CIT-2026-AAAA0002", "resolved")
	require.NoError(t, err)
	assert.Equal(t, civic.StatusResolved, is.Status)
	require.NotNil(t, is.ResolvedAt)
	assert.Equal(t, fixedNow, *is.ResolvedAt)

	_, err = s.UpdateStatus(ctx, pAsha, "CIT-2026-AAAA0002", "resolved")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = s.UpdateStatus(ctx, pAsha, "CIT-2026-AAAA0002", "reopened")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.UpdateStatus(ctx, pAsha, "CIT-2026-FFFFFFFF", "resolved")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIssueService_UpdateStatusLostRace(t *testing.T) {
	rm := newFakeRepoManager()
	withIssues(rm, seedIssue("CIT-2026-AAAA0001", civic.StatusPending))
	rm.i.casFails = true
	s := newIssueService(t, rm, nil)

	_, err := s.UpdateStatus(context.Background(), pAsha, "CIT-2026-AAAA0001", "acknowledged")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	rm.i.casFails = false
	rm.i.setErr = errBoom{}
	_, err = s.UpdateStatus(context.Background(), pAsha, "CIT-2026-AAAA0001", "acknowledged")
	assert.ErrorContains(t, err, "error updating status")
}

func TestIssueService_Assign(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi), cloneUser(staffPriya))
	withIssues(rm,
		seedIssue("CIT-2026-AAAA0001", civic.StatusPending),
		seedIssue("CIT-2026-AAAA0002", civic.StatusInProgress),
		seedIssue("CIT-2026-AAAA0003", civic.StatusResolved),
	)
	s := newIssueService(t, rm, nil)
	ctx := context.Background()

	is, err := s.Assign(ctx, "CIT-2026-AAAA0001", staffPriya.ID)
	require.NoError(t, err)
	assert.Equal(t, civic.StatusAssigned, is.Status)
	assert.Equal(t, "Priya", is.AssigneeName)

	is, err = s.Assign(ctx, "CIT-2026-AAAA0002", staffPriya.ID)
	require.NoError(t, err)
	assert.Equal(t, civic.StatusInProgress, is.Status, "reassignment keeps later statuses")

	_, err = s.Assign(ctx, "CIT-2026-AAAA0003", staffPriya.ID)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = s.Assign(ctx, "CIT-2026-AAAA0001", citizenRavi.ID)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Assign(ctx, "CIT-2026-AAAA0001", "nobody")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestIssueService_Upvote(t *testing.T) {
	rm := newFakeRepoManager(cloneUser(citizenRavi))
	withIssues(rm, seedIssue("CIT-2026-AAAA0001", civic.StatusPending))
	s := newIssueService(t, rm, nil)
	ctx := context.Background()

	is, err := s.Upvote(ctx, pRavi, "CIT-2026-AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, 1, is.Upvotes)

	is, err = s.Upvote(ctx, pRavi, "CIT-2026-AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, 1, is.Upvotes, "a second vote by the same user is ignored")

	is, err = s.Upvote(ctx, auth.Principal{UserID: "u-other"}, "CIT-2026-AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, 2, is.Upvotes)

	_, err = s.Upvote(ctx, pRavi, "CIT-2026-FFFFFFFF")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIssueService_PhotoURL(t *testing.T) {
	rm := newFakeRepoManager()
	withIssues(rm,
		seedIssue("CIT-2026-AAAA0001", civic.StatusPending, func(is *models.Issue) { is.PhotoKey = "issues/k" }),
		seedIssue("CIT-2026-AAAA0002", civic.StatusPending),
	)
	s := newIssueService(t, rm, nil)

	url, err := s.PhotoURL(context.Background(), "CIT-2026-AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/get/issues/k", url)

	_, err = s.PhotoURL(context.Background(), "CIT-2026-AAAA0002")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestIssueService_Analytics(t *testing.T) {
	rm := newFakeRepoManager()
	s := newIssueService(t, rm, nil)

	a, err := s.Analytics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, a.ResolutionRate)

	withIssues(rm,
		seedIssue("CIT-2026-AAAA0001", civic.StatusResolved),
		seedIssue("CIT-2026-AAAA0002", civic.StatusPending),
		seedIssue("CIT-2026-AAAA0003", civic.StatusPending, func(is *models.Issue) { is.Severity = civic.SeverityHigh }),
		seedIssue("CIT-2026-AAAA0004", civic.StatusResolved),
	)
	a, err = s.Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, a.Total)
	assert.Equal(t, 0.5, a.ResolutionRate)
	assert.Equal(t, 2, a.ByStatus["pending"])
	assert.Equal(t, 1, a.BySeverity["high"])
}
