package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/civicreport/internal/dbx"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/server/config"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/issues"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubManager struct {
	migrateErr error
	migrated   bool
}

func (m *stubManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.migrateErr
}

func (m *stubManager) Users(db dbx.DBTX) users.Repository                 { return users.NewPostgresRepository(db) }
func (m *stubManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return refreshtokens.NewPostgresRepository(db) }
func (m *stubManager) Issues(db dbx.DBTX) issues.Repository               { return issues.NewPostgresRepository(db) }

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	return c
}

func stubDeps(t *testing.T, m *stubManager, dbErr error) {
	t.Helper()
	origOpen, origManager := openDB, newRepoManager
	t.Cleanup(func() { openDB, newRepoManager = origOpen, origManager })

	openDB = func(context.Context, string) (*sql.DB, error) {
		if dbErr != nil {
			return nil, dbErr
		}
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		return db, nil
	}
	newRepoManager = func() repomanager.RepositoryManager { return m }
}

func TestNewApp_Failures(t *testing.T) {
	t.Run("db", func(t *testing.T) {
		stubDeps(t, &stubManager{}, errors.New("connection refused"))
		_, err := NewApp(context.Background(), testConfig(), logging.Nop{})
		assert.ErrorContains(t, err, "db init error")
	})

	t.Run("migrations", func(t *testing.T) {
		stubDeps(t, &stubManager{migrateErr: errors.New("dirty")}, nil)
		_, err := NewApp(context.Background(), testConfig(), logging.Nop{})
		assert.ErrorContains(t, err, "migrations error")
	})

	t.Run("schedule", func(t *testing.T) {
		stubDeps(t, &stubManager{}, nil)
		c := testConfig()
		c.CleanupSchedule = "whenever"
		_, err := NewApp(context.Background(), c, logging.Nop{})
		assert.ErrorContains(t, err, "invalid cleanup schedule")
	})
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	m := &stubManager{}
	stubDeps(t, m, nil)

	app, err := NewApp(context.Background(), testConfig(), logging.Nop{})
	require.NoError(t, err)
	assert.True(t, m.migrated)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RunFailsOnBadAddress(t *testing.T) {
	stubDeps(t, &stubManager{}, nil)

	c := testConfig()
	c.EndpointAddrGRPC = "not-an-address"
	app, err := NewApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not fail")
	}
}
