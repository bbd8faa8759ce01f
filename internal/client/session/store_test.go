package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/roles"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingLoader struct {
	release chan struct{}
	payload []byte
}

func (b *blockingLoader) Load(ctx context.Context) []byte {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return b.payload
}

func newStore(durable, scoped Backend) (*Store, *Chain) {
	c := NewChain(key, durable, scoped, logging.Nop{})
	return NewStore(c, c, logging.Nop{}), c
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestStore_NoStoredSession(t *testing.T) {
	s, _ := newStore(NewMemoryBackend(), NewMemoryBackend())

	st := s.Snapshot()
	assert.True(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
	assert.False(t, isClosed(s.Ready()))

	s.Initialize(context.Background())

	st = s.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
	assert.Equal(t, roles.None, st.Role())
	assert.True(t, isClosed(s.Ready()))
}

func TestStore_LoadingResolvesExactlyOnce(t *testing.T) {
	s, _ := newStore(NewMemoryBackend(), NewMemoryBackend())
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Initialize(context.Background())
	s.Initialize(context.Background())

	assert.Len(t, ch, 1)
	assert.False(t, s.Snapshot().Loading)
}

func TestStore_MalformedPayloadIsUnauthenticated(t *testing.T) {
	for name, payload := range map[string]string{
		"garbage":     "{not json",
		"array":       `[1,2]`,
		"string":      `"authUser"`,
		"role number": `{"id":"1","role":7}`,
		"null":        `null`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			durable := NewMemoryBackend()
			require.NoError(t, durable.Set(ctx, key, []byte(payload)))

			s, _ := newStore(durable, NewMemoryBackend())
			require.NotPanics(t, func() { s.Initialize(ctx) })

			st := s.Snapshot()
			assert.False(t, st.Loading)
			assert.False(t, st.IsAuthenticated())
		})
	}
}

func TestStore_MalformedDurableDoesNotFallThrough(t *testing.T) {
	ctx := context.Background()
	durable, scoped := NewMemoryBackend(), NewMemoryBackend()
	require.NoError(t, durable.Set(ctx, key, []byte("{broken")))
	raw, err := Encode(ravi)
	require.NoError(t, err)
	require.NoError(t, scoped.Set(ctx, key, raw))

	s, _ := newStore(durable, scoped)
	s.Initialize(ctx)
	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestStore_UnknownRoleLoadsAsNone(t *testing.T) {
	ctx := context.Background()
	durable := NewMemoryBackend()
	require.NoError(t, durable.Set(ctx, key, []byte(`{"id":"9","name":"Eve","role":"superuser","token":"x"}`)))

	s, _ := newStore(durable, NewMemoryBackend())
	s.Initialize(ctx)

	st := s.Snapshot()
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, roles.None, st.Role())
}

func TestStore_SessionScopedIsReadWhenDurableEmpty(t *testing.T) {
	ctx := context.Background()
	scoped := NewMemoryBackend()
	raw, err := Encode(ravi)
	require.NoError(t, err)
	require.NoError(t, scoped.Set(ctx, key, raw))

	s, _ := newStore(NewMemoryBackend(), scoped)
	s.Initialize(ctx)

	st := s.Snapshot()
	require.True(t, st.IsAuthenticated())
	assert.Equal(t, roles.User, st.Role())
}

func TestStore_RememberedLoginSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	durable := NewSQLiteBackend(setupDB(t))

	first, chain := newStore(durable, NewMemoryBackend())
	first.Initialize(ctx)
	r, err := chain.Save(ctx, ravi, true)
	require.NoError(t, err)
	require.NoError(t, first.Login(r))

	second, _ := newStore(durable, NewMemoryBackend())
	second.Initialize(ctx)

	st := second.Snapshot()
	require.True(t, st.IsAuthenticated())
	if diff := cmp.Diff(ravi, *st.Session); diff != "" {
		t.Fatalf("restored session mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_UnrememberedLoginDoesNotSurviveRestart(t *testing.T) {
	ctx := context.Background()
	durable := NewSQLiteBackend(setupDB(t))

	first, chain := newStore(durable, NewMemoryBackend())
	first.Initialize(ctx)
	r, err := chain.Save(ctx, ravi, false)
	require.NoError(t, err)
	require.NoError(t, first.Login(r))
	assert.True(t, first.Snapshot().IsAuthenticated())

	second, _ := newStore(durable, NewMemoryBackend())
	second.Initialize(ctx)
	assert.False(t, second.Snapshot().IsAuthenticated())
}

func TestStore_LoginRequiresReceipt(t *testing.T) {
	s, _ := newStore(NewMemoryBackend(), NewMemoryBackend())
	s.Initialize(context.Background())

	err := s.Login(Receipt{})
	require.ErrorIs(t, err, ErrNoReceipt)
	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestStore_LogoutWhenUnauthenticatedIsNoop(t *testing.T) {
	s, _ := newStore(NewMemoryBackend(), NewMemoryBackend())
	s.Initialize(context.Background())
	before := s.Snapshot()

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Logout(context.Background()))
	require.NoError(t, s.Logout(context.Background()))

	assert.Equal(t, before, s.Snapshot())
	assert.Len(t, ch, 0)
}

func TestStore_LogoutClearsStorageAndState(t *testing.T) {
	ctx := context.Background()
	durable, scoped := NewMemoryBackend(), NewMemoryBackend()
	s, chain := newStore(durable, scoped)
	s.Initialize(ctx)

	r, err := chain.Save(ctx, ravi, true)
	require.NoError(t, err)
	require.NoError(t, s.Login(r))

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.Snapshot().IsAuthenticated())
	assert.Nil(t, chain.Load(ctx))
}

func TestStore_LogoutEraseErrorStillUnauthenticated(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("locked")
	durable := failingBackend{Backend: NewMemoryBackend(), removeErr: boom}
	s, chain := newStore(durable, NewMemoryBackend())
	s.Initialize(ctx)

	r, err := chain.Save(ctx, ravi, false)
	require.NoError(t, err)
	require.NoError(t, s.Login(r))

	require.ErrorIs(t, s.Logout(ctx), boom)
	assert.False(t, s.Snapshot().IsAuthenticated())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s, chain := newStore(NewMemoryBackend(), NewMemoryBackend())
	s.Initialize(ctx)
	r, err := chain.Save(ctx, ravi, false)
	require.NoError(t, err)
	require.NoError(t, s.Login(r))

	st := s.Snapshot()
	st.Session.Role = roles.Admin
	assert.Equal(t, roles.User, s.Snapshot().Role())
}

func TestStore_SlowStorageStaysLoading(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{})}
	s := NewStore(loader, NewChain(key, NewMemoryBackend(), NewMemoryBackend(), logging.Nop{}), logging.Nop{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Initialize(context.Background())
	}()

	assert.True(t, s.Snapshot().Loading)
	assert.False(t, isClosed(s.Ready()))

	close(loader.release)
	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("store did not resolve")
	}
	<-done
	assert.False(t, s.Snapshot().Loading)
}

func TestStore_LoginDuringLoadingWins(t *testing.T) {
	ctx := context.Background()
	raw, err := Encode(Session{ID: "old", Role: roles.Staff, Token: "o"})
	require.NoError(t, err)
	loader := &blockingLoader{release: make(chan struct{}), payload: raw}
	chain := NewChain(key, NewMemoryBackend(), NewMemoryBackend(), logging.Nop{})
	s := NewStore(loader, chain, logging.Nop{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Initialize(ctx)
	}()

	r, err := chain.Save(ctx, ravi, false)
	require.NoError(t, err)
	require.NoError(t, s.Login(r))
	assert.True(t, isClosed(s.Ready()))

	close(loader.release)
	<-done

	assert.Equal(t, "u-1", s.Snapshot().Session.ID)
}

func TestStore_LogoutDuringLoadingWins(t *testing.T) {
	ctx := context.Background()
	chain := NewChain(key, NewMemoryBackend(), NewMemoryBackend(), logging.Nop{})
	_, err := chain.Save(ctx, ravi, true)
	require.NoError(t, err)

	loader := &blockingLoader{release: make(chan struct{}), payload: chain.Load(ctx)}
	require.NotNil(t, loader.payload)
	s := NewStore(loader, chain, logging.Nop{})

	ch, cancel := s.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Initialize(ctx)
	}()

	require.NoError(t, s.Logout(ctx))
	assert.True(t, isClosed(s.Ready()))
	assert.False(t, s.Snapshot().Loading)

	close(loader.release)
	<-done

	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
	assert.Nil(t, chain.Load(ctx))
	assert.Len(t, ch, 1)
}

func TestStore_SubscribeCancel(t *testing.T) {
	ctx := context.Background()
	s, chain := newStore(NewMemoryBackend(), NewMemoryBackend())
	ch, cancel := s.Subscribe()
	cancel()
	cancel()

	s.Initialize(ctx)
	r, err := chain.Save(ctx, ravi, false)
	require.NoError(t, err)
	require.NoError(t, s.Login(r))

	assert.Len(t, ch, 0)
}
