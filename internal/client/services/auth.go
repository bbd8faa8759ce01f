// Package services contains application services for the CivicReport
// client. This file defines the authentication service: login with the
// salt/verifier handshake, registration, logout and token persistence.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/civicreport/internal/client/client"
	"github.com/dmitrijs2005/civicreport/internal/client/session"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/cryptox"
	"github.com/dmitrijs2005/civicreport/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Restore: hand the tokens of a restored session to the transport.
//   - Login: authenticate online, write the session to storage, then
//     make it current in the store.
//   - Register: create a citizen account on the server.
//   - Logout: drop the session from the store and from storage.
//   - Ping: check server liveness.
type AuthService interface {
	Restore(ctx context.Context)
	Login(ctx context.Context, username string, password []byte, remember bool) (*session.Session, error)
	Register(ctx context.Context, username, name string, password []byte) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	chain  *session.Chain
	store  *session.Store
	logger logging.Logger
}

// NewAuthService wires the service and subscribes to token rotations so the
// stored session always carries the latest tokens.
func NewAuthService(c client.Client, chain *session.Chain, store *session.Store, logger logging.Logger) AuthService {
	a := &authService{client: c, chain: chain, store: store, logger: logger.With("module", "auth")}
	c.OnTokensRefreshed(a.persistTokens)
	return a
}

// Restore copies the tokens of the current session into the client. It
// waits for the store to finish loading.
func (a *authService) Restore(ctx context.Context) {
	select {
	case <-a.store.Ready():
	case <-ctx.Done():
		return
	}
	st := a.store.Snapshot()
	if st.IsAuthenticated() {
		a.client.SetTokens(st.Session.Token, st.Session.RefreshToken)
	}
}

// Login derives the verifier from (password, salt), authenticates, and
// stores the resulting session in durable storage when remember is set.
func (a *authService) Login(ctx context.Context, username string, password []byte, remember bool) (*session.Session, error) {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", err)
	}

	masterKey := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(masterKey)
	common.WipeByteArray(masterKey)

	resp, err := a.client.Login(ctx, username, verifier)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	s := session.Session{
		ID:           resp.Profile.ID,
		Name:         resp.Profile.Name,
		Role:         resp.Profile.Role,
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}

	receipt, err := a.chain.Save(ctx, s, remember)
	if err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	if err := a.store.Login(receipt); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "logged in", "user", s.ID, "role", s.Role.String(), "remember", remember)
	return &s, nil
}

// Register creates a citizen account. Salt and verifier are computed
// locally; the password never leaves the client.
func (a *authService) Register(ctx context.Context, username, name string, password []byte) error {
	salt, verifier := cryptox.NewCredentials(password)
	return a.client.Register(ctx, username, name, salt, verifier)
}

// Logout ends the session. The store is unauthenticated afterwards even if
// erasing storage fails.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetTokens("", "")
	if err := a.store.Logout(ctx); err != nil {
		a.logger.Warn(ctx, "failed to erase stored session", "error", err)
		return err
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// persistTokens rewrites the stored session after a token rotation, keeping
// it in the same backend it was in.
func (a *authService) persistTokens(access, refresh string) {
	ctx := context.Background()

	st := a.store.Snapshot()
	if !st.IsAuthenticated() {
		return
	}
	s := *st.Session
	s.Token, s.RefreshToken = access, refresh

	receipt, err := a.chain.Save(ctx, s, a.chain.Remembered(ctx))
	if err == nil {
		err = a.store.Login(receipt)
	}
	if err != nil {
		a.logger.Warn(ctx, "failed to persist rotated tokens", "error", err)
	}
}

// IsAuthError reports whether err means the session is no longer accepted by
// the server.
func IsAuthError(err error) bool {
	return errors.Is(err, client.ErrUnauthorized)
}
