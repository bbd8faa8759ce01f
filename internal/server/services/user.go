// Package services contains server-side business logic. This file implements
// UserService, which handles accounts, login, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicreport/internal/civic"
	"github.com/dmitrijs2005/civicreport/internal/common"
	"github.com/dmitrijs2005/civicreport/internal/cryptox"
	"github.com/dmitrijs2005/civicreport/internal/dbx"
	"github.com/dmitrijs2005/civicreport/internal/logging"
	"github.com/dmitrijs2005/civicreport/internal/roles"
	"github.com/dmitrijs2005/civicreport/internal/server/auth"
	"github.com/dmitrijs2005/civicreport/internal/server/config"
	"github.com/dmitrijs2005/civicreport/internal/server/metrics"
	"github.com/dmitrijs2005/civicreport/internal/server/models"
	"github.com/dmitrijs2005/civicreport/internal/server/repositories/repomanager"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides account operations:
//   - Register / CreateStaff: create citizen and staff accounts
//   - Login: verify credentials and mint tokens
//   - RefreshToken: rotate refresh tokens and mint new access tokens
//   - EnsureAdmin: create the bootstrap admin
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	metrics                      *metrics.Metrics
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, mt *metrics.Metrics) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger.With("module", "users"),
		metrics:                      mt,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// Register creates a citizen account.
func (s *UserService) Register(ctx context.Context, username, name string, salt, verifier []byte) (*models.User, error) {
	user, err := s.newUser(username, name, salt, verifier)
	if err != nil {
		return nil, err
	}
	user.Role = roles.User
	return s.create(ctx, user)
}

// CreateStaff creates a staff account in department.
func (s *UserService) CreateStaff(ctx context.Context, username, name, department string, salt, verifier []byte) (*models.StaffMember, error) {
	user, err := s.newUser(username, name, salt, verifier)
	if err != nil {
		return nil, err
	}
	if !civic.ValidDepartment(department) {
		return nil, fmt.Errorf("%w: unknown department %q", common.ErrValidation, department)
	}
	user.Role = roles.Staff
	user.Department = department

	u, err := s.create(ctx, user)
	if err != nil {
		return nil, err
	}
	return &models.StaffMember{User: *u}, nil
}

func (s *UserService) newUser(username, name string, salt, verifier []byte) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	name = strings.TrimSpace(name)
	switch {
	case !usernameRe.MatchString(username):
		return nil, fmt.Errorf("%w: username must be 3-32 characters of a-z, 0-9, '.', '_' or '-'", common.ErrValidation)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	case len(salt) == 0 || len(verifier) != sha256.Size:
		return nil, fmt.Errorf("%w: malformed credentials", common.ErrValidation)
	}
	return &models.User{UserName: username, Name: name, Salt: salt, Verifier: verifier}, nil
}

func (s *UserService) create(ctx context.Context, user *models.User) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.logger.Info(ctx, "account created", "user", u.ID, "role", u.Role.String())
	return u, nil
}

// GetSalt returns the user's stored salt. For unknown users it returns a
// salt derived from the username, stable across calls, so the answer does
// not reveal whether the account exists.
func (s *UserService) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, strings.ToLower(strings.TrimSpace(userName)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.decoySalt(userName), nil
		}
		return nil, common.ErrorInternal
	}
	return user.Salt, nil
}

// Login verifies the provided verifierCandidate against the stored verifier
// and, on success, returns a new TokenPair and the account.
func (s *UserService) Login(ctx context.Context, userName string, verifierCandidate []byte) (*TokenPair, *models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, strings.ToLower(strings.TrimSpace(userName)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}
	if !s.checkVerifier(user.Verifier, verifierCandidate) {
		return nil, nil, common.ErrorUnauthorized
	}
	if !user.Role.Valid() {
		s.logger.Warn(ctx, "login refused, account has no valid role", "user", user.ID)
		return nil, nil, common.ErrorForbidden
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. The role is read again from the account, so
// role changes apply from the next rotation. Expired tokens yield
// ErrRefreshTokenExpired, unknown ones ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Me returns the account of userID.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// ListStaff returns staff accounts with their open ticket counts.
func (s *UserService) ListStaff(ctx context.Context) ([]models.StaffMember, error) {
	return s.repomanager.Users(s.db).ListStaff(ctx)
}

// EnsureAdmin creates an admin account with password when username is free.
// It reports whether an account was created. An empty password disables it.
func (s *UserService) EnsureAdmin(ctx context.Context, username, name, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByLogin(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("error looking up admin: %w", err)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)
	salt, verifier := cryptox.NewCredentials(pw)

	user, err := s.newUser(username, name, salt, verifier)
	if err != nil {
		return false, err
	}
	user.Role = roles.Admin

	if _, err := s.create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeExpiredTokens removes refresh tokens that are past their expiry.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error purging refresh tokens: %w", err)
	}
	s.metrics.TokensPurged(n)
	if n > 0 {
		s.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	}
	return n, nil
}

// --- helpers below ---

func (s *UserService) decoySalt(userName string) []byte {
	mac := hmac.New(sha256.New, s.jwtSecret)
	mac.Write([]byte("salt:" + userName))
	return mac.Sum(nil)[:cryptox.SaltSize]
}

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) checkVerifier(verifier []byte, candidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, candidate) == 1
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
