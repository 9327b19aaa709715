// Package services contains server-side business logic: credentials and
// sessions (UserService), the hierarchical data store (StoreService) and
// its backups (BackupService).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/dmitrijs2005/workoutlog/internal/cryptox"
	"github.com/dmitrijs2005/workoutlog/internal/dbx"
	"github.com/dmitrijs2005/workoutlog/internal/logging"
	"github.com/dmitrijs2005/workoutlog/internal/server/auth"
	"github.com/dmitrijs2005/workoutlog/internal/server/config"
	"github.com/dmitrijs2005/workoutlog/internal/server/models"
	"github.com/dmitrijs2005/workoutlog/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Grant is the result of a successful sign-up or sign-in.
type Grant struct {
	SubjectID   string
	AccessToken string
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	SubjectID string
	SessionID string
}

// UserService provides authentication-related operations:
// - Register: create credentials and open a session
// - Login: verify credentials and open a session
// - Logout: revoke a session
// - Authenticate: resolve an access token to a live session
type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	logger          logging.Logger
	jwtSecret       []byte
	sessionTTL      time.Duration
	minSecretLength int
	now             func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:              db,
		repomanager:     m,
		logger:          logger.With("module", "user_service"),
		jwtSecret:       []byte(cfg.SecretKey),
		sessionTTL:      cfg.SessionTTL,
		minSecretLength: cfg.MinSecretLength,
		now:             time.Now,
	}
}

// Register creates a credential for identifier and signs it in.
func (s *UserService) Register(ctx context.Context, identifier, secret string) (*Grant, error) {
	identifier = strings.TrimSpace(identifier)
	if !validIdentifier(identifier) {
		return nil, common.ErrInvalidIdentifier
	}
	if len(secret) < s.minSecretLength {
		return nil, common.ErrWeakSecret
	}

	salt, hash := cryptox.HashSecret(secret)
	user := &models.User{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Salt:       salt,
		SecretHash: hash,
		CreatedAt:  s.now(),
	}

	var grant *Grant
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		var err error
		grant, err = s.openSession(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentifier) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "subject", user.ID)
	return grant, nil
}

// Login verifies identifier and secret and opens a new session.
func (s *UserService) Login(ctx context.Context, identifier, secret string) (*Grant, error) {
	user, err := s.repomanager.Users(s.db).GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !cryptox.VerifySecret(secret, user.Salt, user.SecretHash) {
		return nil, common.ErrWrongSecret
	}

	return s.openSession(ctx, s.db, user.ID)
}

// Lookup returns the user registered under identifier.
func (s *UserService) Lookup(ctx context.Context, identifier string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByIdentifier(ctx, strings.TrimSpace(identifier))
}

// Logout revokes the session. Revoking an unknown session is not an error.
func (s *UserService) Logout(ctx context.Context, sessionID string) error {
	return s.repomanager.Sessions(s.db).Delete(ctx, sessionID)
}

// Authenticate resolves token to its principal. The token must be valid
// and its session row must still exist and be unexpired.
func (s *UserService) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return Principal{}, err
	}

	sess, err := s.repomanager.Sessions(s.db).Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return Principal{}, fmt.Errorf("%w: session revoked", common.ErrUnauthorized)
		}
		return Principal{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if sess.UserID != claims.Subject || !sess.ExpiresAt.After(s.now()) {
		return Principal{}, fmt.Errorf("%w: session expired", common.ErrUnauthorized)
	}

	return Principal{SubjectID: sess.UserID, SessionID: sess.ID}, nil
}

// PurgeExpired deletes expired session rows.
func (s *UserService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.db).DeleteExpired(ctx, s.now())
}

func (s *UserService) openSession(ctx context.Context, db dbx.DBTX, userID string) (*Grant, error) {
	now := s.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.repomanager.Sessions(db).Create(ctx, sess); err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(userID, sess.ID, s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &Grant{SubjectID: userID, AccessToken: token}, nil
}

func validIdentifier(identifier string) bool {
	addr, err := mail.ParseAddress(identifier)
	return err == nil && addr.Address == identifier
}
