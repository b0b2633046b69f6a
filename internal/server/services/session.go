package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// SessionService mints and validates device-bound sessions. The signed
// token names a session row; the row decides whether the session lives.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	secret      []byte
	lifetime    time.Duration
	now         func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, secret string, lifetime time.Duration) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		secret:      []byte(secret),
		lifetime:    lifetime,
		now:         time.Now,
	}
}

// Lifetime is the session lifetime floored to whole seconds, which is
// also what the cookie Max-Age and the token exp use.
func (s *SessionService) Lifetime() time.Duration {
	return s.lifetime.Truncate(time.Second)
}

// CreateSession persists a session and returns its signed token.
// ip and userAgent may be empty.
func (s *SessionService) CreateSession(ctx context.Context, userID, deviceID, ip, userAgent string) (string, *models.Session, error) {
	if s.Lifetime() <= 0 {
		return "", nil, fmt.Errorf("%w: session lifetime must be at least one second", common.ErrConfig)
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		DeviceID:  deviceID,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.lifetime),
		CreatedAt: now,
	}

	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	token, err := auth.GenerateToken(session.ID, userID, s.secret, now, s.Lifetime())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return token, session, nil
}

// VerifySession checks the token, then the row it references. Every
// failure is common.ErrorUnauthorized except storage outages.
func (s *SessionService) VerifySession(ctx context.Context, token string) (*models.Session, error) {
	now := s.now()

	claims, err := auth.ParseToken(token, s.secret, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}

	session, err := s.repomanager.Sessions(s.db).Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: session revoked", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	if session.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: session owner mismatch", common.ErrorUnauthorized)
	}
	if session.Expired(now) {
		return nil, fmt.Errorf("%w: session expired", common.ErrorUnauthorized)
	}

	return session, nil
}

// CheckBinding compares the request's IP and user agent with what the
// session recorded at creation. Values not recorded are not compared.
// This is a hijacking heuristic: mobile networks and browser updates
// change both legitimately.
func CheckBinding(session *models.Session, ip, userAgent string) error {
	if session.IPAddress != "" && session.IPAddress != ip {
		return fmt.Errorf("%w: ip address changed", common.ErrForbidden)
	}
	if session.UserAgent != "" && session.UserAgent != userAgent {
		return fmt.Errorf("%w: user agent changed", common.ErrForbidden)
	}
	return nil
}

// RevokeSession deletes the session row if it belongs to userID.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID, userID string) error {
	if _, err := s.repomanager.Sessions(s.db).Delete(ctx, sessionID, userID); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return nil
}
