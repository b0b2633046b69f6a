package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	LinkTTL         = 5 * time.Minute
	linkTokenBytes  = 32
	linkPath        = "/connect-device"
	linkDeviceName  = "Linked device"
	LinkWaiting     = "waiting"
	LinkNeedsReview = "needsApproval"
)

// LinkInvite is what the owner shares with the new device.
type LinkInvite struct {
	URL       string
	LinkID    string
	Token     string
	ExpiresAt time.Time
}

// LinkInfo is shown to the joining device.
type LinkInfo struct {
	Username       string
	Challenge      string
	Salt           string
	RelyingPartyID string
}

type CompleteLinkRequest struct {
	Token      string
	NewPubKey  string
	Signature  string
	Challenge  string
	DeviceName string
}

// LinkStatus reports LinkWaiting until a pending device shows up, then
// LinkNeedsReview with that device.
type LinkStatus struct {
	Status string
	Device *models.Device
}

// LinkService drives NO_LINK -> LINK_ISSUED -> CHALLENGE_ISSUED ->
// DEVICE_PENDING -> DEVICE_ACTIVE.
type LinkService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	verifier       cryptox.Verifier
	rpID           string
	frontendOrigin string
	metrics        metrics.Recorder
	logger         logging.Logger
	now            func() time.Time
}

func NewLinkService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	verifier cryptox.Verifier,
	rpID, frontendOrigin string,
	rec metrics.Recorder,
	logger logging.Logger,
) *LinkService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &LinkService{
		db:             db,
		repomanager:    m,
		verifier:       verifier,
		rpID:           rpID,
		frontendOrigin: strings.TrimRight(frontendOrigin, "/"),
		metrics:        rec,
		logger:         logger.With("module", "link_service"),
		now:            time.Now,
	}
}

// InitLink creates a link for the authenticated owner.
func (s *LinkService) InitLink(ctx context.Context, ownerUserID string) (*LinkInvite, error) {
	token, err := common.RandomHex(linkTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	now := s.now()
	link := &models.LinkToken{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    ownerUserID,
		ExpiresAt: now.Add(LinkTTL),
		CreatedAt: now,
	}
	if err := s.repomanager.LinkTokens(s.db).Create(ctx, link); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	s.metrics.LinkEvent("issued")

	return &LinkInvite{
		URL:       s.frontendOrigin + linkPath + "?token=" + url.QueryEscape(token),
		LinkID:    link.ID,
		Token:     token,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// GetLinkInfo stores a fresh challenge on the link and returns it with
// the owner's details. Calling it again replaces the challenge, which
// invalidates any earlier attempt in flight.
func (s *LinkService) GetLinkInfo(ctx context.Context, token string) (*LinkInfo, error) {
	links := s.repomanager.LinkTokens(s.db)

	link, err := links.GetByToken(ctx, token)
	if err != nil {
		return nil, s.linkLookupErr(err)
	}
	if link.Expired(s.now()) {
		return nil, common.ErrGone
	}

	owner, err := s.repomanager.Users(s.db).GetByID(ctx, link.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrGone
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	challenge, err := common.RandomHex(challengeBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := links.SetChallenge(ctx, link.ID, challenge); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrGone
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	s.metrics.LinkEvent("challenge_issued")

	return &LinkInfo{
		Username:       owner.UserName,
		Challenge:      challenge,
		Salt:           owner.Salt,
		RelyingPartyID: s.rpID,
	}, nil
}

// CompleteLink verifies the new device's signature over
// challenge+token and registers it as PENDING. The challenge is consumed
// in the same transaction, so a link yields at most one device. The link
// itself is kept so the owner can poll its status.
func (s *LinkService) CompleteLink(ctx context.Context, req CompleteLinkRequest) (*models.Device, error) {
	link, err := s.repomanager.LinkTokens(s.db).GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrGone
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if link.Expired(s.now()) || link.Challenge == "" {
		return nil, common.ErrGone
	}
	if req.Challenge != link.Challenge {
		return nil, common.ErrChallengeMismatch
	}

	if !s.verifier.Verify(req.NewPubKey, cryptox.LinkMessage(link.Challenge, link.Token), req.Signature) {
		s.logger.Warn(ctx, "link signature rejected", "user_id", link.UserID, "link_id", link.ID)
		s.metrics.LinkEvent("rejected")
		return nil, common.ErrInvalidSignature
	}

	name := req.DeviceName
	if name == "" {
		name = linkDeviceName
	}
	device := &models.Device{
		ID:        uuid.NewString(),
		UserID:    link.UserID,
		PubKey:    cryptox.NormalizePubKey(req.NewPubKey),
		Name:      name,
		Status:    models.DeviceStatusPending,
		CreatedAt: s.now(),
	}

	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repomanager.LinkTokens(tx).Complete(ctx, link.ID, link.Challenge)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrGone
		}
		return s.repomanager.Devices(tx).Create(ctx, device)
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrGone):
			return nil, common.ErrGone
		case errors.Is(err, common.ErrConflict):
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	s.metrics.LinkEvent("device_pending")

	return device, nil
}

// CheckLinkStatus is polled by the owner. Links of other users look
// like missing links.
func (s *LinkService) CheckLinkStatus(ctx context.Context, linkID, callerUserID string) (*LinkStatus, error) {
	link, err := s.repomanager.LinkTokens(s.db).GetByID(ctx, linkID)
	if err != nil {
		return nil, s.linkLookupErr(err)
	}
	if link.UserID != callerUserID {
		return nil, common.ErrorNotFound
	}
	if link.Expired(s.now()) {
		return nil, common.ErrGone
	}

	device, err := s.repomanager.Devices(s.db).LatestPendingAfter(ctx, callerUserID, link.CreatedAt)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &LinkStatus{Status: LinkWaiting}, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return &LinkStatus{Status: LinkNeedsReview, Device: device}, nil
}

// ApproveDevice activates a PENDING device of the caller and deletes
// the link, which must exist and belong to the caller. Only one of
// several concurrent approvals wins; the rest get common.ErrorNotFound.
func (s *LinkService) ApproveDevice(ctx context.Context, deviceID, linkID, callerUserID string) error {
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		links := s.repomanager.LinkTokens(tx)

		link, err := links.GetByID(ctx, linkID)
		if err != nil {
			return err
		}
		if link.UserID != callerUserID {
			return common.ErrorNotFound
		}

		ok, err := s.repomanager.Devices(tx).Activate(ctx, deviceID, callerUserID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}

		ok, err = links.Delete(ctx, linkID, callerUserID)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.metrics.LinkEvent("approved")
	s.logger.Info(ctx, "device approved", "user_id", callerUserID, "device_id", deviceID, "link_id", linkID)
	return nil
}

func (s *LinkService) linkLookupErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("%w: %v", common.ErrStorage, err)
}
