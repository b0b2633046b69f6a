package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// AccountService serves the authenticated "me" surface.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager) *AccountService {
	return &AccountService{db: db, repomanager: m}
}

func (s *AccountService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return user, nil
}

func (s *AccountService) Devices(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := s.repomanager.Devices(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if devices == nil {
		devices = []models.Device{}
	}
	return devices, nil
}

// RevokeDevice deletes one of the caller's devices. Sessions opened with
// it go with it.
func (s *AccountService) RevokeDevice(ctx context.Context, userID, deviceID string) error {
	ok, err := s.repomanager.Devices(s.db).Delete(ctx, deviceID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteAccount removes the user with its devices, sessions and links.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	ok, err := s.repomanager.Users(s.db).Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
