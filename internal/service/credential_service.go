package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/maheshrc27/contentloop/internal/repository"
	"github.com/maheshrc27/contentloop/pkg/utils"
)

// AccountLookup is the read side of the social account store.
type AccountLookup interface {
	GetActiveByBrandAndPlatform(ctx context.Context, brandID int64, platform models.Platform) (*models.SocialAccount, error)
}

// credentialService reads connections maintained by the external OAuth flow.
// It never refreshes tokens; an expired token counts as not connected.
type credentialService struct {
	accounts  AccountLookup
	secretKey []byte
	now       func() time.Time
}

var _ AccountLookup = (repository.SocialAccountRepository)(nil)

func NewCredentialService(accounts AccountLookup, secretKey string) publish.CredentialStore {
	return &credentialService{
		accounts:  accounts,
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (s *credentialService) IsConnected(ctx context.Context, brandID int64, platform models.Platform) (bool, error) {
	account, err := s.accounts.GetActiveByBrandAndPlatform(ctx, brandID, platform)
	if err != nil {
		return false, err
	}
	return s.usable(account), nil
}

func (s *credentialService) GetCredentials(ctx context.Context, brandID int64, platform models.Platform) (*publish.Credentials, error) {
	account, err := s.accounts.GetActiveByBrandAndPlatform(ctx, brandID, platform)
	if err != nil {
		return nil, err
	}
	if !s.usable(account) {
		return nil, fmt.Errorf("%w: no active %s account for brand %d", models.ErrNotConnected, platform, brandID)
	}

	token, err := utils.Decrypt(account.AccessToken, s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s access token: %w", platform, err)
	}
	creds := &publish.Credentials{AccountID: account.AccountID, AccessToken: token}
	if !account.TokenExpiresAt.IsZero() {
		expires := account.TokenExpiresAt
		creds.ExpiresAt = &expires
	}
	return creds, nil
}

func (s *credentialService) usable(account *models.SocialAccount) bool {
	if account == nil || account.AccountStatus != models.AccountStatusActive {
		return false
	}
	return account.TokenExpiresAt.IsZero() || account.TokenExpiresAt.After(s.now())
}
