package repository

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

const socialAccountColumns = `id, brand_id, platform, account_id, account_name, account_username,
	access_token, refresh_token, token_expires_at, account_status, created_at, updated_at`

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetActiveByBrandAndPlatform(ctx context.Context, brandID int64, platform models.Platform) (*models.SocialAccount, error)
	ListByBrand(ctx context.Context, brandID int64) ([]*models.SocialAccount, error)
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func scanSocialAccount(row rowScanner) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.BrandID, &sa.Platform, &sa.AccountID, &sa.AccountName,
		&sa.AccountUsername, &sa.AccessToken, &sa.RefreshToken, &sa.TokenExpiresAt,
		&sa.AccountStatus, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (
			brand_id,
			platform,
			account_id,
			account_name,
			account_username,
			access_token,
			refresh_token,
			token_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		sa.BrandID,
		sa.Platform,
		sa.AccountID,
		sa.AccountName,
		sa.AccountUsername,
		sa.AccessToken,
		sa.RefreshToken,
		sa.TokenExpiresAt,
	).Scan(&id)
	if err != nil {
		log.Error().Err(err).Int64("brand_id", sa.BrandID).Msg("failed to create social account")
		return 0, err
	}
	sa.ID = id
	return id, nil
}

// GetActiveByBrandAndPlatform returns the most recently connected active
// account, or nil when the brand has none on platform.
func (r *socialAccountRepository) GetActiveByBrandAndPlatform(ctx context.Context, brandID int64, platform models.Platform) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts
		WHERE brand_id = $1 AND platform = $2 AND account_status = $3
		ORDER BY updated_at DESC LIMIT 1`
	sa, err := scanSocialAccount(r.db.QueryRowContext(ctx, query, brandID, platform, models.AccountStatusActive))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Int64("brand_id", brandID).Str("platform", string(platform)).Msg("failed to load social account")
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) ListByBrand(ctx context.Context, brandID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE brand_id = $1 ORDER BY platform, id`
	rows, err := r.db.QueryContext(ctx, query, brandID)
	if err != nil {
		log.Error().Err(err).Int64("brand_id", brandID).Msg("failed to list social accounts")
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanSocialAccount(rows)
		if err != nil {
			log.Error().Err(err).Int64("brand_id", brandID).Msg("failed to scan social account")
			return nil, err
		}
		accounts = append(accounts, sa)
	}
	return accounts, rows.Err()
}
