package repository

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

type BrandRepository interface {
	Create(ctx context.Context, b *models.Brand) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Brand, error)
}

type brandRepository struct {
	db *sql.DB
}

func NewBrandRepository(db *sql.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) Create(ctx context.Context, b *models.Brand) (int64, error) {
	query := `
		INSERT INTO brands (name, timezone)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
	err := r.db.QueryRowContext(ctx, query, b.Name, b.Timezone).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Msg("failed to create brand")
		return 0, err
	}
	return b.ID, nil
}

func (r *brandRepository) GetByID(ctx context.Context, id int64) (*models.Brand, error) {
	query := `SELECT id, name, timezone, created_at, updated_at FROM brands WHERE id = $1`

	var b models.Brand
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Name, &b.Timezone, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Int64("brand_id", id).Msg("failed to load brand")
		return nil, err
	}
	return &b, nil
}
