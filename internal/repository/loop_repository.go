package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrStaleLoop means the loop row changed between read and write.
var ErrStaleLoop = fmt.Errorf("%w: loop was modified concurrently", models.ErrConflict)

const loopColumns = `id, brand_id, name, active, platforms, current_position,
	total_cycles_completed, last_fired_at, version, created_at, updated_at`

type LoopRepository interface {
	Create(ctx context.Context, tx *sql.Tx, loop *models.Loop) (int64, error)
	GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Loop, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Loop, error)
	ListByBrand(ctx context.Context, brandID int64) ([]*models.Loop, error)
	ListActive(ctx context.Context) ([]*models.Loop, error)
	Update(ctx context.Context, tx *sql.Tx, loop *models.Loop) error
	UpdateRotation(ctx context.Context, tx *sql.Tx, loop *models.Loop) error
	Delete(ctx context.Context, id int64) error
}

type loopRepository struct {
	db *sql.DB
}

func NewLoopRepository(db *sql.DB) LoopRepository {
	return &loopRepository{db: db}
}

func scanLoop(row rowScanner) (*models.Loop, error) {
	var l models.Loop
	var platforms pq.StringArray
	err := row.Scan(&l.ID, &l.BrandID, &l.Name, &l.Active, &platforms, &l.CurrentPosition,
		&l.TotalCyclesCompleted, &l.LastFiredAt, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Platforms = models.ParsePlatforms(platforms)
	return &l, nil
}

func (r *loopRepository) Create(ctx context.Context, tx *sql.Tx, loop *models.Loop) (int64, error) {
	query := `
		INSERT INTO loops (brand_id, name, active, platforms)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := conn(r.db, tx).QueryRowContext(ctx, query,
		loop.BrandID, loop.Name, loop.Active, pq.Array(models.PlatformStrings(loop.Platforms)),
	).Scan(&loop.ID, &loop.CreatedAt, &loop.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Int64("brand_id", loop.BrandID).Msg("failed to create loop")
		return 0, err
	}
	return loop.ID, nil
}

func (r *loopRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Loop, error) {
	query := `SELECT ` + loopColumns + ` FROM loops WHERE id = $1`
	return r.getOne(ctx, conn(r.db, tx), query, id)
}

// GetForUpdate locks the loop row until tx ends.
func (r *loopRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Loop, error) {
	if tx == nil {
		return nil, errors.New("GetForUpdate requires a transaction")
	}
	query := `SELECT ` + loopColumns + ` FROM loops WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, tx, query, id)
}

func (r *loopRepository) getOne(ctx context.Context, q queryer, query string, id int64) (*models.Loop, error) {
	loop, err := scanLoop(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Int64("loop_id", id).Msg("failed to load loop")
		return nil, err
	}
	return loop, nil
}

func (r *loopRepository) ListByBrand(ctx context.Context, brandID int64) ([]*models.Loop, error) {
	query := `SELECT ` + loopColumns + ` FROM loops WHERE brand_id = $1 ORDER BY id`
	return r.list(ctx, query, brandID)
}

func (r *loopRepository) ListActive(ctx context.Context) ([]*models.Loop, error) {
	query := `SELECT ` + loopColumns + ` FROM loops WHERE active ORDER BY id`
	return r.list(ctx, query)
}

func (r *loopRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Loop, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("failed to list loops")
		return nil, err
	}
	defer rows.Close()

	var loops []*models.Loop
	for rows.Next() {
		loop, err := scanLoop(rows)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan loop")
			return nil, err
		}
		loops = append(loops, loop)
	}
	return loops, rows.Err()
}

func (r *loopRepository) Update(ctx context.Context, tx *sql.Tx, loop *models.Loop) error {
	query := `
		UPDATE loops
		SET name = $1,
			active = $2,
			platforms = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query,
		loop.Name, loop.Active, pq.Array(models.PlatformStrings(loop.Platforms)), time.Now(), loop.ID)
	if err != nil {
		log.Error().Err(err).Int64("loop_id", loop.ID).Msg("failed to update loop")
		return err
	}
	return nil
}

// UpdateRotation writes the cursor fields if the row still carries
// loop.Version, and bumps the version on success.
func (r *loopRepository) UpdateRotation(ctx context.Context, tx *sql.Tx, loop *models.Loop) error {
	query := `
		UPDATE loops
		SET current_position = $1,
			total_cycles_completed = $2,
			last_fired_at = $3,
			version = version + 1,
			updated_at = $4
		WHERE id = $5 AND version = $6
	`
	res, err := conn(r.db, tx).ExecContext(ctx, query,
		loop.CurrentPosition, loop.TotalCyclesCompleted, loop.LastFiredAt, time.Now(), loop.ID, loop.Version)
	if err != nil {
		log.Error().Err(err).Int64("loop_id", loop.ID).Msg("failed to update loop rotation")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleLoop
	}
	loop.Version++
	return nil
}

func (r *loopRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM loops WHERE id = $1`, id)
	if err != nil {
		log.Error().Err(err).Int64("loop_id", id).Msg("failed to delete loop")
		return err
	}
	return nil
}
