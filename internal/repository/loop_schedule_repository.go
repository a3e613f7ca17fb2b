package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

type LoopScheduleRepository interface {
	ListByLoop(ctx context.Context, loopID int64) ([]models.LoopSchedule, error)
	Replace(ctx context.Context, tx *sql.Tx, loopID int64, schedules []models.LoopSchedule) ([]models.LoopSchedule, error)
}

type loopScheduleRepository struct {
	db *sql.DB
}

func NewLoopScheduleRepository(db *sql.DB) LoopScheduleRepository {
	return &loopScheduleRepository{db: db}
}

func (r *loopScheduleRepository) ListByLoop(ctx context.Context, loopID int64) ([]models.LoopSchedule, error) {
	query := `
		SELECT id, loop_id, day_of_week, time_of_day, platform, created_at
		FROM loop_schedules WHERE loop_id = $1 ORDER BY day_of_week, time_of_day, id
	`
	rows, err := r.db.QueryContext(ctx, query, loopID)
	if err != nil {
		log.Error().Err(err).Int64("loop_id", loopID).Msg("failed to list loop schedules")
		return nil, err
	}
	defer rows.Close()

	var schedules []models.LoopSchedule
	for rows.Next() {
		var s models.LoopSchedule
		var day int
		var platform sql.NullString
		if err := rows.Scan(&s.ID, &s.LoopID, &day, &s.TimeOfDay, &platform, &s.CreatedAt); err != nil {
			log.Error().Err(err).Int64("loop_id", loopID).Msg("failed to scan loop schedule")
			return nil, err
		}
		s.DayOfWeek = time.Weekday(day)
		if platform.Valid {
			p := models.Platform(platform.String)
			s.Platform = &p
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Replace deletes every schedule of the loop and inserts schedules in tx.
func (r *loopScheduleRepository) Replace(ctx context.Context, tx *sql.Tx, loopID int64, schedules []models.LoopSchedule) ([]models.LoopSchedule, error) {
	q := conn(r.db, tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM loop_schedules WHERE loop_id = $1`, loopID); err != nil {
		log.Error().Err(err).Int64("loop_id", loopID).Msg("failed to clear loop schedules")
		return nil, err
	}

	query := `
		INSERT INTO loop_schedules (loop_id, day_of_week, time_of_day, platform)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	out := make([]models.LoopSchedule, 0, len(schedules))
	for _, s := range schedules {
		s.LoopID = loopID
		var platform sql.NullString
		if s.Platform != nil {
			platform = sql.NullString{String: string(*s.Platform), Valid: true}
		}
		err := q.QueryRowContext(ctx, query, loopID, int(s.DayOfWeek), s.TimeOfDay, platform).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			log.Error().Err(err).Int64("loop_id", loopID).Msg("failed to insert loop schedule")
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
