package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentloop/internal/models"
	"github.com/rs/zerolog/log"
)

// HandlePublishPostTask publishes the task's post. Posts that were removed or
// already left a publishable state are skipped; the outcome of a real attempt
// lives on the post, so only infrastructure errors reach asynq.
func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode publish payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := w.publisher.PublishNow(ctx, payload.PostID)
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrConflict):
		log.Info().Err(err).Int64("post_id", payload.PostID).Msg("skipping publish task")
		return nil
	case err != nil:
		log.Error().Err(err).Int64("post_id", payload.PostID).Msg("publish task failed")
		return err
	}

	log.Info().Int64("post_id", post.ID).Str("status", string(post.Status)).Msg("publish task done")
	return nil
}
