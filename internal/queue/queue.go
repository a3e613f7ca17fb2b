package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/rs/zerolog/log"
)

// TaskID identifies a publish task so the same post is never enqueued twice
// for the same attempt.
func TaskID(task publish.PublishTask) string {
	if task.Attempt > 0 {
		return fmt.Sprintf("publish:%d:%d", task.PostID, task.Attempt)
	}
	return fmt.Sprintf("publish:%d", task.PostID)
}

// Enqueue never lets asynq retry: a failed publish is recorded on the post
// and retried explicitly.
func (c *Client) Enqueue(ctx context.Context, task publish.PublishTask) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: task.PostID, Attempt: task.Attempt})
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.MaxRetry(0),
		asynq.TaskID(TaskID(task)),
	}
	if task.ProcessAt != nil {
		opts = append(opts, asynq.ProcessAt(*task.ProcessAt))
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypePublishPost, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Info().Int64("post_id", task.PostID).Str("task_id", TaskID(task)).Msg("publish task already enqueued")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().Int64("post_id", task.PostID).Str("task_id", info.ID).Str("queue", info.Queue).Msg("publish task enqueued")
	return nil
}
