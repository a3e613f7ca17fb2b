package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/contentloop/internal/models"
)

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID  int64 `json:"post_id"`
	Attempt int   `json:"attempt,omitempty"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues publish tasks on Redis.
type Client struct {
	client enqueuer
}

func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// PostPublisher runs the publish path for one stored post.
type PostPublisher interface {
	PublishNow(ctx context.Context, postID int64) (*models.SocialPost, error)
}

// Worker consumes publish tasks.
type Worker struct {
	publisher PostPublisher
}

func NewWorker(publisher PostPublisher) *Worker {
	return &Worker{publisher: publisher}
}

// NewServeMux routes every task type this service produces to its handler.
func NewServeMux(w *Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
	return mux
}
