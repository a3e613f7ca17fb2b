package job

import (
	"context"

	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/rs/zerolog/log"
)

type RetrySweeper interface {
	RetrySweep(ctx context.Context, policy publish.RetryPolicy) (int, error)
}

// RetrySweepJob periodically re-queues failed posts the policy allows. With
// the manual policy it does nothing.
type RetrySweepJob struct {
	sweeper RetrySweeper
	policy  publish.RetryPolicy
}

func NewRetrySweepJob(sweeper RetrySweeper, policy publish.RetryPolicy) *RetrySweepJob {
	return &RetrySweepJob{sweeper: sweeper, policy: policy}
}

func (j *RetrySweepJob) Enabled() bool {
	_, manual := j.policy.(publish.ManualOnly)
	return j.policy != nil && !manual
}

func (j *RetrySweepJob) Run(ctx context.Context) int {
	if !j.Enabled() {
		return 0
	}
	n, err := j.sweeper.RetrySweep(ctx, j.policy)
	if err != nil {
		log.Error().Err(err).Msg("retry sweep failed")
	}
	if n > 0 {
		log.Info().Int("requeued", n).Msg("retry sweep re-queued failed posts")
	}
	return n
}
