package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"slothold/models"

	"github.com/hibiken/asynq"
)

// AsynqDispatcher queues holder notifications onto the async worker rather
// than delivering them inline; the reservation path never waits on a push
// provider.
type AsynqDispatcher struct {
	Client *asynq.Client
}

func NewAsynqDispatcher(redisOpts asynq.RedisClientOpt) *AsynqDispatcher {
	return &AsynqDispatcher{Client: asynq.NewClient(redisOpts)}
}

func (d *AsynqDispatcher) Notify(ctx context.Context, holder models.HolderIdentity, outcome, reason string, metadata map[string]string) error {
	payload, err := json.Marshal(models.HolderNotifyPayload{
		Holder:   holder,
		Outcome:  outcome,
		Reason:   reason,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notify payload: %w", err)
	}

	task := asynq.NewTask(TypeHolderNotify, payload)
	if _, err := d.Client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)); err != nil {
		return fmt.Errorf("failed to enqueue holder notification: %w", err)
	}
	return nil
}

// Close releases the underlying asynq client connection.
func (d *AsynqDispatcher) Close() error {
	return d.Client.Close()
}
