package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"rentathing/models"
)

const TypeRedeliverMessage = "chat:redeliver"

const (
	redeliveryMaxRetry = 10
	redeliveryDelay    = 5 * time.Second
)

// RedeliveryPayload is a chat message whose booking change already committed.
type RedeliveryPayload struct {
	ConversationID string         `json:"conversationId"`
	Message        models.Message `json:"message"`
}

func NewRedeliveryTask(payload RedeliveryPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRedeliverMessage, b)
	opts := []asynq.Option{
		asynq.MaxRetry(redeliveryMaxRetry),
		asynq.ProcessIn(redeliveryDelay),
		asynq.Timeout(30 * time.Second),
	}
	return task, opts, nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue schedules chat redeliveries.
type Queue struct {
	client Enqueuer
}

func NewQueue(client Enqueuer) *Queue {
	return &Queue{client: client}
}

func (q *Queue) EnqueueRedelivery(ctx context.Context, conversationID string, m models.Message) error {
	task, opts, err := NewRedeliveryTask(RedeliveryPayload{ConversationID: conversationID, Message: m})
	if err != nil {
		return fmt.Errorf("build redelivery task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue redelivery: %w", err)
	}
	return nil
}
