package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/services/chat"
	"rentathing/services/tasks"
)

func redeliveryTask(t *testing.T, convID string, m models.Message) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewRedeliveryTask(tasks.RedeliveryPayload{ConversationID: convID, Message: m})
	require.NoError(t, err)
	return task
}

func TestHandleRedeliveryAppendsOnce(t *testing.T) {
	store := chat.NewMemoryStore()
	h := HandleRedelivery(store, zap.NewNop())
	msg := models.Message{Sender: "rentee@example.com", Kind: models.KindInfo, Event: models.EventCancelled, BookingID: "bk-1", Text: "❌ Booking request has been cancelled."}

	require.NoError(t, h(context.Background(), redeliveryTask(t, "c-1", msg)))
	require.NoError(t, h(context.Background(), redeliveryTask(t, "c-1", msg)))

	msgs, err := store.List(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.EventCancelled, msgs[0].Event)
}

func TestHandleRedeliverySkipsRetryOnBadPayload(t *testing.T) {
	h := HandleRedelivery(chat.NewMemoryStore(), zap.NewNop())
	err := h(context.Background(), asynq.NewTask(tasks.TypeRedeliverMessage, []byte("not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestPayloadRoundTripKeepsStructuredTerms(t *testing.T) {
	start, end, price := models.MustParseDate("2024-07-01"), models.MustParseDate("2024-07-03"), 20.0
	task := redeliveryTask(t, "c-1", models.Message{Kind: models.KindOffer, BookingID: "bk-1", StartDate: &start, EndDate: &end, PricePerDay: &price})

	var p tasks.RedeliveryPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	require.NotNil(t, p.Message.StartDate)
	assert.Equal(t, start, *p.Message.StartDate)
	assert.Equal(t, 20.0, *p.Message.PricePerDay)
}
