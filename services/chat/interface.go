// Package chat is the conversation message feed: an ordered, append-only
// log per conversation with push subscriptions.
package chat

import (
	"context"
	"sort"

	"rentathing/models"
)

// Feed is the append-only, ordered message log of each conversation.
type Feed interface {
	Append(ctx context.Context, conversationID string, m models.Message) (models.Message, error)
	List(ctx context.Context, conversationID string) ([]models.Message, error)
	// Subscribe invokes onChange with the full ordered history whenever it
	// changes, starting with the current history. Callers must Unsubscribe.
	Subscribe(ctx context.Context, conversationID string, onChange func([]models.Message)) (Subscription, error)
}

// Conversations stores conversation metadata.
type Conversations interface {
	CreateOrGet(ctx context.Context, listingID, listingTitle string, renter, rentee models.Party) (*models.Conversation, error)
	Get(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	Touch(ctx context.Context, conversationID, lastMessage string) error
}

// Store is a full chat backend.
type Store interface {
	Feed
	Conversations
}

// Subscription is a live listener handle.
type Subscription interface {
	Unsubscribe()
}

// SortMessages orders by creation time, breaking ties by id.
func SortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
