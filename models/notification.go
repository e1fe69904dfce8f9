package models

// Notification is a push sent to the participants of a conversation.
type Notification struct {
	ConversationID string            `json:"conversationId"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data"`
}
