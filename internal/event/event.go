package event

import "encoding/json"

// Envelope is the wire shape pushed over the presence channel.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Envelope types.
const (
	TypeNewMessage        = "new_message"
	TypeMessageDeleted    = "message_deleted"
	TypeCallInitiated     = "call_initiated"
	TypeCallStatusUpdated = "call_status_updated"
)

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DeletedRef is the minimal payload for message_deleted.
type DeletedRef struct {
	ID             int64 `json:"id"`
	ConversationID int64 `json:"conversationId"`
}
