package notifier

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is the envelope every transport publishes.
type Message struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	UserID     string `json:"user_id"`
	OccurredAt string `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

func encode(userID uuid.UUID, event string, payload any) ([]byte, error) {
	return json.Marshal(Message{
		Event:      event,
		Version:    1,
		UserID:     userID.String(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Payload:    payload,
	})
}
