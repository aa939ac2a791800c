package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RefreshEvent announces that a source was reloaded from its origin
type RefreshEvent struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Origin      string    `json:"origin"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshEvent creates an event for source raised by origin
func NewRefreshEvent(source, origin string) *RefreshEvent {
	return &RefreshEvent{
		ID:          uuid.New().String(),
		Source:      source,
		Origin:      origin,
		RequestedAt: time.Now().UTC(),
	}
}

// EncodeRefreshEvent encodes a RefreshEvent to JSON
func EncodeRefreshEvent(ev *RefreshEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeRefreshEvent decodes JSON to RefreshEvent
func DecodeRefreshEvent(data []byte) (*RefreshEvent, error) {
	var ev RefreshEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
