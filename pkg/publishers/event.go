package publishers

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
)

// Event represents the change notification published downstream.
type Event struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Link        string    `json:"link"`
	Previous    string    `json:"previous,omitempty"`
	Current     string    `json:"current"`
	FirstSeen   bool      `json:"first_seen"`
	Summary     string    `json:"summary"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Subscribers []int64   `json:"subscribers"`
	DetectedAt  time.Time `json:"detected_at"`
}

// NewEvent constructs an Event for a changed link and its subscribers.
func NewEvent(change domain.ChangeEvent, subscribers []int64) Event {
	detected := change.CheckedAt
	if detected.IsZero() {
		detected = time.Now().UTC()
	}
	return Event{
		ID:          uuid.NewString(),
		Provider:    change.Provider,
		Link:        change.Link,
		Previous:    change.PreviousValue(),
		Current:     change.Current,
		FirstSeen:   change.Previous == nil,
		Summary:     change.Summary,
		Subscribers: append([]int64(nil), subscribers...),
		DetectedAt:  detected,
	}
}

// Encode marshals the event to JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
