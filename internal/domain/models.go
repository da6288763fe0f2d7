package domain

import "time"

// Domain contains core models shared by the poller, clients and publishers.

// TrackedLink is a normalized link together with the subscribers following it.
type TrackedLink struct {
	URL         string
	Subscribers []int64
}

// EmptyFingerprint is recorded when a resource has no items at all. It is
// distinct from an absent record, which means the link was never observed.
const EmptyFingerprint = "empty"

// ChangeEvent is the outcome of a single poll cycle for one link.
type ChangeEvent struct {
	Link     string
	Provider string
	// Previous is nil when the link had never been observed.
	Previous  *string
	Current   string
	Changed   bool
	Summary   string
	Snapshot  any
	CheckedAt time.Time
}

// PreviousValue returns the previous fingerprint or "" when absent.
func (e ChangeEvent) PreviousValue() string {
	if e.Previous == nil {
		return ""
	}
	return *e.Previous
}
