package types

import "time"

// TimelineEvent is one entry in an order or line item event history.
type TimelineEvent struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
}

// Timeline is the ordered event history persisted as jsonb.
type Timeline []TimelineEvent

// Append returns the timeline with an event added at the given time.
func (t Timeline) Append(event, location string, at time.Time) Timeline {
	return append(t, TimelineEvent{Event: event, Timestamp: at, Location: location})
}
