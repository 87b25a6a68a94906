// Package analytics delivers best-effort search analytics to a sink.
// Delivery never blocks or fails the request that produced the event.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Modes an event can be reported for.
const (
	ModeText      = "text"
	ModeFilter    = "filter"
	ModeRecommend = "recommend"
)

// Event is one analytics record: the resolved query parameters of a call and
// how many items matched.
type Event struct {
	ID           string        `json:"id"`
	Mode         string        `json:"mode"`
	Params       interface{}   `json:"query_params"`
	ResultsCount int           `json:"results_count"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(mode string, params interface{}, resultsCount int, duration time.Duration) *Event {
	return &Event{
		ID:           uuid.New().String(),
		Mode:         mode,
		Params:       params,
		ResultsCount: resultsCount,
		Duration:     duration,
		CreatedAt:    time.Now().UTC(),
	}
}
