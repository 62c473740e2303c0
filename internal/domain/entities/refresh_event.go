package entities

import (
	"time"

	"github.com/google/uuid"
)

// DataRefreshEvent announces that one or more source documents were
// rewritten by a scraping job and the in-memory snapshot should be rebuilt.
type DataRefreshEvent struct {
	ID        string    `json:"id"`
	Documents []string  `json:"documents"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDataRefreshEvent creates a refresh event for the given documents
func NewDataRefreshEvent(origin string, documents ...string) *DataRefreshEvent {
	return &DataRefreshEvent{
		ID:        uuid.NewString(),
		Documents: documents,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}
