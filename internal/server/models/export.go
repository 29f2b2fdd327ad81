package models

import "time"

// Export records one diary export uploaded to object storage.
type Export struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	StorageKey string    `json:"key"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
	// URL is a short-lived presigned download link. It is not persisted.
	URL string `json:"url,omitempty"`
}
