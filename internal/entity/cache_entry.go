package entity

import (
	"encoding/json"
	"time"
)

// CacheEntry is one persisted model response, keyed by the canonical
// digest of (prompt, field schema, image hash). Entries are global:
// identical logical queries from different users share one row.
type CacheEntry struct {
	CacheKey string `json:"cache_key"`

	Prompt     string  `json:"prompt"`
	SchemaJSON string  `json:"schema_json"`
	ImageHash  *string `json:"image_hash,omitempty"`

	Result json.RawMessage `json:"result"`

	CreatedAt time.Time `json:"created_at"`
}
