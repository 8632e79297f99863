package entity

import (
	"time"

	"github.com/google/uuid"
)

// Image is a per-owner content-addressed record of an uploaded blob.
// At most one row exists per (OwnerID, ContentHash); the bytes live in
// the blob store under ObjectKey and are immutable once written.
type Image struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type"`
	ContentHash string `json:"content_hash"`
	Size        int64  `json:"size"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`

	CreatedAt time.Time `json:"created_at"`
}
