package entity

import (
	"time"

	"github.com/google/uuid"
)

// ModelUsage is the per-user spend aggregate maintained by the cost
// event consumer.
type ModelUsage struct {
	UserID      uuid.UUID `json:"user_id"`
	Calls       int64     `json:"calls"`
	FailedCalls int64     `json:"failed_calls"`
	UpdatedAt   time.Time `json:"updated_at"`
}
