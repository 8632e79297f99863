package entity

import (
	"time"

	"github.com/google/uuid"
)

// CostEvent is an outbox row recording one billable model invocation.
// Rows are written next to the query that spent the money and relayed to
// Kafka asynchronously.
type CostEvent struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	Payload []byte `json:"payload"`

	Status     Status     `json:"status"` // pending, processing, processed, failed
	CreatedAt  time.Time  `json:"created_at"`
	RelayedAt  *time.Time `json:"relayed_at,omitempty"`
	RetryCount int        `json:"retry_count"`
}

// CostEventPayload is the wire shape of a cost event.
type CostEventPayload struct {
	UserID     uuid.UUID `json:"user_id"`
	Model      string    `json:"model"`
	PromptLen  int       `json:"prompt_len"`
	WithImage  bool      `json:"with_image"`
	Succeeded  bool      `json:"succeeded"`
	OccurredAt time.Time `json:"occurred_at"`
}
