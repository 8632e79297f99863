package dto

import (
	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/entity"
)

// Query is a structured-query request after boundary validation.
type Query struct {
	Prompt  string
	Fields  []entity.FieldDefinition
	ImageID *uuid.UUID
}
