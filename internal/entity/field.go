package entity

// FieldType is the closed set of primitive types a requested field may have.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
)

func (t FieldType) Valid() bool {
	return t == FieldText || t == FieldNumber
}

// FieldDefinition is one (name, type) pair of a requested output schema.
// Order is significant for cache identity.
type FieldDefinition struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}
