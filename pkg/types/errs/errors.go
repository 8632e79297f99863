package errs

import "errors"

var (
	// ErrRecordNotFound - the requested row does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrForbidden - the row exists but belongs to another owner.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyExists - an insert lost a race against a uniqueness
	// constraint; callers recover by re-reading, it is never surfaced.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrEncoding - input cannot be canonically encoded (unknown field
	// type, duplicate field name, malformed value).
	ErrEncoding = errors.New("encoding error")

	// ErrSchemaViolation - the model returned an object that does not
	// match the requested field schema.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrUpstream - the model call itself failed; nothing is cached.
	ErrUpstream = errors.New("upstream model error")
)
