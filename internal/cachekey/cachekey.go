// Package cachekey derives the cache identity of a structured query.
// The key is the sole identity of a cache entry: it fully determines
// cache-hit eligibility.
package cachekey

import (
	"encoding/binary"
	"fmt"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/hasher"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

const (
	imageAbsent  = 0x00
	imagePresent = 0x01
)

// Build returns the hex digest identifying (prompt, fields, imageHash).
//
// The prompt is taken verbatim: whitespace differences produce different
// keys. Fields are encoded in the order given, as (name, type) pairs.
// The image hash sits behind a presence tag, so "no image" (imageHash ==
// "") can never collide with any real digest. Every component is
// length-prefixed before hashing.
//
// Duplicate field names and types outside {text, number} are rejected
// with ErrEncoding rather than silently merged.
func Build(prompt string, fields []entity.FieldDefinition, imageHash string) (string, error) {
	seen := make(map[string]struct{}, len(fields))

	buf := appendLenPrefixed(nil, []byte(prompt))

	buf = binary.BigEndian.AppendUint64(buf, uint64(len(fields)))
	for _, f := range fields {
		if !f.Type.Valid() {
			return "", fmt.Errorf("cachekey - Build - field %q has type %q: %w", f.Name, f.Type, errs.ErrEncoding)
		}
		if _, ok := seen[f.Name]; ok {
			return "", fmt.Errorf("cachekey - Build - duplicate field %q: %w", f.Name, errs.ErrEncoding)
		}
		seen[f.Name] = struct{}{}

		buf = appendLenPrefixed(buf, []byte(f.Name))
		buf = appendLenPrefixed(buf, []byte(f.Type))
	}

	if imageHash == "" {
		buf = append(buf, imageAbsent)
	} else {
		buf = append(buf, imagePresent)
		buf = appendLenPrefixed(buf, []byte(imageHash))
	}

	return hasher.HashBytes(buf), nil
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(data)))

	return append(buf, data...)
}
