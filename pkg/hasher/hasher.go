// Package hasher provides the content digests the service is addressed by:
// plain byte digests for uploaded blobs and canonical digests for
// structured values.
package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// HashBytes returns the lowercase hex sha256 of data. Pure and
// deterministic: the same bytes always produce the same digest.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// HashStructured canonicalizes value and hashes the canonical bytes.
// Accepted values: nil, bool, string, json numbers (float64, int, int64),
// []any and map[string]any. Map keys are encoded in sorted order, every
// element carries a type tag and a length prefix, so two distinct values
// can never canonicalize to the same byte sequence.
func HashStructured(value any) (string, error) {
	buf, err := appendCanonical(nil, value)
	if err != nil {
		return "", err
	}

	return HashBytes(buf), nil
}

const (
	tagNil    = 'z'
	tagBool   = 'b'
	tagNumber = 'n'
	tagString = 's'
	tagArray  = 'a'
	tagMap    = 'm'
)

func appendCanonical(buf []byte, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(buf, tagNil), nil
	case bool:
		buf = append(buf, tagBool)
		if v {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case string:
		return appendString(buf, tagString, v), nil
	case float64:
		return appendFloat(buf, v)
	case int:
		return appendInt(buf, int64(v))
	case int64:
		return appendInt(buf, v)
	case []any:
		buf = append(buf, tagArray)
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(v)))
		for _, item := range v {
			var err error
			buf, err = appendCanonical(buf, item)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf = append(buf, tagMap)
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(v)))
		for _, k := range keys {
			buf = appendString(buf, tagString, k)
			var err error
			buf, err = appendCanonical(buf, v[k])
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("hasher - HashStructured - unsupported type %T: %w", value, errs.ErrEncoding)
	}
}

func appendString(buf []byte, tag byte, s string) []byte {
	buf = append(buf, tag)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(s)))

	return append(buf, s...)
}

// Largest integer magnitude float64 represents exactly. Beyond it
// distinct integers would round to the same float64 bits and collide.
const maxExactInt = int64(1) << 53

func appendInt(buf []byte, v int64) ([]byte, error) {
	if v > maxExactInt || v < -maxExactInt {
		return nil, fmt.Errorf("hasher - HashStructured - integer %d exceeds exact float64 range: %w", v, errs.ErrEncoding)
	}

	return appendFloat(buf, float64(v))
}

func appendFloat(buf []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("hasher - HashStructured - non-finite number: %w", errs.ErrEncoding)
	}

	buf = append(buf, tagNumber)

	return binary.BigEndian.AppendUint64(buf, math.Float64bits(f)), nil
}
