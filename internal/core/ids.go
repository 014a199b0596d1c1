package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CanonicalID normalizes an identifier to the single string form used for
// every identity comparison at a store boundary. String and native forms of
// the same identifier must compare equal after canonicalization: "42" and
// int64(42), or an upper-cased UUID and its lower-cased twin.
//
// JSON decoding turns numbers into float64, so integral floats canonicalize
// to their decimal representation rather than "4.2e+01".
func CanonicalID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(id))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(id.String()))
	case int:
		return strconv.FormatInt(int64(id), 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		if id == math.Trunc(id) && !math.IsInf(id, 0) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'g', -1, 64)
	case float32:
		return CanonicalID(float64(id))
	case nil:
		return ""
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(id)))
	}
}

// sameID reports whether two identifiers are equal in canonical form.
func sameID(a, b any) bool {
	return CanonicalID(a) == CanonicalID(b)
}
