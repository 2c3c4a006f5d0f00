package core

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// PrefixedUUID synthesizes a resource identifier of the form
// "prefix-0000000000000001" from a monotonic counter. Registries use this
// when the caller does not supply an explicit UUID.
func PrefixedUUID(prefix string, counter *uint64) string {
	n := atomic.AddUint64(counter, 1)
	return fmt.Sprintf("%s-%016x", prefix, n)
}

// RandomKey returns a random identity key for contexts and share groups
// that are not bound to an externally supplied key.
func RandomKey() string {
	return uuid.NewString()
}
