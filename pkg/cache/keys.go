package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Key builds a deterministic cache key from a namespace and a parameter map.
// json.Marshal sorts map keys, so two calls with equal parameters always
// produce the same key regardless of insertion order.
func Key(namespace string, params map[string]any) string {
	if len(params) == 0 {
		return namespace
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		// Parameter maps are built from primitives by callers; an
		// unmarshalable value is a programming error worth surfacing in the
		// key rather than silently colliding.
		return fmt.Sprintf("%s:unencodable:%v", namespace, err)
	}
	return fmt.Sprintf("%s:%s", namespace, encoded)
}

// Fingerprint returns a short stable hex digest of an arbitrary value,
// suitable for keying cache entries on input content (e.g. a window of
// records). Uses canonical JSON plus FNV-1a, which is cheap and collision
// resistant enough for cache keys that also carry a namespace.
func Fingerprint(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", value))
	}
	h := fnv.New64a()
	_, _ = h.Write(encoded)
	return fmt.Sprintf("%016x", h.Sum64())
}
