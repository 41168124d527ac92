package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("analytics", map[string]any{"entity": "alice", "window": 7})
	b := Key("analytics", map[string]any{"window": 7, "entity": "alice"})
	assert.Equal(t, a, b, "parameter order must not change the key")
}

func TestKeyDistinguishesParams(t *testing.T) {
	a := Key("analytics", map[string]any{"entity": "alice"})
	b := Key("analytics", map[string]any{"entity": "bob"})
	assert.NotEqual(t, a, b)

	// Different namespaces never collide even with equal params.
	c := Key("profiles", map[string]any{"entity": "alice"})
	assert.NotEqual(t, a, c)
}

func TestKeyEmptyParams(t *testing.T) {
	assert.Equal(t, "analytics", Key("analytics", nil))
	assert.Equal(t, "analytics", Key("analytics", map[string]any{}))
}

func TestFingerprintStable(t *testing.T) {
	type record struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	a := Fingerprint([]record{{ID: "r1", Count: 3}, {ID: "r2", Count: 5}})
	b := Fingerprint([]record{{ID: "r1", Count: 3}, {ID: "r2", Count: 5}})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	c := Fingerprint([]record{{ID: "r1", Count: 3}})
	assert.NotEqual(t, a, c)
}
