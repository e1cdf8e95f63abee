package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: At with an old timestamp resets the monotonic entropy.
func TestNewSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Len(t, next, 26)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestAtRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 22, 16, 5, 0, 123_000_000, time.UTC)
	u, err := ulid.ParseStrict(At(at))
	require.NoError(t, err)
	assert.Equal(t, at, ulid.Time(u.Time()).UTC())
}
