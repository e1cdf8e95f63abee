package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	c, err := ParseClock("16:05")
	require.NoError(t, err)
	assert.Equal(t, NewClock(16, 5), c)
	assert.Equal(t, "16:05", c.String())

	_, err = ParseClock("4pm")
	assert.Error(t, err)
}

func TestWindowContains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h, m int
		want bool
	}{
		{"before", 15, 59, false},
		{"start inclusive", 16, 0, true},
		{"inside", 16, 5, true},
		{"end inclusive", 16, 10, true},
		{"after", 16, 15, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EntryWindow.Contains(at(tt.h, tt.m)))
		})
	}
}

func TestFilterSession(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		{Time: at(15, 55)},
		{Time: at(16, 0)},
		{Time: at(16, 5)},
		{Time: at(17, 30)},
		{Time: at(18, 0)},
		{Time: at(18, 5)},
	}
	got := FilterSession(bars, PostAnnouncementSession)
	require.Len(t, got, 3)
	assert.Equal(t, at(16, 5), got[0].Time)
	assert.Equal(t, at(18, 0), got[2].Time)
}
