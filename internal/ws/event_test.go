package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	ts := time.Date(2026, time.August, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Aug. 05, 2026", formatDate(ts))
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		ts   time.Time
		want string
	}{
		{time.Date(2026, 1, 1, 14, 30, 0, 0, time.UTC), "2:30 p.m."},
		{time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC), "9:05 a.m."},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "12:00 a.m."},
		{time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "12:00 p.m."},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatTime(c.ts))
	}
}
