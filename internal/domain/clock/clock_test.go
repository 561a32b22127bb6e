package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &MockClock{CurrentTime: start}

	assert.Equal(t, start, c.Now())
	c.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), c.Now())
}

func TestCalendarHelpers(t *testing.T) {
	ts := time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), Date(ts))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), MonthStart(ts))

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same day", ts, ts.Add(-time.Hour), 0},
		{"180 days", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC), 180},
		{"past", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), -9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.from, tt.to))
		})
	}
}
