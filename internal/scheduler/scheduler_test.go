package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRunAfter_LaterToday(t *testing.T) {
	now := time.Date(2025, 7, 1, 2, 30, 0, 0, time.UTC)
	next := nextRunAfter(now, 4)
	assert.Equal(t, time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC), next)
}

func TestNextRunAfter_Tomorrow(t *testing.T) {
	now := time.Date(2025, 7, 1, 5, 0, 0, 0, time.UTC)
	next := nextRunAfter(now, 4)
	assert.Equal(t, time.Date(2025, 7, 2, 4, 0, 0, 0, time.UTC), next)
}

func TestNextRunAfter_ExactlyOnTheHour_SkipsToTomorrow(t *testing.T) {
	now := time.Date(2025, 7, 1, 4, 0, 0, 0, time.UTC)
	next := nextRunAfter(now, 4)
	assert.Equal(t, time.Date(2025, 7, 2, 4, 0, 0, 0, time.UTC), next)
}

func TestNextRunAfter_MonthRollover(t *testing.T) {
	now := time.Date(2025, 7, 31, 23, 59, 0, 0, time.UTC)
	next := nextRunAfter(now, 4)
	assert.Equal(t, time.Date(2025, 8, 1, 4, 0, 0, 0, time.UTC), next)
}
