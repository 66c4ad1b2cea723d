package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quest-widget-system/models"
)

func TestCompletionKey(t *testing.T) {
	day := UTCDayStamp(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))

	once := &models.Task{ID: "t-1", Cadence: models.CadenceOnce}
	assert.Equal(t, "t-1", CompletionKey(once, day))
	assert.Equal(t, "", CompletedOnStamp(once, day))

	daily := &models.Task{ID: "t-2", Cadence: models.CadenceDaily}
	assert.Equal(t, "t-2:2026-05-01", CompletionKey(daily, day))
	assert.Equal(t, "2026-05-01", CompletedOnStamp(daily, day))

	// an unset cadence behaves as once
	unset := &models.Task{ID: "t-3"}
	assert.Equal(t, "t-3", CompletionKey(unset, day))
}

func TestCompletionKey_DailyReArms(t *testing.T) {
	daily := &models.Task{ID: "t-2", Cadence: models.CadenceDaily}

	d1 := UTCDayStamp(time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC))
	d2 := UTCDayStamp(time.Date(2026, 5, 2, 0, 1, 0, 0, time.UTC))
	assert.NotEqual(t, CompletionKey(daily, d1), CompletionKey(daily, d2))
}

func TestUTCDayStamp(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 2026-05-01 22:00 EST is already 2026-05-02 in UTC
	assert.Equal(t, "2026-05-02", UTCDayStamp(time.Date(2026, 5, 1, 22, 0, 0, 0, est)))
}
