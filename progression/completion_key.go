package progression

import (
	"fmt"
	"time"

	"quest-widget-system/models"
)

// UTCDayStamp formats t's calendar day in UTC as "2006-01-02". Day boundaries
// are midnight UTC inclusive to next midnight exclusive.
func UTCDayStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CompletionKey derives the dedup identity for a task completion: the task id
// for once-cadence tasks, "<id>:<day>" for daily. Callers must compute the day
// stamp once per check and reuse it for both the membership test and the
// insert, so a midnight rollover between the two cannot double-grant.
func CompletionKey(task *models.Task, day string) string {
	if task.EffectiveCadence() == models.CadenceDaily {
		return fmt.Sprintf("%s:%s", task.ID, day)
	}
	return task.ID
}

// CompletedOnStamp returns the value stored in a completion row's
// completed_on column: the day stamp for daily tasks, "" for once.
func CompletedOnStamp(task *models.Task, day string) string {
	if task.EffectiveCadence() == models.CadenceDaily {
		return day
	}
	return ""
}
