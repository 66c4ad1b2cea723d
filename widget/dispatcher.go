package widget

import (
	"context"
	"errors"
	"log"

	"quest-widget-system/models"
	"quest-widget-system/progression"
)

// GrantOptions tunes a single grant.
type GrantOptions struct {
	// XPOverride replaces the task's configured XP when > 0. Used by flows
	// whose reward the server already decided (verification).
	XPOverride int64
	// SkipRemote suppresses the completion write-back. Used when the server
	// already holds the authoritative record for this grant.
	SkipRemote bool
}

// ErrAlreadyCompleted is returned when the task's reward is already spent
// for the current window.
var ErrAlreadyCompleted = errors.New("task already completed")

// GrantReward is the single entry point for task rewards. It checks the
// completion window, applies XP optimistically, persists the snapshot, and
// hands the remote write-back to the persistence tail. The optimistic local
// grant is never rolled back: if another tab won the server-side race the
// totals reconverge on the next sync.
func (e *Engine) GrantReward(taskID string, opts GrantOptions) (int64, error) {
	e.mu.Lock()

	task := e.taskByID(taskID)
	if task == nil {
		e.mu.Unlock()
		return 0, errors.New("unknown task")
	}

	day := progression.UTCDayStamp(e.now())
	key := progression.CompletionKey(task, day)
	if _, done := e.completed[key]; done {
		e.mu.Unlock()
		return 0, ErrAlreadyCompleted
	}

	amount := task.XP
	if opts.XPOverride > 0 {
		amount = opts.XPOverride
	}

	e.completed[key] = struct{}{}
	e.xp += amount
	e.globalXP += amount
	e.saveSnapshotLocked()

	remote := e.remote && !opts.SkipRemote
	userID := e.userID
	completedOn := progression.CompletedOnStamp(task, day)
	e.mu.Unlock()

	if remote {
		e.tails.Add(1)
		go func() {
			defer e.tails.Done()
			e.persistCompletion(userID, task.ID, completedOn, amount)
		}()
	}
	return amount, nil
}

// persistCompletion is the remote tail of a grant: record the completion,
// and only when this client won the insert push the XP write-back. A lost
// race means another session already granted and wrote back; pushing our
// total on top would double-count the reward.
func (e *Engine) persistCompletion(userID, taskID, completedOn string, amount int64) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	granted, err := e.api.InsertCompletion(ctx, userID, taskID, completedOn, amount)
	if err != nil {
		log.Printf("⚠️ completion write failed for task %s: %v", taskID, err)
		return
	}
	if !granted {
		return
	}

	// Award on top of the authoritative remote total, not this tab's local
	// view: the server may have accumulated grants from other tabs and
	// server-side awards since our last sync, and those must survive.
	prog, err := e.api.GetProgress(ctx, userID)
	if err != nil {
		log.Printf("⚠️ progress re-read failed for task %s: %v", taskID, err)
		return
	}
	if err := e.api.SetProgressXP(ctx, userID, prog.XP+amount); err != nil {
		log.Printf("⚠️ xp write-back failed for task %s: %v", taskID, err)
	}
}

// CompleteLink marks a link task done after the host opened the URL.
func (e *Engine) CompleteLink(taskID string) (int64, error) {
	e.mu.Lock()
	task := e.taskByID(taskID)
	e.mu.Unlock()
	if task == nil {
		return 0, errors.New("unknown task")
	}
	if task.Kind != models.TaskKindLink {
		return 0, errors.New("not a link task")
	}
	return e.GrantReward(taskID, GrantOptions{})
}
