package widget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"quest-widget-system/models"
)

// Connect runs the wallet-connect sync: restore local cache immediately, then
// reconcile with the backend when the project is published and reachable.
// Remote is authoritative for the task list, streak and claim state, and the
// completion set; XP takes whichever side is higher, because local may hold
// optimistic grants the write-back never delivered.
//
// Any remote failure downgrades the session to local-only instead of
// breaking the widget; the next Connect retries from scratch.
func (e *Engine) Connect(ctx context.Context) error {
	if e.wallet == nil || e.wallet.Address() == "" {
		return errors.New("no wallet connected")
	}

	e.mu.Lock()
	e.restoreSnapshotLocked()
	e.mu.Unlock()

	// Draft projects have no remote identity: local cache is all there is.
	if e.api == nil || e.cfg.ProjectID == "" {
		e.mu.Lock()
		e.remote = false
		e.synced = true
		e.mu.Unlock()
		return nil
	}

	remoteCfg, err := e.api.FetchConfig(ctx)
	if err != nil {
		return e.downgrade(err)
	}
	if remoteCfg.Status != "published" {
		e.mu.Lock()
		e.tasks = remoteCfg.Tasks
		e.remote = false
		e.synced = true
		e.mu.Unlock()
		return nil
	}

	userID, err := e.api.UpsertUser(ctx, e.wallet.Address())
	if err != nil {
		return e.downgrade(err)
	}
	prog, err := e.api.GetProgress(ctx, userID)
	if err != nil {
		return e.downgrade(err)
	}
	completions, err := e.api.ListCompletions(ctx, userID)
	if err != nil {
		return e.downgrade(err)
	}

	var globalXP int64
	if g, err := e.api.GlobalXP(ctx, e.wallet.Address()); err == nil {
		globalXP = g.TotalXP
	}
	var platforms []string
	if p, err := e.api.TodayBoosts(ctx, e.wallet.Address()); err == nil {
		platforms = p
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.userID = userID
	e.remote = true
	localTasks := e.tasks
	localCompleted := e.completed
	e.tasks = remoteCfg.Tasks

	// XP reconciliation: keep the higher side, then write it back so both
	// converge. Everything else is remote-authoritative.
	writeBack := e.xp > prog.XP
	if !writeBack {
		e.xp = prog.XP
	}
	e.streak = prog.Streak
	e.lastClaim = prog.LastClaimDate
	e.globalXP = globalXP

	e.completed = make(map[string]struct{}, len(completions))
	byID := make(map[string]*models.Task, len(e.tasks))
	for i := range e.tasks {
		byID[e.tasks[i].ID] = &e.tasks[i]
	}
	for _, comp := range completions {
		task, ok := byID[comp.TaskID]
		if !ok {
			continue // task deleted since completion
		}
		key := task.ID
		if comp.CompletedOn != "" {
			key = fmt.Sprintf("%s:%s", task.ID, comp.CompletedOn)
		}
		e.completed[key] = struct{}{}
	}

	// Merge in local completions the server missed (a persistence tail that
	// never landed, or a pre-publish preview session). The XP for these sits
	// in the local total already — forgetting the keys would re-arm the
	// tasks and double-grant.
	remapErr := e.mergeLocalCompletionsLocked(localTasks, localCompleted, byID)

	e.rollSharedDayLocked()
	for _, p := range platforms {
		e.shared[p] = struct{}{}
	}

	e.synced = true
	e.saveSnapshotLocked()

	if writeBack {
		xp := e.xp
		e.tails.Add(1)
		go func() {
			defer e.tails.Done()
			e.writeBackXP(xp)
		}()
	}
	return remapErr
}

// mergeLocalCompletionsLocked folds cached completion keys into the remote
// set. Keys already naming a remote task id merge directly; keys from a
// pre-publish session carry draft-local ids and fall back to matching the
// cached task's title against the remote list. An ambiguous title (two remote
// tasks sharing it) is reported, never resolved first-match-wins.
func (e *Engine) mergeLocalCompletionsLocked(localTasks []models.Task, localCompleted map[string]struct{}, byID map[string]*models.Task) error {
	if len(localCompleted) == 0 {
		return nil
	}

	localByID := make(map[string]*models.Task, len(localTasks))
	for i := range localTasks {
		localByID[localTasks[i].ID] = &localTasks[i]
	}
	byTitle := make(map[string][]*models.Task)
	for id := range byID {
		task := byID[id]
		byTitle[task.Title] = append(byTitle[task.Title], task)
	}

	var ambiguous []string
	for key := range localCompleted {
		taskID, day, _ := strings.Cut(key, ":")
		if _, known := byID[taskID]; known {
			e.completed[key] = struct{}{}
			continue
		}
		local, ok := localByID[taskID]
		if !ok {
			continue // stale key for a task that no longer exists anywhere
		}
		matches := byTitle[local.Title]
		if len(matches) > 1 {
			ambiguous = append(ambiguous, local.Title)
			continue
		}
		if len(matches) == 0 {
			continue
		}
		remapped := matches[0].ID
		if day != "" {
			remapped = fmt.Sprintf("%s:%s", remapped, day)
		}
		e.completed[remapped] = struct{}{}
	}
	if len(ambiguous) > 0 {
		return fmt.Errorf("ambiguous task titles while mapping cached completions: %s", strings.Join(ambiguous, ", "))
	}
	return nil
}

// downgrade records a failed remote sync and leaves the session local-only.
func (e *Engine) downgrade(err error) error {
	e.mu.Lock()
	e.remote = false
	e.synced = true
	e.mu.Unlock()
	return fmt.Errorf("remote sync failed, running locally: %w", err)
}

// Synced reports whether Connect has run since the last wallet change.
func (e *Engine) Synced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synced
}

// Remote reports whether the session is backed by the server.
func (e *Engine) Remote() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote
}

// RefreshGlobalXP re-reads the wallet's cross-project total for tier display.
func (e *Engine) RefreshGlobalXP(ctx context.Context) error {
	if e.api == nil {
		return nil
	}
	if e.wallet == nil || e.wallet.Address() == "" {
		return errors.New("no wallet connected")
	}
	g, err := e.api.GlobalXP(ctx, e.wallet.Address())
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.globalXP = g.TotalXP
	e.mu.Unlock()
	return nil
}

// writeBackXP pushes the local XP total to the server, last write wins. Runs
// on the persistence tail; failures are logged and the next sync reconciles.
func (e *Engine) writeBackXP(xp int64) {
	e.mu.Lock()
	userID := e.userID
	remote := e.remote
	e.mu.Unlock()
	if !remote || userID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()
	if err := e.api.SetProgressXP(ctx, userID, xp); err != nil {
		log.Printf("⚠️ xp write-back failed: %v", err)
	}
}

// Disconnect clears wallet-scoped state ahead of a new wallet connecting.
// The snapshot for the old wallet stays cached under its own key.
func (e *Engine) Disconnect() {
	e.tails.Wait()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = ""
	e.remote = false
	e.synced = false
	e.xp = 0
	e.globalXP = 0
	e.streak = 0
	e.lastClaim = nil
	e.completed = make(map[string]struct{})
	e.shared = make(map[string]struct{})
	e.sharedOn = ""
	e.verifications = make(map[string]VerificationState)
	e.verifyErrs = make(map[string]string)
	e.quizStates = make(map[string]VerificationState)
}
