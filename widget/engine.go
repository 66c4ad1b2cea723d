package widget

import (
	"sort"
	"sync"
	"time"

	"quest-widget-system/models"
	"quest-widget-system/progression"
)

// VerificationState is the observable phase of a per-task async flow.
type VerificationState string

const (
	StateIdle     VerificationState = "idle"
	StateSigning  VerificationState = "signing"
	StateChecking VerificationState = "checking"
	StateSuccess  VerificationState = "success"
	StateError    VerificationState = "error"
)

// Engine holds all mutable widget state for one wallet on one project. A
// single mutex guards it: the UI thread and the persistence tail never race,
// and every mutation leaves the cached snapshot consistent with memory.
type Engine struct {
	cfg    Config
	wallet Wallet
	api    *APIClient
	store  SnapshotStore
	now    func() time.Time

	mu       sync.Mutex
	tasks    []models.Task
	userID   string
	remote   bool // project published and backend reachable at connect
	synced   bool
	xp       int64
	globalXP int64
	streak   int
	// lastClaim drives daily-claim eligibility; compared by UTC calendar day
	// so the claim re-arms at midnight without any timer.
	lastClaim *time.Time
	completed map[string]struct{} // completion keys
	shared    map[string]struct{} // boost platforms used today
	sharedOn  string              // UTC day the shared set belongs to

	verifications map[string]VerificationState
	verifyErrs    map[string]string
	quizStates    map[string]VerificationState

	claimInFlight   bool
	lbClaimInFlight bool

	// tails tracks fire-and-forget persistence goroutines so tests and
	// shutdown can flush them deterministically.
	tails sync.WaitGroup
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithClock replaces the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAPIClient injects a prebuilt client, overriding BaseURL/WidgetKey.
func WithAPIClient(api *APIClient) Option {
	return func(e *Engine) { e.api = api }
}

// New builds an engine. store may be nil (progress then lives only in
// memory); wallet may be nil until a connection happens, but every flow that
// needs an address fails cleanly without one.
func New(cfg Config, wallet Wallet, store SnapshotStore, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:           cfg,
		wallet:        wallet,
		store:         store,
		now:           time.Now,
		tasks:         cfg.Tasks,
		completed:     make(map[string]struct{}),
		shared:        make(map[string]struct{}),
		verifications: make(map[string]VerificationState),
		verifyErrs:    make(map[string]string),
		quizStates:    make(map[string]VerificationState),
	}
	if cfg.BaseURL != "" && cfg.WidgetKey != "" {
		e.api = NewAPIClient(cfg.BaseURL, cfg.WidgetKey, cfg.RequestTimeout)
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cacheKey requires an attached wallet; "" disables snapshot persistence.
func (e *Engine) cacheKey() string {
	if e.wallet == nil || e.wallet.Address() == "" {
		return ""
	}
	return CacheKey(e.wallet.Address(), e.cfg.Origin, e.cfg.scope())
}

// XP is the current per-project XP as the widget displays it.
func (e *Engine) XP() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.xp
}

// GlobalXP is the wallet's cross-project lifetime total from the last sync.
func (e *Engine) GlobalXP() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globalXP
}

// Level derives from per-project XP.
func (e *Engine) Level() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progression.LevelForXP(e.xp)
}

// LevelProgress is the [0,1] fill toward the next level.
func (e *Engine) LevelProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progression.LevelProgress(e.xp)
}

// Tier derives from the wallet's global lifetime XP, not per-project XP.
func (e *Engine) Tier() progression.Tier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progression.TierForXP(e.globalXP)
}

// Streak is the current daily-claim streak position.
func (e *Engine) Streak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streak
}

// DailyClaimed reports whether the wallet already claimed the daily bonus in
// the current UTC day.
func (e *Engine) DailyClaimed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return progression.ClaimedToday(e.lastClaim, e.now())
}

// Tasks returns the active task list ordered for display.
func (e *Engine) Tasks() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// IsCompleted reports whether the task's reward is spent for the current
// window: forever for once-tasks, for today (UTC) for daily tasks.
func (e *Engine) IsCompleted(task *models.Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isCompletedLocked(task)
}

func (e *Engine) isCompletedLocked(task *models.Task) bool {
	key := progression.CompletionKey(task, progression.UTCDayStamp(e.now()))
	_, ok := e.completed[key]
	return ok
}

// VerificationStateFor returns the flow state for a hold-verification task.
func (e *Engine) VerificationStateFor(taskID string) VerificationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.verifications[taskID]; ok {
		return s
	}
	return StateIdle
}

// VerificationError returns the last error message for a task, "" when none.
func (e *Engine) VerificationError(taskID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.verifyErrs[taskID]
}

// ResetVerification returns a failed flow to idle so the user can retry.
func (e *Engine) ResetVerification(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.verifications, taskID)
	delete(e.verifyErrs, taskID)
}

// QuizStateFor returns the observable judge state for a quiz task.
func (e *Engine) QuizStateFor(taskID string) VerificationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.quizStates[taskID]; ok {
		return s
	}
	return StateIdle
}

// SharedToday reports whether a boost platform was already used this UTC day.
func (e *Engine) SharedToday(platform string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollSharedDayLocked()
	_, ok := e.shared[platform]
	return ok
}

func (e *Engine) rollSharedDayLocked() {
	today := progression.UTCDayStamp(e.now())
	if e.sharedOn != today {
		e.shared = make(map[string]struct{})
		e.sharedOn = today
	}
}

// taskByID resolves a task from the active list.
func (e *Engine) taskByID(taskID string) *models.Task {
	for i := range e.tasks {
		if e.tasks[i].ID == taskID {
			return &e.tasks[i]
		}
	}
	return nil
}

// snapshotLocked captures the current state for the cache. Caller holds mu.
func (e *Engine) snapshotLocked() *Snapshot {
	keys := make([]string, 0, len(e.completed))
	for k := range e.completed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	platforms := make([]string, 0, len(e.shared))
	for p := range e.shared {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return &Snapshot{
		Tasks:           e.tasks,
		XP:              e.xp,
		Streak:          e.streak,
		LastClaimDate:   e.lastClaim,
		SharedPlatforms: platforms,
		CompletedKeys:   keys,
		SavedAt:         e.now(),
	}
}

// saveSnapshotLocked writes the cache; failures are silent by contract.
func (e *Engine) saveSnapshotLocked() {
	key := e.cacheKey()
	if key == "" {
		return
	}
	e.store.Save(key, e.snapshotLocked())
}

// restoreSnapshotLocked loads cached state into memory. Caller holds mu.
func (e *Engine) restoreSnapshotLocked() {
	key := e.cacheKey()
	if key == "" {
		return
	}
	snap, err := e.store.Load(key)
	if err != nil || snap == nil {
		return
	}
	e.xp = snap.XP
	e.streak = snap.Streak
	e.lastClaim = snap.LastClaimDate
	if len(snap.Tasks) > 0 && len(e.tasks) == 0 {
		e.tasks = snap.Tasks
	}
	e.completed = make(map[string]struct{}, len(snap.CompletedKeys))
	for _, k := range snap.CompletedKeys {
		e.completed[k] = struct{}{}
	}
	// Shared platforms reset on day rollover; only restore same-day shares.
	if progression.UTCDayStamp(snap.SavedAt) == progression.UTCDayStamp(e.now()) {
		for _, p := range snap.SharedPlatforms {
			e.shared[p] = struct{}{}
		}
		e.sharedOn = progression.UTCDayStamp(e.now())
	}
}

// Flush blocks until every in-flight persistence tail has finished. Tests
// and host shutdown call it; the UI never does.
func (e *Engine) Flush() {
	e.tails.Wait()
}
