package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quest-widget-system/models"
)

// fakeBackend is a minimal widget API for sync tests: canned config and
// progress, recorded writes.
type fakeBackend struct {
	mu          sync.Mutex
	status      string
	tasks       []models.Task
	xp          int64
	streak      int
	lastClaim   *time.Time
	completions []RemoteCompletion
	globalXP    int64
	platforms   []string

	putXP        []int64
	insertedKeys []string
	grantInserts bool

	verify     func(req VerifyRequest) VerifyResult
	dailyClaim func() DailyClaimResult
	lbClaim    func(period string) LeaderboardClaimResult

	server *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{status: "published", tasks: draftTasks(), grantInserts: true}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /w/config", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]interface{}{
			"project_id": "proj-1",
			"name":       "Acme Quests",
			"status":     b.status,
			"tasks":      b.tasks,
		})
	})
	mux.HandleFunc("POST /w/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"user_id": "user-1"})
	})
	mux.HandleFunc("GET /w/users/user-1/progress", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]interface{}{
			"xp":              b.xp,
			"streak":          b.streak,
			"last_claim_date": b.lastClaim,
		})
	})
	mux.HandleFunc("PUT /w/users/user-1/progress", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			XP int64 `json:"xp"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.xp = req.XP
		b.putXP = append(b.putXP, req.XP)
		b.mu.Unlock()
		writeJSON(w, map[string]int64{"xp": req.XP})
	})
	mux.HandleFunc("GET /w/users/user-1/completions", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]interface{}{"completions": b.completions})
	})
	mux.HandleFunc("POST /w/users/user-1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TaskID      string `json:"task_id"`
			CompletedOn string `json:"completed_on"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.insertedKeys = append(b.insertedKeys, req.TaskID+"|"+req.CompletedOn)
		granted := b.grantInserts
		b.mu.Unlock()
		writeJSON(w, map[string]bool{"granted": granted})
	})
	mux.HandleFunc("GET /w/global-xp/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]interface{}{"total_xp": b.globalXP})
	})
	mux.HandleFunc("GET /w/boosts/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, map[string]interface{}{"platforms": b.platforms})
	})
	mux.HandleFunc("POST /w/users/user-1/claims/daily", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		claim := b.dailyClaim
		b.mu.Unlock()
		if claim == nil {
			writeJSON(w, DailyClaimResult{Success: false, Message: "not configured"})
			return
		}
		writeJSON(w, claim())
	})
	mux.HandleFunc("POST /w/users/user-1/claims/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Period string `json:"period"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		claim := b.lbClaim
		b.mu.Unlock()
		if claim == nil {
			writeJSON(w, LeaderboardClaimResult{Success: false, Message: "not configured"})
			return
		}
		writeJSON(w, claim(req.Period))
	})
	mux.HandleFunc("POST /w/verify/", func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		verify := b.verify
		b.mu.Unlock()
		if verify == nil {
			writeJSON(w, VerifyResult{Success: false, Error: "verification unavailable"})
			return
		}
		writeJSON(w, verify(req))
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func remoteEngine(t *testing.T, b *fakeBackend, clock *fakeClock, store SnapshotStore, wallet *fakeWallet) *Engine {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	if wallet == nil {
		wallet = &fakeWallet{address: "0xaaa111", chainID: 1}
	}
	return New(Config{
		BaseURL:        b.server.URL,
		WidgetKey:      "wk_test",
		ProjectID:      "proj-1",
		ProjectName:    "Acme Quests",
		Origin:         "https://acme.example",
		QuizCheckDelay: time.Millisecond,
	}, wallet, store, WithClock(clock.Now))
}

func TestConnect_RemoteAuthoritative(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.xp = 500
	b.streak = 3
	b.globalXP = 900
	b.completions = []RemoteCompletion{{TaskID: "link-1"}}
	b.platforms = []string{"x"}

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	assert.True(t, e.Remote())
	assert.EqualValues(t, 500, e.XP())
	assert.Equal(t, 3, e.Streak())
	assert.EqualValues(t, 900, e.GlobalXP())
	assert.True(t, e.SharedToday("x"))

	tasks := e.Tasks()
	assert.True(t, e.IsCompleted(&tasks[0]))
	assert.False(t, e.IsCompleted(&tasks[1]))
	assert.Empty(t, b.putXP, "no write-back when remote XP is authoritative")
}

func TestConnect_LocalXPWinsWhenHigher(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()

	// an offline session accumulated XP the server never saw
	local := draftEngine(t, clock, store)
	_, err := local.GrantReward("link-1", GrantOptions{})
	require.NoError(t, err)

	b := newFakeBackend(t)
	b.xp = 30

	// same wallet+origin, but remote scope: seed the remote-scoped snapshot
	// by saving under the remote cache key
	snap, err := store.Load(CacheKey("0xaaa111", "https://acme.example", "acme-quests"))
	require.NoError(t, err)
	require.NotNil(t, snap)
	store.Save(CacheKey("0xaaa111", "https://acme.example", "proj-1"), snap)

	e := remoteEngine(t, b, clock, store, nil)
	require.NoError(t, e.Connect(context.Background()))
	e.Flush()

	assert.EqualValues(t, 100, e.XP())
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []int64{100}, b.putXP, "higher local XP is written back")
}

func TestConnect_RemoteFailureFallsBackToLocal(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.server.Close() // backend unreachable

	store := NewMemoryStore()
	store.Save(CacheKey("0xaaa111", "https://acme.example", "proj-1"), &Snapshot{
		Tasks:         draftTasks(),
		XP:            250,
		Streak:        2,
		CompletedKeys: []string{"link-1"},
		SavedAt:       clock.Now(),
	})

	e := remoteEngine(t, b, clock, store, nil)
	err := e.Connect(context.Background())
	assert.Error(t, err)

	// cached state still drives the widget
	assert.True(t, e.Synced())
	assert.False(t, e.Remote())
	assert.EqualValues(t, 250, e.XP())
	assert.Equal(t, 2, e.Streak())
	tasks := e.Tasks()
	assert.True(t, e.IsCompleted(&tasks[0]))
}

func TestConnect_DraftStatusStaysLocal(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.status = "draft"

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))
	assert.False(t, e.Remote())

	// grants still work locally against the fetched task list
	_, err := e.GrantReward("link-1", GrantOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 100, e.XP())
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.insertedKeys)
}

func TestGrantReward_RemotePersistenceTail(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	_, err := e.GrantReward("daily-1", GrantOptions{})
	require.NoError(t, err)
	e.Flush()

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"daily-1|2026-06-01"}, b.insertedKeys)
	assert.Equal(t, []int64{40}, b.putXP)
}

func TestGrantReward_ConcurrentTabsAccumulateOnServer(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)

	// two tabs for the same wallet, both synced at server XP 0
	tabA := remoteEngine(t, b, clock, NewMemoryStore(), &fakeWallet{address: "0xaaa111", chainID: 1})
	require.NoError(t, tabA.Connect(context.Background()))
	tabB := remoteEngine(t, b, clock, NewMemoryStore(), &fakeWallet{address: "0xaaa111", chainID: 1})
	require.NoError(t, tabB.Connect(context.Background()))

	_, err := tabA.GrantReward("link-1", GrantOptions{})
	require.NoError(t, err)
	tabA.Flush()

	// tab B never saw tab A's grant; its write-back must still not erase it
	_, err = tabB.GrantReward("daily-1", GrantOptions{})
	require.NoError(t, err)
	tabB.Flush()

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.EqualValues(t, 140, b.xp, "both grants survive on the server")
}

func TestGrantReward_TailPreservesServerSideAwards(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	// a server-authoritative award lands after this tab's sync
	b.mu.Lock()
	b.xp = 200
	b.mu.Unlock()

	_, err := e.GrantReward("link-1", GrantOptions{})
	require.NoError(t, err)
	e.Flush()

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.EqualValues(t, 300, b.xp, "grant is added on top of the remote total")
}

func TestGrantReward_LostRaceSkipsWriteBack(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	b.grantInserts = false // another tab already holds the completion row

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	_, err := e.GrantReward("link-1", GrantOptions{})
	require.NoError(t, err)
	e.Flush()

	// the optimistic local grant stands, but no XP write-back happens
	assert.EqualValues(t, 100, e.XP())
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Len(t, b.insertedKeys, 1)
	assert.Empty(t, b.putXP)
}

func TestConnect_RemapsDraftCompletionsByTitle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)

	// a pre-publish session completed tasks under draft-local ids
	draft := []models.Task{
		{ID: "local-a", Title: "Follow us", Kind: models.TaskKindLink, XP: 100},
		{ID: "local-b", Title: "Daily check-in", Kind: models.TaskKindLink, XP: 40, Cadence: models.CadenceDaily},
	}
	store := NewMemoryStore()
	store.Save(CacheKey("0xaaa111", "https://acme.example", "proj-1"), &Snapshot{
		Tasks:         draft,
		XP:            140,
		CompletedKeys: []string{"local-a", "local-b:2026-06-01"},
		SavedAt:       clock.Now(),
	})

	e := remoteEngine(t, b, clock, store, nil)
	require.NoError(t, e.Connect(context.Background()))
	e.Flush()

	// both keys were translated to the published tasks' stable ids
	tasks := e.Tasks()
	assert.True(t, e.IsCompleted(&tasks[0]), "once-task remapped by title")
	assert.True(t, e.IsCompleted(&tasks[1]), "daily task remapped with its day stamp")
	assert.EqualValues(t, 140, e.XP())
}

func TestConnect_AmbiguousTitleIsReported(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)
	dup := draftTasks()
	dup = append(dup, models.Task{ID: "link-2", Title: "Follow us", Kind: models.TaskKindLink, XP: 10})
	b.tasks = dup

	store := NewMemoryStore()
	store.Save(CacheKey("0xaaa111", "https://acme.example", "proj-1"), &Snapshot{
		Tasks:         []models.Task{{ID: "local-a", Title: "Follow us", Kind: models.TaskKindLink, XP: 100}},
		XP:            100,
		CompletedKeys: []string{"local-a"},
		SavedAt:       clock.Now(),
	})

	e := remoteEngine(t, b, clock, store, nil)
	err := e.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Follow us")

	// the sync itself still landed; only the ambiguous key was dropped
	assert.True(t, e.Remote())
	tasks := e.Tasks()
	assert.False(t, e.IsCompleted(&tasks[0]))
}

func TestGrantReward_SkipRemote(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	b := newFakeBackend(t)

	e := remoteEngine(t, b, clock, nil, nil)
	require.NoError(t, e.Connect(context.Background()))

	_, err := e.GrantReward("link-1", GrantOptions{XPOverride: 300, SkipRemote: true})
	require.NoError(t, err)
	e.Flush()

	assert.EqualValues(t, 300, e.XP())
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.insertedKeys)
	assert.Empty(t, b.putXP)
}
