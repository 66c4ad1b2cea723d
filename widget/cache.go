package widget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"

	"quest-widget-system/models"
)

// Snapshot is the persisted local picture of one wallet's progress in one
// widget instance. It is what survives a restart when the backend is down:
// the engine loads it on connect and writes it after every local mutation.
type Snapshot struct {
	Tasks           []models.Task `json:"tasks"`
	XP              int64         `json:"xp"`
	Streak          int           `json:"streak"`
	LastClaimDate   *time.Time    `json:"last_claim_date,omitempty"`
	SharedPlatforms []string      `json:"shared_platforms,omitempty"`
	CompletedKeys   []string      `json:"completed_keys,omitempty"`
	SavedAt         time.Time     `json:"saved_at"`
}

// SnapshotStore is the persistence surface behind the engine. Stores must be
// best-effort: a read miss returns (nil, nil) and writes swallow their own
// failures, because cache trouble must never take down the widget.
type SnapshotStore interface {
	Load(key string) (*Snapshot, error)
	Save(key string, snap *Snapshot)
	Delete(key string)
}

// CacheKey scopes a snapshot to wallet + embedding origin + project so two
// sites embedding the same project, or two projects on one site, never read
// each other's progress.
func CacheKey(wallet, origin, scope string) string {
	return fmt.Sprintf("%s:%s:%s", wallet, origin, scope)
}

// FileStore keeps one JSON file per cache key under a directory, with the
// key slugified into a safe filename.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, slug.Make(key)+".json")
}

func (s *FileStore) Load(key string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corrupt cache is treated as a miss.
		return nil, nil
	}
	return &snap, nil
}

func (s *FileStore) Save(key string, snap *Snapshot) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path(key), data, 0o644)
}

func (s *FileStore) Delete(key string) {
	_ = os.Remove(s.path(key))
}

// MemoryStore is an in-process store for tests and hosts without a writable
// filesystem.
type MemoryStore struct {
	snaps map[string]*Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*Snapshot)}
}

func (s *MemoryStore) Load(key string) (*Snapshot, error) {
	snap, ok := s.snaps[key]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (s *MemoryStore) Save(key string, snap *Snapshot) {
	cp := *snap
	s.snaps[key] = &cp
}

func (s *MemoryStore) Delete(key string) {
	delete(s.snaps, key)
}
