package widget

import (
	"time"

	"github.com/gosimple/slug"

	"quest-widget-system/models"
)

// Config is everything the host page hands the engine at mount time. For a
// published project BaseURL + WidgetKey point at the backend and the task
// list is fetched remotely; in builder preview only ProjectName and Tasks
// are set and the engine runs purely against the local cache.
type Config struct {
	BaseURL   string
	WidgetKey string
	Origin    string

	// ProjectID is set once the project has been persisted remotely. Empty
	// means draft/preview: the engine must not attempt any remote call.
	ProjectID   string
	ProjectName string

	// Tasks seeds the task list for draft mode. Ignored when the remote
	// config fetch succeeds, which is authoritative.
	Tasks []models.Task

	// QuizCheckDelay holds quiz answers in the "checking" state briefly so
	// the transition is observable. Zero keeps the default.
	QuizCheckDelay time.Duration

	RequestTimeout time.Duration
}

const (
	defaultQuizCheckDelay = 600 * time.Millisecond
	defaultRequestTimeout = 15 * time.Second
)

func (c Config) withDefaults() Config {
	if c.QuizCheckDelay <= 0 {
		c.QuizCheckDelay = defaultQuizCheckDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Origin == "" {
		c.Origin = "local"
	}
	return c
}

// scope is the project portion of the cache key: the remote ID when the
// project exists remotely, otherwise a slug of its name so preview progress
// survives renames of everything but the project itself.
func (c Config) scope() string {
	if c.ProjectID != "" {
		return c.ProjectID
	}
	return slug.Make(c.ProjectName)
}
