package models

// TaskSection groups tasks in the widget UI.
type TaskSection string

const (
	SectionMissions   TaskSection = "missions"
	SectionOnboarding TaskSection = "onboarding"
)

// TaskKind determines which completion flow a task runs.
type TaskKind string

const (
	TaskKindLink      TaskKind = "link"
	TaskKindQuiz      TaskKind = "quiz"
	TaskKindNFTHold   TaskKind = "nft_hold"
	TaskKindTokenHold TaskKind = "token_hold"
)

// RewardCadence is how often a task can be completed for reward.
type RewardCadence string

const (
	CadenceOnce  RewardCadence = "once"
	CadenceDaily RewardCadence = "daily"
)

// QuizType selects the judging rule for quiz tasks.
type QuizType string

const (
	QuizSecretCode     QuizType = "secret_code"
	QuizMultipleChoice QuizType = "multiple_choice"
)

// Task is a unit of rewardable work. Serialized flat: kind-specific fields are
// always present (zero-valued when unused) so the builder payload and the
// server schema stay simple. Titles are unique per project — the remote task
// id is the stable foreign key for completions, title matching exists only as
// a legacy fallback and must never be ambiguous.
type Task struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProjectID string `gorm:"type:uuid;not null;uniqueIndex:idx_tasks_project_title,priority:1" json:"project_id"`
	Title     string `gorm:"not null;uniqueIndex:idx_tasks_project_title,priority:2" json:"title"`

	Description string        `gorm:"type:text" json:"description"`
	XP          int64         `gorm:"not null;default:0" json:"xp"`
	Section     TaskSection   `gorm:"type:varchar(16);not null;default:'missions'" json:"section"`
	Kind        TaskKind      `gorm:"type:varchar(16);not null" json:"kind"`
	Cadence     RewardCadence `gorm:"type:varchar(8);not null;default:'once'" json:"reward_cadence"`
	IconURL     string        `gorm:"type:text" json:"icon_url"`
	SortOrder   int           `gorm:"default:0" json:"sort_order"`

	// kind = link
	Link string `gorm:"type:text" json:"link"`

	// kind = quiz
	Question           string   `gorm:"type:text" json:"question"`
	Answer             string   `gorm:"type:text" json:"answer"`
	QuizType           QuizType `gorm:"type:varchar(16)" json:"quiz_type"`
	Choices            []string `gorm:"serializer:json;type:jsonb" json:"choices"`
	CorrectChoiceIndex int      `gorm:"default:0" json:"correct_choice_index"`

	// kind = nft_hold
	NFTContract string `gorm:"type:varchar(128)" json:"nft_contract"`
	NFTChainID  int64  `gorm:"default:0" json:"nft_chain_id"`

	// kind = token_hold. MinTokenAmount is in base units (decimals already
	// applied by the builder) so the balance check is a plain big-int compare.
	TokenContract  string `gorm:"type:varchar(128)" json:"token_contract"`
	TokenChainID   int64  `gorm:"default:0" json:"token_chain_id"`
	MinTokenAmount string `gorm:"type:varchar(80)" json:"min_token_amount"`

	Timestamps
}

// EffectiveCadence defaults an absent cadence to once.
func (t *Task) EffectiveCadence() RewardCadence {
	if t.Cadence == CadenceDaily {
		return CadenceDaily
	}
	return CadenceOnce
}

// Contract returns the verification contract address and chain for hold tasks.
func (t *Task) Contract() (address string, chainID int64) {
	switch t.Kind {
	case TaskKindNFTHold:
		return t.NFTContract, t.NFTChainID
	case TaskKindTokenHold:
		return t.TokenContract, t.TokenChainID
	}
	return "", 0
}
