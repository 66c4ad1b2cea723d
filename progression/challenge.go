package progression

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChallengeTag is the fixed protocol tag heading every verification challenge.
const ChallengeTag = "quest-widget-verify-v1"

// Challenge is the canonical sign-this message for the on-chain verification
// handshake. The wire form is the six fields newline-joined in fixed order so
// the server can reconstruct and verify the exact signed string.
type Challenge struct {
	WalletAddress string // lowercased
	ProjectID     string
	TaskID        string
	ChainID       int64
	IssuedAt      time.Time
}

// String renders the canonical wire form.
func (c Challenge) String() string {
	return strings.Join([]string{
		ChallengeTag,
		strings.ToLower(c.WalletAddress),
		c.ProjectID,
		c.TaskID,
		strconv.FormatInt(c.ChainID, 10),
		c.IssuedAt.UTC().Format(time.RFC3339),
	}, "\n")
}

// BuildChallenge constructs the challenge for a verification attempt.
func BuildChallenge(walletAddress, projectID, taskID string, chainID int64, issuedAt time.Time) Challenge {
	return Challenge{
		WalletAddress: strings.ToLower(walletAddress),
		ProjectID:     projectID,
		TaskID:        taskID,
		ChainID:       chainID,
		IssuedAt:      issuedAt.UTC(),
	}
}

// ParseChallenge reconstructs a Challenge from its wire form, rejecting
// anything that is not exactly six lines under the expected tag.
func ParseChallenge(message string) (Challenge, error) {
	parts := strings.Split(message, "\n")
	if len(parts) != 6 {
		return Challenge{}, fmt.Errorf("challenge must have 6 lines, got %d", len(parts))
	}
	if parts[0] != ChallengeTag {
		return Challenge{}, fmt.Errorf("unknown challenge tag %q", parts[0])
	}
	chainID, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return Challenge{}, fmt.Errorf("bad chain id %q: %w", parts[4], err)
	}
	issuedAt, err := time.Parse(time.RFC3339, parts[5])
	if err != nil {
		return Challenge{}, fmt.Errorf("bad challenge timestamp %q: %w", parts[5], err)
	}
	return Challenge{
		WalletAddress: parts[1],
		ProjectID:     parts[2],
		TaskID:        parts[3],
		ChainID:       chainID,
		IssuedAt:      issuedAt,
	}, nil
}
