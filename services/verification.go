// services/verification.go
package services

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"quest-widget-system/models"
	"quest-widget-system/progression"

	"gorm.io/gorm"
)

// challengeMaxAge bounds how old a signed challenge may be before it is
// rejected as a replay.
const challengeMaxAge = 10 * time.Minute

// VerificationService is the sole authority for on-chain hold grants: it
// verifies the signed challenge, checks the balance on chain, and persists
// the grant. The widget never inspects chain state for the grant decision.
type VerificationService struct {
	DB          *gorm.DB
	Chains      *ChainRegistry
	Users       *UserService
	Progression *ProgressionService
	now         func() time.Time
}

func NewVerificationService(db *gorm.DB, chains *ChainRegistry, users *UserService, prog *ProgressionService) *VerificationService {
	return &VerificationService{DB: db, Chains: chains, Users: users, Progression: prog, now: time.Now}
}

// VerifyRequest is the handshake submission from the widget.
type VerifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
}

// VerifyResult is the tri-state verification outcome. Expected failures
// (insufficient balance, stale challenge, bad signature) land in Error with
// Success=false; only infrastructure faults surface as Go errors.
type VerifyResult struct {
	Success          bool   `json:"success"`
	XPAwarded        int64  `json:"xp_awarded,omitempty"`
	AlreadyCompleted bool   `json:"already_completed,omitempty"`
	Error            string `json:"error,omitempty"`
	Details          string `json:"details,omitempty"`
}

func failure(reason string, args ...interface{}) *VerifyResult {
	return &VerifyResult{Success: false, Error: fmt.Sprintf(reason, args...)}
}

// VerifyHold runs the server half of the verification handshake for an
// nft_hold or token_hold task.
func (s *VerificationService) VerifyHold(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	var task models.Task
	if err := s.DB.Where("id = ? AND project_id = ?", req.TaskID, req.ProjectID).First(&task).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return failure("task not found"), nil
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task.Kind != models.TaskKindNFTHold && task.Kind != models.TaskKindTokenHold {
		return failure("task %s is not a hold-verification task", task.ID), nil
	}
	contract, chainID := task.Contract()
	if contract == "" {
		return failure("task has no contract configured"), nil
	}

	// The signed message must be the canonical challenge for exactly this
	// attempt — wallet, project, task, chain — and recent.
	challenge, err := progression.ParseChallenge(req.Message)
	if err != nil {
		return failure("malformed challenge: %v", err), nil
	}
	wallet := strings.ToLower(strings.TrimSpace(req.Address))
	if challenge.WalletAddress != wallet ||
		challenge.ProjectID != req.ProjectID ||
		challenge.TaskID != req.TaskID ||
		challenge.ChainID != chainID {
		return failure("challenge does not match the verification request"), nil
	}
	if age := s.now().UTC().Sub(challenge.IssuedAt); age > challengeMaxAge || age < -time.Minute {
		return failure("challenge expired, please retry"), nil
	}

	signer, err := RecoverSigner(req.Message, req.Signature)
	if err != nil {
		return failure("invalid signature: %v", err), nil
	}
	if strings.ToLower(signer.Hex()) != wallet {
		return failure("signature does not match wallet %s", wallet), nil
	}

	user, err := s.Users.UpsertWidgetUser(req.ProjectID, wallet)
	if err != nil {
		return nil, err
	}
	if _, err := s.Progression.EnsureProgressRecord(user.ID); err != nil {
		return nil, err
	}

	// Idempotent retry safety: if the key is already granted, report that
	// without touching the chain or the ledger.
	day := progression.UTCDayStamp(s.now())
	completedOn := progression.CompletedOnStamp(&task, day)
	var existing models.Completion
	err = s.DB.Where("user_id = ? AND task_id = ? AND completed_on = ?", user.ID, task.ID, completedOn).
		First(&existing).Error
	if err == nil {
		return &VerifyResult{Success: true, AlreadyCompleted: true}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	balance, err := s.Chains.BalanceOf(ctx, chainID, contract, wallet)
	if err != nil {
		return nil, fmt.Errorf("balance check: %w", err)
	}
	required := s.requiredBalance(&task)
	if balance.Cmp(required) < 0 {
		return failure("insufficient balance: hold %s, need %s", balance, required), nil
	}

	granted, err := s.Progression.CompleteWithAward(user.ID, task.ID, completedOn, task.XP, "verified")
	if err != nil {
		return nil, err
	}
	if !granted {
		// Another tab won between the dedup read and the insert.
		return &VerifyResult{Success: true, AlreadyCompleted: true}, nil
	}

	log.Printf("⛓️  Hold verified: wallet=%s task=%s chain=%d balance=%s → +%d XP",
		wallet, task.ID, chainID, balance, task.XP)
	return &VerifyResult{Success: true, XPAwarded: task.XP}, nil
}

// requiredBalance is 1 for NFT holds; token holds read the task's minimum in
// base units, defaulting to 1.
func (s *VerificationService) requiredBalance(task *models.Task) *big.Int {
	if task.Kind == models.TaskKindTokenHold && task.MinTokenAmount != "" {
		if min, ok := new(big.Int).SetString(task.MinTokenAmount, 10); ok && min.Sign() > 0 {
			return min
		}
	}
	return big.NewInt(1)
}
