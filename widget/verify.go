package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quest-widget-system/models"
	"quest-widget-system/progression"
)

// VerifyHold runs the on-chain verification handshake for an nft_hold or
// token_hold task: chain check, signed challenge, server-side balance check,
// local grant. The flow is observable through VerificationStateFor:
//
//	idle -> signing -> checking -> success | error
//
// A rejected signature returns the flow to idle so the button is immediately
// retryable; chain and balance failures land in error and stay there until
// ResetVerification.
func (e *Engine) VerifyHold(ctx context.Context, taskID string) error {
	e.mu.Lock()
	task := e.taskByID(taskID)
	if task == nil {
		e.mu.Unlock()
		return errors.New("unknown task")
	}
	if task.Kind != models.TaskKindNFTHold && task.Kind != models.TaskKindTokenHold {
		e.mu.Unlock()
		return errors.New("task is not verifiable")
	}
	if st := e.verifications[taskID]; st == StateSigning || st == StateChecking {
		e.mu.Unlock()
		return errors.New("verification already running")
	}
	if e.isCompletedLocked(task) {
		e.verifications[taskID] = StateSuccess
		e.mu.Unlock()
		return nil
	}
	if !e.remote {
		e.mu.Unlock()
		return e.failVerification(taskID, "verification needs a published project")
	}
	e.verifications[taskID] = StateSigning
	delete(e.verifyErrs, taskID)
	kind := task.Kind
	contract, chainID := task.Contract()
	e.mu.Unlock()

	if e.wallet == nil || e.wallet.Address() == "" {
		return e.failVerification(taskID, "no wallet connected")
	}
	if contract == "" {
		return e.failVerification(taskID, "task has no contract configured")
	}

	// The balance check runs against the task's chain, so the wallet must be
	// there before signing.
	if e.wallet.ChainID() != chainID {
		if err := e.wallet.SwitchChain(ctx, chainID); err != nil {
			return e.failVerification(taskID, fmt.Sprintf("switch to chain %d to verify", chainID))
		}
	}

	address := strings.ToLower(e.wallet.Address())
	challenge := progression.BuildChallenge(address, e.cfg.ProjectID, taskID, chainID, e.now())
	message := challenge.String()

	signature, err := e.wallet.SignMessage(ctx, message)
	if err != nil {
		if errors.Is(err, ErrSignatureRejected) {
			// Declining the prompt is not a failure state.
			e.mu.Lock()
			delete(e.verifications, taskID)
			e.mu.Unlock()
			return ErrSignatureRejected
		}
		return e.failVerification(taskID, "signature failed")
	}

	e.mu.Lock()
	e.verifications[taskID] = StateChecking
	e.mu.Unlock()

	result, err := e.api.VerifyHold(ctx, kind, VerifyRequest{
		Address:   address,
		Signature: signature,
		Message:   message,
		ProjectID: e.cfg.ProjectID,
		TaskID:    taskID,
	})
	if err != nil {
		return e.failVerification(taskID, "verification request failed")
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "verification failed"
		}
		return e.failVerification(taskID, msg)
	}

	// The server already recorded the completion and awarded XP; the local
	// grant mirrors it without a second write-back.
	if result.AlreadyCompleted {
		day := progression.UTCDayStamp(e.now())
		e.mu.Lock()
		if t := e.taskByID(taskID); t != nil {
			e.completed[progression.CompletionKey(t, day)] = struct{}{}
		}
		e.verifications[taskID] = StateSuccess
		e.saveSnapshotLocked()
		e.mu.Unlock()
		return nil
	}

	if _, err := e.GrantReward(taskID, GrantOptions{XPOverride: result.XPAwarded, SkipRemote: true}); err != nil && !errors.Is(err, ErrAlreadyCompleted) {
		return e.failVerification(taskID, err.Error())
	}

	e.mu.Lock()
	e.verifications[taskID] = StateSuccess
	e.mu.Unlock()
	return nil
}

func (e *Engine) failVerification(taskID, msg string) error {
	e.mu.Lock()
	e.verifications[taskID] = StateError
	e.verifyErrs[taskID] = msg
	e.mu.Unlock()
	return errors.New(msg)
}
