package widget

import (
	"errors"
	"time"

	"quest-widget-system/models"
	"quest-widget-system/progression"
)

// ErrWrongAnswer is returned by CheckQuizAnswer for an incorrect submission.
var ErrWrongAnswer = errors.New("wrong answer")

// CheckQuizAnswer judges a quiz submission and grants the reward on a
// correct answer. The flow holds the "checking" state for QuizCheckDelay
// before settling so hosts can render the transition, then lands in success
// or error; ResetQuiz re-arms a failed attempt.
func (e *Engine) CheckQuizAnswer(taskID, input string) (int64, error) {
	e.mu.Lock()
	task := e.taskByID(taskID)
	if task == nil {
		e.mu.Unlock()
		return 0, errors.New("unknown task")
	}
	if task.Kind != models.TaskKindQuiz {
		e.mu.Unlock()
		return 0, errors.New("not a quiz task")
	}
	if e.isCompletedLocked(task) {
		e.quizStates[taskID] = StateSuccess
		e.mu.Unlock()
		return 0, ErrAlreadyCompleted
	}
	e.quizStates[taskID] = StateChecking
	correct := progression.JudgeQuiz(task, input)
	delay := e.cfg.QuizCheckDelay
	e.mu.Unlock()

	// Hold the checking state long enough to be observable.
	time.Sleep(delay)

	if !correct {
		e.mu.Lock()
		e.quizStates[taskID] = StateError
		e.mu.Unlock()
		return 0, ErrWrongAnswer
	}

	amount, err := e.GrantReward(taskID, GrantOptions{})
	e.mu.Lock()
	if err != nil && !errors.Is(err, ErrAlreadyCompleted) {
		e.quizStates[taskID] = StateError
	} else {
		e.quizStates[taskID] = StateSuccess
	}
	e.mu.Unlock()
	if err != nil && !errors.Is(err, ErrAlreadyCompleted) {
		return 0, err
	}
	return amount, nil
}

// ResetQuiz returns a quiz flow to idle for another attempt.
func (e *Engine) ResetQuiz(taskID string) {
	e.mu.Lock()
	delete(e.quizStates, taskID)
	e.mu.Unlock()
}
