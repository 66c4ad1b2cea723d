package progression

import (
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"

	"quest-widget-system/models"
)

// NormalizeAnswer folds a free-text answer down to bare lowercase
// alphanumerics: NFKC normalization, ASCII transliteration (so "HÉLLO"
// compares equal to "hello"), lowercasing, then dropping all whitespace,
// punctuation and symbols.
func NormalizeAnswer(s string) string {
	s = norm.NFKC.String(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// JudgeSecretCode compares a user's input against the expected secret code
// after normalization. A misconfigured task whose expected answer normalizes
// to nothing never matches.
func JudgeSecretCode(input, expected string) bool {
	want := NormalizeAnswer(expected)
	if want == "" {
		return false
	}
	return NormalizeAnswer(input) == want
}

// JudgeChoice checks a multiple-choice selection. correct < 0 is treated as
// unconfigured and defaults to index 0.
func JudgeChoice(selected, correct int) bool {
	if correct < 0 {
		correct = 0
	}
	return selected == correct
}

// JudgeQuiz dispatches on the task's quiz type. Secret-code judging receives
// the raw input string; multiple-choice tasks encode the selected index as the
// choice text's position, judged by the caller via JudgeChoice.
func JudgeQuiz(task *models.Task, input string) bool {
	switch task.QuizType {
	case models.QuizMultipleChoice:
		for i, choice := range task.Choices {
			if choice == input {
				return JudgeChoice(i, task.CorrectChoiceIndex)
			}
		}
		return false
	default:
		return JudgeSecretCode(input, task.Answer)
	}
}
