package app

import (
	"math/rand"

	"quizbot/internal/domain"
)

// OrderQuestions arranges questions for play. The input slice is never mutated.
// With randomize it returns a uniform permutation built by Fisher-Yates; intn
// must return a value in [0, n) and defaults to math/rand.
func OrderQuestions(questions []domain.Question, randomize bool, intn func(n int) int) []domain.Question {
	ordered := make([]domain.Question, len(questions))
	copy(ordered, questions)
	if !randomize {
		return ordered
	}
	if intn == nil {
		intn = rand.Intn
	}
	for i := len(ordered) - 1; i > 0; i-- {
		j := intn(i + 1)
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered
}
