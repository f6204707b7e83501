package postgres

import (
	"testing"
	"time"

	"quizbot/internal/domain"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"capitals":   "capitals",
		"100%":       `100\%`,
		"snake_case": `snake\_case`,
		`back\slash`: `back\\slash`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Fatalf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuizModelRoundTrip(t *testing.T) {
	desc := "European capitals"
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	quiz := domain.Quiz{
		ID:          7,
		Name:        "Capitals",
		Description: &desc,
		Owner:       "alice",
		Public:      true,
		Random:      true,
		CreatedAt:   created,
		Questions:   []domain.Question{{Text: "dropped"}},
	}

	got := newQuizModel(quiz).toDomain()
	if got.ID != 7 || got.Name != "Capitals" || *got.Description != desc || !got.Public || got.Copyable || !got.Random {
		t.Fatalf("unexpected quiz %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at lost: %v", got.CreatedAt)
	}
	if got.Questions != nil {
		t.Fatalf("questions are stored in their own table")
	}

	question := newQuestionModel(7, domain.Question{ID: 3, QuizID: 99, Text: "Capital of France?"}).toDomain()
	if question.QuizID != 7 {
		t.Fatalf("question must be bound to the given quiz, got %d", question.QuizID)
	}
}
