package app_test

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"quizbot/internal/app"
	"quizbot/internal/domain"
)

func questionsWithIDs(ids ...int64) []domain.Question {
	qs := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		qs = append(qs, domain.Question{ID: id, Answers: []domain.Answer{{ID: id * 10}, {ID: id*10 + 1}}})
	}
	return qs
}

func idsOf(qs []domain.Question) []int64 {
	ids := make([]int64, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids
}

func TestOrderQuestionsStable(t *testing.T) {
	input := questionsWithIDs(1, 2, 3, 4)
	first := app.OrderQuestions(input, false, nil)
	second := app.OrderQuestions(input, false, nil)

	for i := range input {
		if first[i].ID != input[i].ID || second[i].ID != input[i].ID {
			t.Fatalf("expected insertion order, got %v and %v", idsOf(first), idsOf(second))
		}
	}
}

func TestOrderQuestionsShuffleIsPermutation(t *testing.T) {
	input := questionsWithIDs(1, 2, 3, 4, 5, 6)
	rnd := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		got := app.OrderQuestions(input, true, rnd.Intn)
		if len(got) != len(input) {
			t.Fatalf("expected %d questions, got %d", len(input), len(got))
		}
		ids := idsOf(got)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for i, id := range ids {
			if id != int64(i+1) {
				t.Fatalf("expected a permutation of 1..6, got %v", idsOf(got))
			}
		}
	}
}

func TestOrderQuestionsShuffleVaries(t *testing.T) {
	input := questionsWithIDs(1, 2, 3)
	seen := map[string]bool{}
	for run := 0; run < 200 && len(seen) < 2; run++ {
		seen[orderKey(app.OrderQuestions(input, true, nil))] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected at least two distinct orderings, saw %v", seen)
	}
}

func TestOrderQuestionsFisherYatesDraws(t *testing.T) {
	input := questionsWithIDs(1, 2, 3, 4)
	var bounds []int
	// always swap with index 0
	got := app.OrderQuestions(input, true, func(n int) int {
		bounds = append(bounds, n)
		return 0
	})

	if len(bounds) != 3 || bounds[0] != 4 || bounds[1] != 3 || bounds[2] != 2 {
		t.Fatalf("expected draws over [0,i] for i=3..1, got %v", bounds)
	}
	if key := orderKey(got); key != "2,3,4,1" {
		t.Fatalf("unexpected order %s", key)
	}
}

func TestOrderQuestionsDoesNotMutateInput(t *testing.T) {
	input := questionsWithIDs(1, 2, 3, 4, 5)
	_ = app.OrderQuestions(input, true, func(n int) int { return 0 })

	if key := orderKey(input); key != "1,2,3,4,5" {
		t.Fatalf("input mutated: %s", key)
	}
	if input[0].Answers[0].ID != 10 || input[0].Answers[1].ID != 11 {
		t.Fatalf("answer order mutated: %+v", input[0].Answers)
	}
}

func orderKey(qs []domain.Question) string {
	parts := make([]string, 0, len(qs))
	for _, id := range idsOf(qs) {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
