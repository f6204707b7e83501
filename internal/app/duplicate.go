package app

import (
	"context"
	"fmt"
	"time"

	"quizbot/internal/domain"
)

const copySuffix = " (Copy)"

// Duplicator deep-copies a quiz graph into new rows owned by another user.
type Duplicator struct {
	repo Repository
	now  func() time.Time
}

func NewDuplicator(repo Repository) *Duplicator {
	return &Duplicator{repo: repo, now: time.Now}
}

// Duplicate creates the copy of source. Authorization is the caller's job.
//
// Writes are independent: a failure is returned as soon as it happens and rows
// already created are left in place. Wrap the call in a transaction for atomicity.
func (d *Duplicator) Duplicate(ctx context.Context, source domain.Quiz, includeQuestions bool, newOwner string) (domain.Quiz, error) {
	created, err := d.repo.CreateQuiz(ctx, domain.Quiz{
		Name:        source.Name + copySuffix,
		Description: cloneString(source.Description),
		Thumbnail:   cloneString(source.Thumbnail),
		Owner:       newOwner,
		Public:      source.Public,
		Copyable:    source.Copyable,
		Random:      source.Random,
		CreatedAt:   d.now(),
	})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("copy quiz %d: %w", source.ID, err)
	}
	if !includeQuestions {
		return created, nil
	}

	created.Questions = make([]domain.Question, 0, len(source.Questions))
	for _, question := range source.Questions {
		// question thumbnails are intentionally not carried over
		newQuestion, err := d.repo.CreateQuestion(ctx, created.ID, domain.Question{
			Text:              question.Text,
			AnswerDescription: cloneString(question.AnswerDescription),
		})
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("copy question %d: %w", question.ID, err)
		}

		if len(question.Answers) > 0 {
			answers := make([]domain.Answer, 0, len(question.Answers))
			for _, answer := range question.Answers {
				answers = append(answers, domain.Answer{Text: answer.Text, IsCorrect: answer.IsCorrect})
			}
			newQuestion.Answers, err = d.repo.CreateAnswersBatch(ctx, newQuestion.ID, answers)
			if err != nil {
				return domain.Quiz{}, fmt.Errorf("copy answers of question %d: %w", question.ID, err)
			}
		}
		created.Questions = append(created.Questions, newQuestion)
	}
	return created, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
