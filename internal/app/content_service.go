package app

import (
	"context"

	"quizbot/internal/domain"
)

// AddQuestion appends a question to a quiz owned by userID.
func (s *QuizService) AddQuestion(ctx context.Context, quizID int64, userID string, in domain.QuestionInput) (domain.Question, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Question{}, err
	}
	if _, err := s.ownedQuiz(ctx, quizID, userID); err != nil {
		return domain.Question{}, err
	}
	question, err := s.repo.CreateQuestion(ctx, quizID, domain.Question{
		Text:              in.Text,
		AnswerDescription: in.AnswerDescription,
		Thumbnail:         in.Thumbnail,
	})
	if err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return question, nil
}

// EditQuestion applies patch to a question of a quiz owned by userID.
func (s *QuizService) EditQuestion(ctx context.Context, questionID int64, userID string, patch domain.QuestionPatch) (domain.Question, error) {
	if err := domain.Validate(patch); err != nil {
		return domain.Question{}, err
	}
	question, err := s.ownedQuestion(ctx, questionID, userID, false)
	if err != nil {
		return domain.Question{}, err
	}

	if patch.Text != nil {
		question.Text = *patch.Text
	}
	if patch.AnswerDescription != nil {
		question.AnswerDescription = domain.Cleared(patch.AnswerDescription)
	}
	if patch.Thumbnail != nil {
		question.Thumbnail = domain.Cleared(patch.Thumbnail)
	}

	if err := s.repo.UpdateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, question.QuizID)
	return question, nil
}

// RemoveQuestion deletes a question and its answers.
func (s *QuizService) RemoveQuestion(ctx context.Context, questionID int64, userID string) error {
	question, err := s.ownedQuestion(ctx, questionID, userID, false)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	s.invalidate(ctx, question.QuizID)
	return nil
}

// ListQuestions returns the questions of a quiz owned by userID, in stored order.
func (s *QuizService) ListQuestions(ctx context.Context, quizID int64, userID string) ([]domain.Question, error) {
	quiz, err := s.repo.GetQuizWithQuestions(ctx, quizID, false)
	if err != nil {
		return nil, err
	}
	if quiz.Owner != userID {
		return nil, domain.ErrNotAuthorized
	}
	return quiz.Questions, nil
}

// QuestionInfo returns a question with its answers. Only the quiz owner may see it,
// since the answers carry their correctness.
func (s *QuizService) QuestionInfo(ctx context.Context, questionID int64, userID string) (domain.Question, error) {
	return s.ownedQuestion(ctx, questionID, userID, true)
}

// AddAnswer appends an answer to a question of a quiz owned by userID.
func (s *QuizService) AddAnswer(ctx context.Context, questionID int64, userID string, in domain.AnswerInput) (domain.Answer, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Answer{}, err
	}
	question, err := s.ownedQuestion(ctx, questionID, userID, false)
	if err != nil {
		return domain.Answer{}, err
	}
	created, err := s.repo.CreateAnswersBatch(ctx, questionID, []domain.Answer{{Text: in.Text, IsCorrect: in.IsCorrect}})
	if err != nil {
		return domain.Answer{}, err
	}
	s.invalidate(ctx, question.QuizID)
	return created[0], nil
}

// EditAnswer applies patch to an answer.
func (s *QuizService) EditAnswer(ctx context.Context, answerID int64, userID string, patch domain.AnswerPatch) (domain.Answer, error) {
	if err := domain.Validate(patch); err != nil {
		return domain.Answer{}, err
	}
	answer, question, err := s.ownedAnswer(ctx, answerID, userID)
	if err != nil {
		return domain.Answer{}, err
	}

	if patch.Text != nil {
		answer.Text = *patch.Text
	}
	if patch.IsCorrect != nil {
		answer.IsCorrect = *patch.IsCorrect
	}

	if err := s.repo.UpdateAnswer(ctx, answer); err != nil {
		return domain.Answer{}, err
	}
	s.invalidate(ctx, question.QuizID)
	return answer, nil
}

// RemoveAnswer deletes an answer.
func (s *QuizService) RemoveAnswer(ctx context.Context, answerID int64, userID string) error {
	_, question, err := s.ownedAnswer(ctx, answerID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAnswer(ctx, answerID); err != nil {
		return err
	}
	s.invalidate(ctx, question.QuizID)
	return nil
}

func (s *QuizService) ownedQuestion(ctx context.Context, questionID int64, userID string, includeAnswers bool) (domain.Question, error) {
	question, err := s.repo.GetQuestion(ctx, questionID, includeAnswers)
	if err != nil {
		return domain.Question{}, err
	}
	if _, err := s.ownedQuiz(ctx, question.QuizID, userID); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *QuizService) ownedAnswer(ctx context.Context, answerID int64, userID string) (domain.Answer, domain.Question, error) {
	answer, err := s.repo.GetAnswer(ctx, answerID)
	if err != nil {
		return domain.Answer{}, domain.Question{}, err
	}
	question, err := s.ownedQuestion(ctx, answer.QuestionID, userID, false)
	if err != nil {
		return domain.Answer{}, domain.Question{}, err
	}
	return answer, question, nil
}
