package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbot/internal/domain"
)

// SnapshotLoader reads a quiz graph straight from Postgres with pgx. Play
// sessions load through it (behind the snapshot cache) so the hot path skips
// the ORM.
type SnapshotLoader struct {
	pool *pgxpool.Pool
}

func NewSnapshotLoader(pool *pgxpool.Pool) *SnapshotLoader {
	return &SnapshotLoader{pool: pool}
}

func (l *SnapshotLoader) GetQuizWithQuestions(ctx context.Context, quizID int64, includeAnswers bool) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx, `
		SELECT id, name, description, thumbnail, owner, public, copyable, random, created_at
		FROM quizzes WHERE id = $1`, quizID,
	).Scan(&quiz.ID, &quiz.Name, &quiz.Description, &quiz.Thumbnail, &quiz.Owner,
		&quiz.Public, &quiz.Copyable, &quiz.Random, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	quiz.Questions, err = l.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !includeAnswers || len(quiz.Questions) == 0 {
		return quiz, nil
	}

	answers, err := l.loadAnswers(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	for i := range quiz.Questions {
		quiz.Questions[i].Answers = answers[quiz.Questions[i].ID]
	}
	return quiz, nil
}

func (l *SnapshotLoader) loadQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, quiz_id, text, answer_description, thumbnail
		FROM quiz_questions WHERE quiz_id = $1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.AnswerDescription, &q.Thumbnail); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *SnapshotLoader) loadAnswers(ctx context.Context, quizID int64) (map[int64][]domain.Answer, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.id, a.question_id, a.text, a.is_correct
		FROM quiz_answers a
		JOIN quiz_questions q ON q.id = a.question_id
		WHERE q.quiz_id = $1
		ORDER BY a.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	answers := make(map[int64][]domain.Answer)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers[a.QuestionID] = append(answers[a.QuestionID], a)
	}
	return answers, rows.Err()
}
