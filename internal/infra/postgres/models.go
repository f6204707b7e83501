package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizbot/internal/domain"
)

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description *string   `bun:"description"`
	Thumbnail   *string   `bun:"thumbnail"`
	Owner       string    `bun:"owner,notnull"`
	Public      bool      `bun:"public,notnull"`
	Copyable    bool      `bun:"copyable,notnull"`
	Random      bool      `bun:"random,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type questionModel struct {
	bun.BaseModel `bun:"table:quiz_questions,alias:qq"`

	ID                int64   `bun:"id,pk,autoincrement"`
	QuizID            int64   `bun:"quiz_id,notnull"`
	Text              string  `bun:"text,notnull"`
	AnswerDescription *string `bun:"answer_description"`
	Thumbnail         *string `bun:"thumbnail"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:quiz_answers,alias:qa"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
}

type likeModel struct {
	bun.BaseModel `bun:"table:quiz_likes,alias:ql"`

	ID     int64  `bun:"id,pk,autoincrement"`
	QuizID int64  `bun:"quiz_id,notnull"`
	UserID string `bun:"user_id,notnull"`
}

func newQuizModel(q domain.Quiz) quizModel {
	return quizModel{
		ID:          q.ID,
		Name:        q.Name,
		Description: q.Description,
		Thumbnail:   q.Thumbnail,
		Owner:       q.Owner,
		Public:      q.Public,
		Copyable:    q.Copyable,
		Random:      q.Random,
		CreatedAt:   q.CreatedAt,
	}
}

func (m quizModel) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Thumbnail:   m.Thumbnail,
		Owner:       m.Owner,
		Public:      m.Public,
		Copyable:    m.Copyable,
		Random:      m.Random,
		CreatedAt:   m.CreatedAt,
	}
}

func newQuestionModel(quizID int64, q domain.Question) questionModel {
	return questionModel{
		ID:                q.ID,
		QuizID:            quizID,
		Text:              q.Text,
		AnswerDescription: q.AnswerDescription,
		Thumbnail:         q.Thumbnail,
	}
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:                m.ID,
		QuizID:            m.QuizID,
		Text:              m.Text,
		AnswerDescription: m.AnswerDescription,
		Thumbnail:         m.Thumbnail,
	}
}

func (m answerModel) toDomain() domain.Answer {
	return domain.Answer{
		ID:         m.ID,
		QuestionID: m.QuestionID,
		Text:       m.Text,
		IsCorrect:  m.IsCorrect,
	}
}

func (m likeModel) toDomain() domain.Like {
	return domain.Like{ID: m.ID, QuizID: m.QuizID, UserID: m.UserID}
}
