package app

import (
	"context"

	"quizbot/internal/domain"
)

// Repository is the durable quiz store consumed by the play and copy engines.
// Lookups of missing rows return the matching domain not-found error.
type Repository interface {
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	GetQuizWithQuestions(ctx context.Context, id int64, includeAnswers bool) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.ListFilter) ([]domain.Quiz, error)
	QuizStats(ctx context.Context, id int64) (likes int, questions int, err error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error

	GetQuestion(ctx context.Context, id int64, includeAnswers bool) (domain.Question, error)
	CreateQuestion(ctx context.Context, quizID int64, question domain.Question) (domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	GetAnswer(ctx context.Context, id int64) (domain.Answer, error)
	CreateAnswersBatch(ctx context.Context, questionID int64, answers []domain.Answer) ([]domain.Answer, error)
	UpdateAnswer(ctx context.Context, answer domain.Answer) error
	DeleteAnswer(ctx context.Context, id int64) error

	FindLike(ctx context.Context, quizID int64, userID string) (domain.Like, bool, error)
	CreateLike(ctx context.Context, quizID int64, userID string) (domain.Like, error)
	DeleteLike(ctx context.Context, quizID int64, userID string) error
}

// Transactor is implemented by repositories that can run a unit of work atomically.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// SnapshotSource loads the read-only quiz graph a play session runs against.
type SnapshotSource interface {
	GetQuizWithQuestions(ctx context.Context, id int64, includeAnswers bool) (domain.Quiz, error)
}

// SnapshotInvalidator drops cached snapshots after the quiz content changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, quizID int64) error
}

// SessionRegistry tracks which users currently have a play session running.
type SessionRegistry interface {
	// Acquire marks userID as playing. It returns domain.ErrSessionActive when
	// the user already holds a session; otherwise the caller must invoke release.
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

// Option is one selectable answer as shown to the participant.
type Option struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// Prompt is the rendering of one question. It never exposes answer correctness.
type Prompt struct {
	Number    int      `json:"number"`
	Total     int      `json:"total"`
	Text      string   `json:"text"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Options   []Option `json:"options"`
}

// Selection is how an await resolved: a token, or a timeout.
type Selection struct {
	Token    string
	TimedOut bool
}

// Channel is the interaction surface between a play session and its participant.
type Channel interface {
	// PresentQuestion renders prompt, replacing any previous rendering for the session.
	PresentQuestion(ctx context.Context, prompt Prompt) error
	// AwaitSelection blocks until the participant selects an option or the
	// channel's own timeout elapses. Timeouts are reported as Selection.TimedOut.
	AwaitSelection(ctx context.Context) (Selection, error)
}
