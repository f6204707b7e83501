package domain

import "time"

// Quiz is a named collection of multiple-choice questions owned by one user.
type Quiz struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
	Owner       string     `json:"owner"`
	Public      bool       `json:"public"`
	Copyable    bool       `json:"copyable"`
	Random      bool       `json:"random"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions,omitempty"`
}

// VisibleTo reports whether userID may read or play the quiz.
func (q Quiz) VisibleTo(userID string) bool {
	return q.Public || q.Owner == userID
}

// CopyableBy reports whether userID may duplicate the quiz.
func (q Quiz) CopyableBy(userID string) bool {
	return (q.Public && q.Copyable) || q.Owner == userID
}

// Question belongs to exactly one quiz. Answers keep their stored (id) order.
type Question struct {
	ID                int64    `json:"id"`
	QuizID            int64    `json:"quizId"`
	Text              string   `json:"text"`
	AnswerDescription *string  `json:"answerDescription,omitempty"`
	Thumbnail         *string  `json:"thumbnail,omitempty"`
	Answers           []Answer `json:"answers,omitempty"`
}

// CorrectAnswerIDs returns the set of answer ids flagged correct. More than one may be.
func (q Question) CorrectAnswerIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

// Answer is one selectable option of a question.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Like records that a user liked a quiz. At most one per (quiz, user).
type Like struct {
	ID     int64  `json:"id"`
	QuizID int64  `json:"quizId"`
	UserID string `json:"userId"`
}

// QuizInfo is a quiz together with its aggregate counters.
type QuizInfo struct {
	Quiz      Quiz `json:"quiz"`
	Likes     int  `json:"likes"`
	Questions int  `json:"questions"`
}

// QuizOrder selects the sort order of quiz listings.
type QuizOrder string

const (
	OrderNew     QuizOrder = "new"
	OrderPopular QuizOrder = "popular"
)

// ListFilter narrows a quiz listing.
//
// Owner restricts results to one owner. PublicOnly hides private quizzes.
// VisibleTo, when set, keeps quizzes that are public or owned by that user.
type ListFilter struct {
	Query      string
	Owner      string
	PublicOnly bool
	VisibleTo  string
	Order      QuizOrder
	Limit      int
}

// QuestionResult is the outcome of one presented question.
type QuestionResult struct {
	QuestionID       int64  `json:"questionId"`
	SelectedAnswerID *int64 `json:"selectedAnswerId,omitempty"`
	Correct          bool   `json:"correct"`
}

// SessionResult summarizes a finished play session.
type SessionResult struct {
	SessionID      string           `json:"sessionId"`
	QuizID         int64            `json:"quizId"`
	TotalQuestions int              `json:"totalQuestions"`
	CorrectCount   int              `json:"correctCount"`
	Results        []QuestionResult `json:"results"`
	StartedAt      time.Time        `json:"startedAt"`
	FinishedAt     time.Time        `json:"finishedAt"`
}
