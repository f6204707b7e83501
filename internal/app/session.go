package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"quizbot/internal/domain"
)

// Phase is the position of a session inside the per-question cycle.
type Phase int

const (
	PhasePresenting Phase = iota
	PhaseAwaiting
	PhaseScored
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhasePresenting:
		return "presenting"
	case PhaseAwaiting:
		return "awaiting"
	case PhaseScored:
		return "scored"
	case PhaseCompleted:
		return "completed"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// State is the current phase and the index of the question it applies to.
type State struct {
	Phase Phase
	Index int
}

// ErrSessionCompleted is returned when stepping a session that already finished.
var ErrSessionCompleted = errors.New("session already completed")

// Session drives one participant through an ordered question list.
// A session is not safe for concurrent use; it is owned by a single play request.
type Session struct {
	id        string
	quizID    int64
	questions []domain.Question
	now       func() time.Time

	state     State
	presented map[string]int64
	correct   int
	results   []domain.QuestionResult
	rejected  int
	startedAt time.Time
	endedAt   time.Time
}

// NewSession creates a session over an already ordered question list.
func NewSession(quizID int64, ordered []domain.Question) *Session {
	return NewSessionWithClock(quizID, ordered, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(quizID int64, ordered []domain.Question, now func() time.Time) *Session {
	s := &Session{
		id:        uuid.NewString(),
		quizID:    quizID,
		questions: ordered,
		now:       now,
		results:   make([]domain.QuestionResult, 0, len(ordered)),
		startedAt: now(),
	}
	if len(ordered) == 0 {
		s.state = State{Phase: PhaseCompleted}
		s.endedAt = s.startedAt
	}
	return s
}

// ID returns the session identifier used for log correlation.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Rejected counts selections ignored because they did not belong to the current question.
func (s *Session) Rejected() int { return s.rejected }

// Run steps the session until it completes, the context is cancelled or the channel fails.
func (s *Session) Run(ctx context.Context, ch Channel) (domain.SessionResult, error) {
	for s.state.Phase != PhaseCompleted {
		if err := ctx.Err(); err != nil {
			return domain.SessionResult{}, err
		}
		if err := s.Step(ctx, ch); err != nil {
			return domain.SessionResult{}, err
		}
	}
	return s.Result(), nil
}

// Step performs exactly one transition. While awaiting, a selection that does
// not belong to the current question leaves the state unchanged.
func (s *Session) Step(ctx context.Context, ch Channel) error {
	switch s.state.Phase {
	case PhasePresenting:
		return s.present(ctx, ch)
	case PhaseAwaiting:
		return s.await(ctx, ch)
	case PhaseScored:
		s.advance()
		return nil
	default:
		return ErrSessionCompleted
	}
}

func (s *Session) present(ctx context.Context, ch Channel) error {
	question := s.questions[s.state.Index]

	prompt := Prompt{
		Number:  s.state.Index + 1,
		Total:   len(s.questions),
		Text:    question.Text,
		Options: make([]Option, 0, len(question.Answers)),
	}
	if question.Thumbnail != nil {
		prompt.Thumbnail = *question.Thumbnail
	}

	s.presented = make(map[string]int64, len(question.Answers))
	for i, answer := range question.Answers {
		token := answerToken(answer.ID)
		s.presented[token] = answer.ID
		prompt.Options = append(prompt.Options, Option{
			Token: token,
			Label: fmt.Sprintf("%d. %s", i+1, answer.Text),
		})
	}

	if err := ch.PresentQuestion(ctx, prompt); err != nil {
		return fmt.Errorf("present question %d: %w", question.ID, err)
	}
	s.state.Phase = PhaseAwaiting
	return nil
}

func (s *Session) await(ctx context.Context, ch Channel) error {
	selection, err := ch.AwaitSelection(ctx)
	if err != nil {
		return fmt.Errorf("await selection: %w", err)
	}

	if selection.TimedOut {
		s.score(nil)
		return nil
	}

	answerID, ok := s.presented[selection.Token]
	if !ok {
		s.rejected++
		return nil
	}
	s.score(&answerID)
	return nil
}

func (s *Session) score(answerID *int64) {
	question := s.questions[s.state.Index]

	correct := false
	if answerID != nil {
		_, correct = question.CorrectAnswerIDs()[*answerID]
	}
	if correct {
		s.correct++
	}
	s.results = append(s.results, domain.QuestionResult{
		QuestionID:       question.ID,
		SelectedAnswerID: answerID,
		Correct:          correct,
	})
	s.presented = nil
	s.state.Phase = PhaseScored
}

func (s *Session) advance() {
	next := s.state.Index + 1
	if next >= len(s.questions) {
		s.state = State{Phase: PhaseCompleted, Index: next}
		s.endedAt = s.now()
		return
	}
	s.state = State{Phase: PhasePresenting, Index: next}
}

// Result returns the running or final summary.
func (s *Session) Result() domain.SessionResult {
	results := make([]domain.QuestionResult, len(s.results))
	copy(results, s.results)
	return domain.SessionResult{
		SessionID:      s.id,
		QuizID:         s.quizID,
		TotalQuestions: len(s.questions),
		CorrectCount:   s.correct,
		Results:        results,
		StartedAt:      s.startedAt,
		FinishedAt:     s.endedAt,
	}
}

func answerToken(answerID int64) string {
	return strconv.FormatInt(answerID, 10)
}
