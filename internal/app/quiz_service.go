package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"quizbot/internal/config"
	"quizbot/internal/domain"
)

// MaxListed caps the number of quizzes returned by a listing.
const MaxListed = 25

// QuizService contains the quiz use cases exposed to the front ends.
type QuizService struct {
	repo      Repository
	snapshots SnapshotSource
	sessions  SessionRegistry
	intn      func(n int) int
	now       func() time.Time
}

// ServiceOption customizes a QuizService.
type ServiceOption func(*QuizService)

// WithSnapshots sets where play sessions load quiz graphs from (a cache, usually).
func WithSnapshots(src SnapshotSource) ServiceOption {
	return func(s *QuizService) { s.snapshots = src }
}

// WithSessionRegistry enforces one running play per user.
func WithSessionRegistry(registry SessionRegistry) ServiceOption {
	return func(s *QuizService) { s.sessions = registry }
}

// WithRandom replaces the source used to shuffle questions.
func WithRandom(intn func(n int) int) ServiceOption {
	return func(s *QuizService) { s.intn = intn }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(repo Repository, opts ...ServiceOption) *QuizService {
	s := &QuizService{repo: repo, snapshots: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlayQuiz runs one participant through the quiz over ch and returns the score.
// The quiz must be public or owned by userID.
func (s *QuizService) PlayQuiz(ctx context.Context, quizID int64, userID string, ch Channel) (domain.SessionResult, error) {
	quiz, err := s.snapshots.GetQuizWithQuestions(ctx, quizID, true)
	if err != nil {
		return domain.SessionResult{}, err
	}
	if !quiz.VisibleTo(userID) {
		return domain.SessionResult{}, domain.ErrQuizNotFound
	}

	if s.sessions != nil {
		release, err := s.sessions.Acquire(ctx, userID)
		if err != nil {
			return domain.SessionResult{}, err
		}
		defer release()
	}

	session := NewSessionWithClock(quiz.ID, OrderQuestions(quiz.Questions, quiz.Random, s.intn), s.now)
	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"session_id": session.ID(),
		"quiz_id":    quiz.ID,
		"user_id":    userID,
	})
	log.WithField("questions", len(quiz.Questions)).Info("quiz session started")

	result, err := session.Run(ctx, ch)
	if err != nil {
		log.WithError(err).Warn("quiz session stopped")
		return domain.SessionResult{}, err
	}
	log.WithFields(logrus.Fields{
		"correct":  result.CorrectCount,
		"total":    result.TotalQuestions,
		"rejected": session.Rejected(),
	}).Info("quiz session completed")
	return result, nil
}

// CopyQuiz duplicates a quiz (and optionally its questions) for userID and
// returns the new quiz id. When the repository supports transactions the whole
// copy is atomic.
func (s *QuizService) CopyQuiz(ctx context.Context, quizID int64, includeQuestions bool, userID string) (int64, error) {
	var newID int64
	copyQuiz := func(ctx context.Context, repo Repository) error {
		var (
			source domain.Quiz
			err    error
		)
		if includeQuestions {
			source, err = repo.GetQuizWithQuestions(ctx, quizID, true)
		} else {
			source, err = repo.GetQuiz(ctx, quizID)
		}
		if err != nil {
			return err
		}
		if !source.VisibleTo(userID) {
			return domain.ErrQuizNotFound
		}
		if !source.CopyableBy(userID) {
			return domain.ErrNotAuthorized
		}

		dup := NewDuplicator(repo)
		dup.now = s.now
		created, err := dup.Duplicate(ctx, source, includeQuestions, userID)
		if err != nil {
			return err
		}
		newID = created.ID
		return nil
	}

	var err error
	if tx, ok := s.repo.(Transactor); ok {
		err = tx.RunInTx(ctx, copyQuiz)
	} else {
		err = copyQuiz(ctx, s.repo)
	}
	if err != nil {
		return 0, err
	}

	config.WithContext(ctx).WithFields(logrus.Fields{
		"quiz_id":   quizID,
		"copy_id":   newID,
		"user_id":   userID,
		"questions": includeQuestions,
	}).Info("quiz copied")
	return newID, nil
}

// CreateQuiz stores a new quiz owned by owner.
func (s *QuizService) CreateQuiz(ctx context.Context, owner string, in domain.QuizInput) (domain.Quiz, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Quiz{}, err
	}
	return s.repo.CreateQuiz(ctx, domain.Quiz{
		Name:        in.Name,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		Owner:       owner,
		Public:      in.Public,
		Copyable:    in.Copyable,
		Random:      in.Random,
		CreatedAt:   s.now(),
	})
}

// EditQuiz applies patch to a quiz owned by userID.
func (s *QuizService) EditQuiz(ctx context.Context, quizID int64, userID string, patch domain.QuizPatch) (domain.Quiz, error) {
	if err := domain.Validate(patch); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.ownedQuiz(ctx, quizID, userID)
	if err != nil {
		return domain.Quiz{}, err
	}

	if patch.Name != nil {
		quiz.Name = *patch.Name
	}
	if patch.Description != nil {
		quiz.Description = domain.Cleared(patch.Description)
	}
	if patch.Thumbnail != nil {
		quiz.Thumbnail = domain.Cleared(patch.Thumbnail)
	}
	if patch.Public != nil {
		quiz.Public = *patch.Public
	}
	if patch.Copyable != nil {
		quiz.Copyable = *patch.Copyable
	}
	if patch.Random != nil {
		quiz.Random = *patch.Random
	}

	if err := s.repo.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// DeleteQuiz removes a quiz owned by userID together with its questions, answers and likes.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID int64, userID string) error {
	if _, err := s.ownedQuiz(ctx, quizID, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// QuizInfo returns a visible quiz with its like and question counts.
func (s *QuizService) QuizInfo(ctx context.Context, quizID int64, userID string) (domain.QuizInfo, error) {
	quiz, err := s.visibleQuiz(ctx, quizID, userID)
	if err != nil {
		return domain.QuizInfo{}, err
	}
	likes, questions, err := s.repo.QuizStats(ctx, quizID)
	if err != nil {
		return domain.QuizInfo{}, err
	}
	return domain.QuizInfo{Quiz: quiz, Likes: likes, Questions: questions}, nil
}

// ListQuizzes searches quizzes by name. With owner set only that owner's quizzes
// are listed, and only public ones unless owner is the requester.
func (s *QuizService) ListQuizzes(ctx context.Context, userID, query, owner string, order domain.QuizOrder) ([]domain.Quiz, error) {
	if order == "" {
		order = domain.OrderNew
	}
	filter := domain.ListFilter{Query: query, Order: order, Limit: MaxListed}
	if owner != "" {
		filter.Owner = owner
		filter.PublicOnly = owner != userID
	} else {
		filter.VisibleTo = userID
	}
	return s.repo.ListQuizzes(ctx, filter)
}

// SetLike likes or unlikes a visible quiz. A nil like toggles the current state.
// It returns whether the quiz is liked afterwards.
func (s *QuizService) SetLike(ctx context.Context, quizID int64, userID string, like *bool) (bool, error) {
	if _, err := s.visibleQuiz(ctx, quizID, userID); err != nil {
		return false, err
	}
	_, found, err := s.repo.FindLike(ctx, quizID, userID)
	if err != nil {
		return false, err
	}

	shouldLike := !found
	if like != nil {
		shouldLike = *like
	}

	switch {
	case shouldLike && !found:
		if _, err := s.repo.CreateLike(ctx, quizID, userID); err != nil {
			return false, err
		}
	case !shouldLike && found:
		if err := s.repo.DeleteLike(ctx, quizID, userID); err != nil {
			return false, err
		}
	}
	return shouldLike, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, quizID int64, userID string) (domain.Quiz, error) {
	quiz, err := s.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Owner != userID {
		return domain.Quiz{}, domain.ErrNotAuthorized
	}
	return quiz, nil
}

func (s *QuizService) visibleQuiz(ctx context.Context, quizID int64, userID string) (domain.Quiz, error) {
	quiz, err := s.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.VisibleTo(userID) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID int64) {
	inv, ok := s.snapshots.(SnapshotInvalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, quizID); err != nil {
		config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("snapshot invalidation failed")
	}
}
