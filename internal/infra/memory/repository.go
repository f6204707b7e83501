package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quizbot/internal/domain"
)

// Repository is an in-process implementation of app.Repository.
// It backs demos and tests; nothing survives a restart.
type Repository struct {
	mu        sync.RWMutex
	seq       int64
	clock     func() time.Time
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	answers   map[int64]domain.Answer
	likes     map[int64]domain.Like
}

func NewRepository() *Repository {
	return &Repository{
		clock:     time.Now,
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		answers:   make(map[int64]domain.Answer),
		likes:     make(map[int64]domain.Like),
	}
}

// Seed stores a whole quiz graph and returns it with the assigned ids.
func (r *Repository) Seed(quiz domain.Quiz) domain.Quiz {
	r.mu.Lock()
	defer r.mu.Unlock()

	questions := quiz.Questions
	quiz = r.insertQuizLocked(quiz)
	quiz.Questions = make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		answers := q.Answers
		q = r.insertQuestionLocked(quiz.ID, q)
		q.Answers = r.insertAnswersLocked(q.ID, answers)
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}

func (r *Repository) nextIDLocked() int64 {
	r.seq++
	return r.seq
}

func (r *Repository) insertQuizLocked(quiz domain.Quiz) domain.Quiz {
	quiz.ID = r.nextIDLocked()
	quiz.Questions = nil
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = r.clock()
	}
	r.quizzes[quiz.ID] = quiz
	return quiz
}

func (r *Repository) insertQuestionLocked(quizID int64, q domain.Question) domain.Question {
	q.ID = r.nextIDLocked()
	q.QuizID = quizID
	q.Answers = nil
	r.questions[q.ID] = q
	return q
}

func (r *Repository) insertAnswersLocked(questionID int64, answers []domain.Answer) []domain.Answer {
	created := make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		a.ID = r.nextIDLocked()
		a.QuestionID = questionID
		r.answers[a.ID] = a
		created = append(created, a)
	}
	return created
}

func (r *Repository) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (r *Repository) GetQuizWithQuestions(_ context.Context, id int64, includeAnswers bool) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz.Questions = []domain.Question{}
	for _, q := range r.questions {
		if q.QuizID != id {
			continue
		}
		if includeAnswers {
			q.Answers = r.answersOfLocked(q.ID)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	sort.Slice(quiz.Questions, func(i, j int) bool { return quiz.Questions[i].ID < quiz.Questions[j].ID })
	return quiz, nil
}

func (r *Repository) answersOfLocked(questionID int64) []domain.Answer {
	answers := []domain.Answer{}
	for _, a := range r.answers {
		if a.QuestionID == questionID {
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers
}

func (r *Repository) ListQuizzes(_ context.Context, filter domain.ListFilter) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	likes := r.likeCountsLocked()
	matched := make([]domain.Quiz, 0)
	for _, quiz := range r.quizzes {
		if query != "" && !strings.Contains(strings.ToLower(quiz.Name), query) {
			continue
		}
		if filter.Owner != "" && quiz.Owner != filter.Owner {
			continue
		}
		if filter.PublicOnly && !quiz.Public {
			continue
		}
		if filter.VisibleTo != "" && !quiz.VisibleTo(filter.VisibleTo) {
			continue
		}
		matched = append(matched, quiz)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.Order == domain.OrderPopular && likes[a.ID] != likes[b.ID] {
			return likes[a.ID] > likes[b.ID]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *Repository) likeCountsLocked() map[int64]int {
	counts := make(map[int64]int)
	for _, l := range r.likes {
		counts[l.QuizID]++
	}
	return counts
}

func (r *Repository) QuizStats(_ context.Context, id int64) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.quizzes[id]; !ok {
		return 0, 0, domain.ErrQuizNotFound
	}
	questions := 0
	for _, q := range r.questions {
		if q.QuizID == id {
			questions++
		}
	}
	return r.likeCountsLocked()[id], questions, nil
}

func (r *Repository) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertQuizLocked(quiz), nil
}

func (r *Repository) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Questions = nil
	quiz.CreatedAt = current.CreatedAt
	r.quizzes[quiz.ID] = quiz
	return nil
}

func (r *Repository) DeleteQuiz(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.quizzes, id)
	for qid, q := range r.questions {
		if q.QuizID == id {
			r.deleteQuestionLocked(qid)
		}
	}
	for lid, l := range r.likes {
		if l.QuizID == id {
			delete(r.likes, lid)
		}
	}
	return nil
}

func (r *Repository) GetQuestion(_ context.Context, id int64, includeAnswers bool) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if includeAnswers {
		q.Answers = r.answersOfLocked(id)
	}
	return q, nil
}

func (r *Repository) CreateQuestion(_ context.Context, quizID int64, question domain.Question) (domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[quizID]; !ok {
		return domain.Question{}, domain.ErrQuizNotFound
	}
	return r.insertQuestionLocked(quizID, question), nil
}

func (r *Repository) UpdateQuestion(_ context.Context, question domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.questions[question.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	question.QuizID = current.QuizID
	question.Answers = nil
	r.questions[question.ID] = question
	return nil
}

func (r *Repository) DeleteQuestion(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	r.deleteQuestionLocked(id)
	return nil
}

func (r *Repository) deleteQuestionLocked(id int64) {
	delete(r.questions, id)
	for aid, a := range r.answers {
		if a.QuestionID == id {
			delete(r.answers, aid)
		}
	}
}

func (r *Repository) GetAnswer(_ context.Context, id int64) (domain.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.answers[id]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return a, nil
}

func (r *Repository) CreateAnswersBatch(_ context.Context, questionID int64, answers []domain.Answer) ([]domain.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[questionID]; !ok {
		return nil, domain.ErrQuestionNotFound
	}
	return r.insertAnswersLocked(questionID, answers), nil
}

func (r *Repository) UpdateAnswer(_ context.Context, answer domain.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.answers[answer.ID]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	answer.QuestionID = current.QuestionID
	r.answers[answer.ID] = answer
	return nil
}

func (r *Repository) DeleteAnswer(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.answers[id]; !ok {
		return domain.ErrAnswerNotFound
	}
	delete(r.answers, id)
	return nil
}

func (r *Repository) FindLike(_ context.Context, quizID int64, userID string) (domain.Like, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.likes {
		if l.QuizID == quizID && l.UserID == userID {
			return l, true, nil
		}
	}
	return domain.Like{}, false, nil
}

func (r *Repository) CreateLike(_ context.Context, quizID int64, userID string) (domain.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quizzes[quizID]; !ok {
		return domain.Like{}, domain.ErrQuizNotFound
	}
	like := domain.Like{ID: r.nextIDLocked(), QuizID: quizID, UserID: userID}
	r.likes[like.ID] = like
	return like, nil
}

func (r *Repository) DeleteLike(_ context.Context, quizID int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.likes {
		if l.QuizID == quizID && l.UserID == userID {
			delete(r.likes, id)
		}
	}
	return nil
}
