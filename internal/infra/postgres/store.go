package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizbot/internal/app"
	"quizbot/internal/domain"
)

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

var (
	_ app.Repository = (*Store)(nil)
	_ app.Transactor = (*Store)(nil)
)

// Store is the bun-backed implementation of app.Repository and app.Transactor.
type Store struct {
	db  *bun.DB
	idb bun.IDB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, idb: db}
}

// RunInTx runs fn against a Store bound to a single transaction. The
// transaction is rolled back when fn returns an error.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repo app.Repository) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: s.db, idb: &tx})
	})
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var m quizModel
	err := s.idb.NewSelect().Model(&m).Where("q.id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) GetQuizWithQuestions(ctx context.Context, id int64, includeAnswers bool) (domain.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}

	var questions []questionModel
	if err := s.idb.NewSelect().Model(&questions).Where("qq.quiz_id = ?", id).Order("qq.id ASC").Scan(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions of quiz %d: %w", id, err)
	}

	quiz.Questions = make([]domain.Question, 0, len(questions))
	ids := make([]int64, 0, len(questions))
	for _, m := range questions {
		quiz.Questions = append(quiz.Questions, m.toDomain())
		ids = append(ids, m.ID)
	}
	if !includeAnswers || len(ids) == 0 {
		return quiz, nil
	}

	var answers []answerModel
	err = s.idb.NewSelect().Model(&answers).
		Where("qa.question_id IN (?)", bun.In(ids)).
		Order("qa.id ASC").
		Scan(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load answers of quiz %d: %w", id, err)
	}

	byQuestion := make(map[int64][]domain.Answer, len(ids))
	for _, m := range answers {
		byQuestion[m.QuestionID] = append(byQuestion[m.QuestionID], m.toDomain())
	}
	for i := range quiz.Questions {
		quiz.Questions[i].Answers = byQuestion[quiz.Questions[i].ID]
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.ListFilter) ([]domain.Quiz, error) {
	var models []quizModel
	q := s.idb.NewSelect().Model(&models)
	if filter.Query != "" {
		q = q.Where("q.name ILIKE ?", "%"+escapeLike(filter.Query)+"%")
	}
	if filter.Owner != "" {
		q = q.Where("q.owner = ?", filter.Owner)
	}
	if filter.PublicOnly {
		q = q.Where("q.public = TRUE")
	}
	if filter.VisibleTo != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("q.public = TRUE").WhereOr("q.owner = ?", filter.VisibleTo)
		})
	}
	if filter.Order == domain.OrderPopular {
		q = q.OrderExpr("(SELECT COUNT(*) FROM quiz_likes AS ql WHERE ql.quiz_id = q.id) DESC")
	}
	q = q.OrderExpr("q.created_at DESC, q.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(models))
	for _, m := range models {
		quizzes = append(quizzes, m.toDomain())
	}
	return quizzes, nil
}

func (s *Store) QuizStats(ctx context.Context, id int64) (int, int, error) {
	if _, err := s.GetQuiz(ctx, id); err != nil {
		return 0, 0, err
	}
	likes, err := s.idb.NewSelect().Model((*likeModel)(nil)).Where("ql.quiz_id = ?", id).Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count likes of quiz %d: %w", id, err)
	}
	questions, err := s.idb.NewSelect().Model((*questionModel)(nil)).Where("qq.quiz_id = ?", id).Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count questions of quiz %d: %w", id, err)
	}
	return likes, questions, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now()
	}
	m := newQuizModel(quiz)
	m.ID = 0
	if _, err := s.idb.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	m := newQuizModel(quiz)
	res, err := s.idb.NewUpdate().Model(&m).
		Column("name", "description", "thumbnail", "public", "copyable", "random").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz %d: %w", quiz.ID, err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.idb.NewDelete().Model((*quizModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz %d: %w", id, err)
	}
	return expectRow(res, domain.ErrQuizNotFound)
}

func (s *Store) GetQuestion(ctx context.Context, id int64, includeAnswers bool) (domain.Question, error) {
	var m questionModel
	if err := s.idb.NewSelect().Model(&m).Where("qq.id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound)
	}
	question := m.toDomain()
	if !includeAnswers {
		return question, nil
	}

	var answers []answerModel
	if err := s.idb.NewSelect().Model(&answers).Where("qa.question_id = ?", id).Order("qa.id ASC").Scan(ctx); err != nil {
		return domain.Question{}, fmt.Errorf("load answers of question %d: %w", id, err)
	}
	question.Answers = make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		question.Answers = append(question.Answers, a.toDomain())
	}
	return question, nil
}

func (s *Store) CreateQuestion(ctx context.Context, quizID int64, question domain.Question) (domain.Question, error) {
	m := newQuestionModel(quizID, question)
	m.ID = 0
	if _, err := s.idb.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		if hasCode(err, foreignKeyViolation) {
			return domain.Question{}, domain.ErrQuizNotFound
		}
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question domain.Question) error {
	m := newQuestionModel(question.QuizID, question)
	res, err := s.idb.NewUpdate().Model(&m).
		Column("text", "answer_description", "thumbnail").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question %d: %w", question.ID, err)
	}
	return expectRow(res, domain.ErrQuestionNotFound)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.idb.NewDelete().Model((*questionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	return expectRow(res, domain.ErrQuestionNotFound)
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (domain.Answer, error) {
	var m answerModel
	if err := s.idb.NewSelect().Model(&m).Where("qa.id = ?", id).Scan(ctx); err != nil {
		return domain.Answer{}, notFound(err, domain.ErrAnswerNotFound)
	}
	return m.toDomain(), nil
}

// CreateAnswersBatch inserts all answers with one statement, keeping their order.
func (s *Store) CreateAnswersBatch(ctx context.Context, questionID int64, answers []domain.Answer) ([]domain.Answer, error) {
	if len(answers) == 0 {
		return []domain.Answer{}, nil
	}
	models := make([]answerModel, 0, len(answers))
	for _, a := range answers {
		models = append(models, answerModel{QuestionID: questionID, Text: a.Text, IsCorrect: a.IsCorrect})
	}
	if _, err := s.idb.NewInsert().Model(&models).Returning("id").Exec(ctx); err != nil {
		if hasCode(err, foreignKeyViolation) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("insert answers: %w", err)
	}
	created := make([]domain.Answer, 0, len(models))
	for _, m := range models {
		created = append(created, m.toDomain())
	}
	return created, nil
}

func (s *Store) UpdateAnswer(ctx context.Context, answer domain.Answer) error {
	m := answerModel{ID: answer.ID, Text: answer.Text, IsCorrect: answer.IsCorrect}
	res, err := s.idb.NewUpdate().Model(&m).Column("text", "is_correct").WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update answer %d: %w", answer.ID, err)
	}
	return expectRow(res, domain.ErrAnswerNotFound)
}

func (s *Store) DeleteAnswer(ctx context.Context, id int64) error {
	res, err := s.idb.NewDelete().Model((*answerModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete answer %d: %w", id, err)
	}
	return expectRow(res, domain.ErrAnswerNotFound)
}

func (s *Store) FindLike(ctx context.Context, quizID int64, userID string) (domain.Like, bool, error) {
	var m likeModel
	err := s.idb.NewSelect().Model(&m).
		Where("ql.quiz_id = ?", quizID).
		Where("ql.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Like{}, false, nil
	}
	if err != nil {
		return domain.Like{}, false, fmt.Errorf("find like: %w", err)
	}
	return m.toDomain(), true, nil
}

func (s *Store) CreateLike(ctx context.Context, quizID int64, userID string) (domain.Like, error) {
	m := likeModel{QuizID: quizID, UserID: userID}
	if _, err := s.idb.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		switch {
		case hasCode(err, foreignKeyViolation):
			return domain.Like{}, domain.ErrQuizNotFound
		case hasCode(err, uniqueViolation):
			like, _, findErr := s.FindLike(ctx, quizID, userID)
			return like, findErr
		}
		return domain.Like{}, fmt.Errorf("insert like: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) DeleteLike(ctx context.Context, quizID int64, userID string) error {
	_, err := s.idb.NewDelete().Model((*likeModel)(nil)).
		Where("quiz_id = ?", quizID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

func notFound(err, kind error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return kind
	}
	return err
}

func expectRow(res sql.Result, kind error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return kind
	}
	return nil
}

func hasCode(err error, code string) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == code
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
