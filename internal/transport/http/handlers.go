package http

import (
	"net/http"
	"strconv"

	"quizbot/internal/app"
	"quizbot/internal/domain"
)

// Handler exposes the quiz management use cases as JSON endpoints.
type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	order := domain.QuizOrder(query.Get("order"))
	if order != "" && order != domain.OrderNew && order != domain.OrderPopular {
		writeError(w, r, &domain.ValidationError{Field: "order", Detail: "must be new or popular"})
		return
	}
	quizzes, err := h.service.ListQuizzes(r.Context(), userFrom(r.Context()), query.Get("q"), query.Get("owner"), order)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in domain.QuizInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), userFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) QuizInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := h.service.QuizInfo(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) EditQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.QuizPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := h.service.EditQuiz(r.Context(), id, userFrom(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), id, userFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CopyQuiz duplicates a quiz for the caller. Questions are copied unless
// ?questions=false is given.
func (h *Handler) CopyQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	includeQuestions := true
	if raw := r.URL.Query().Get("questions"); raw != "" {
		includeQuestions, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, &domain.ValidationError{Field: "questions", Detail: "must be a boolean"})
			return
		}
	}
	newID, err := h.service.CopyQuiz(r.Context(), id, includeQuestions, userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": newID})
}

type likeRequest struct {
	Like *bool `json:"like"`
}

// SetLike sets the caller's like. An empty body or a null like toggles it.
func (h *Handler) SetLike(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req likeRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	liked, err := h.service.SetLike(r.Context(), id, userFrom(r.Context()), req.Like)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	questions, err := h.service.ListQuestions(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.QuestionInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	question, err := h.service.AddQuestion(r.Context(), id, userFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) QuestionInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	question, err := h.service.QuestionInfo(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) EditQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.QuestionPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	question, err := h.service.EditQuestion(r.Context(), id, userFrom(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.RemoveQuestion(r.Context(), id, userFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.AnswerInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := h.service.AddAnswer(r.Context(), id, userFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

func (h *Handler) EditAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.AnswerPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := h.service.EditAnswer(r.Context(), id, userFrom(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) RemoveAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.RemoveAnswer(r.Context(), id, userFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
