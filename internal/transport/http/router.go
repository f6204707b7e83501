package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quizbot/internal/app"
)

// NewRouter wires the REST API and the live play endpoint.
func NewRouter(service *app.QuizService, play *PlayHandler) http.Handler {
	h := NewHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/quizzes", func(r chi.Router) {
			r.Get("/", h.ListQuizzes)
			r.Post("/", h.CreateQuiz)
			r.Get("/{id}", h.QuizInfo)
			r.Patch("/{id}", h.EditQuiz)
			r.Delete("/{id}", h.DeleteQuiz)
			r.Post("/{id}/copy", h.CopyQuiz)
			r.Put("/{id}/like", h.SetLike)
			r.Get("/{id}/questions", h.ListQuestions)
			r.Post("/{id}/questions", h.AddQuestion)
			r.Get("/{id}/play", play.ServeWS)
		})
		r.Route("/questions/{id}", func(r chi.Router) {
			r.Get("/", h.QuestionInfo)
			r.Patch("/", h.EditQuestion)
			r.Delete("/", h.RemoveQuestion)
			r.Post("/answers", h.AddAnswer)
		})
		r.Route("/answers/{id}", func(r chi.Router) {
			r.Patch("/", h.EditAnswer)
			r.Delete("/", h.RemoveAnswer)
		})
	})
	return r
}
