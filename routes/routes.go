package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"quizflow/app"
	"quizflow/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// respondent flow
	api.Get("/quizzes/{id}", PublicGetQuizById(app))
	api.Post("/quizzes/{id}/sessions", PublicStartSession(app))
	api.Post("/quizzes/{id}/sessions/{sessionID}/answers", PublicSubmitAnswer(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD quiz definitions
		r.Post("/quizzes", CreateQuiz(app))
		r.Get("/quizzes", ListQuizzes(app))
		r.Get("/quizzes/{id}", GetQuizById(app))
		r.Put("/quizzes/{id}", UpdateQuiz(app))
		r.Delete("/quizzes/{id}", DeleteQuiz(app))

		r.Get("/quizzes/{id}/sessions", GetQuizSessions(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
