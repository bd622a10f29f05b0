package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the practice and learner endpoints on r. The caller
// applies the identity middleware.
func RegisterRoutes(r chi.Router, practiceHandler *PracticeHandler, learnerHandler *LearnerHandler) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", practiceHandler.StartSession)
		r.Post("/{sessionId}/answers", practiceHandler.SubmitAnswer)
		r.Post("/{sessionId}/finish", practiceHandler.FinishSession)
	})
	r.Get("/learners/me/languages/{targetLanguageId}", learnerHandler.GetLanguageState)
}
