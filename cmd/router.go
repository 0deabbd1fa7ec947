package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pulsecheck/api"
)

func SetupRouter(events *api.EventsHandler, admin *api.AdminHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", api.HandleHealthCheck)

	r.Post("/slack/events", events.HandleEvents)
	r.Post("/slack/interactions", events.HandleInteractions)

	r.Route("/api", func(r chi.Router) {
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", admin.ListQuestions)
			r.Post("/", admin.CreateQuestion)
			r.Put("/{id}", admin.UpdateQuestion)
			r.Post("/reorder", admin.ReorderQuestions)
		})
		r.Route("/config", func(r chi.Router) {
			r.Get("/", admin.GetConfig)
			r.Put("/", admin.UpdateConfig)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", admin.ListUsers)
			r.Delete("/{id}", admin.DeactivateUser)
		})
		r.Post("/trigger-checkin", admin.TriggerCheckIn)
	})

	return r
}
