package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/meetpoint-app/meetpoint-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes (no token required)
	r.Post("/register/", handlers.Register)
	r.Post("/login/", handlers.Login)

	// Own profile
	r.Get("/me/", handlers.Me)
	r.Post("/me/avatar/", handlers.UploadAvatar)

	// Profile routes (read public, write requires token)
	r.Get("/profiles/", handlers.ListProfiles)
	r.Post("/profiles/", handlers.CreateProfile)
	r.Get("/profiles/{id}/", handlers.GetProfile)
	r.Put("/profiles/{id}/", handlers.UpdateProfile)
	r.Patch("/profiles/{id}/", handlers.UpdateProfile)
	r.Delete("/profiles/{id}/", handlers.DeleteProfile)

	// Message routes (all require token; visibility scoped to conversations)
	r.Get("/messages/", handlers.ListMessages)
	r.Post("/messages/", handlers.SendMessage)
	r.Get("/messages/{id}/", handlers.GetMessage)
	r.Put("/messages/{id}/", handlers.UpdateMessage)
	r.Patch("/messages/{id}/", handlers.UpdateMessage)
	r.Delete("/messages/{id}/", handlers.DeleteMessage)
}
