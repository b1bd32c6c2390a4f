package httpserver

import (
	"net/http"
	"time"

	"family-lists-go/internal/config"
	"family-lists-go/internal/transport/httpserver/handler"
	authmw "family-lists-go/internal/transport/httpserver/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, auth *authmw.JWTAuth) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	if handlers.Uploads != nil {
		r.Handle("/uploads/*", handlers.Uploads.Files())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Common.Health)

		// Websocket connections outlive the request timeout.
		if handlers.Realtime != nil {
			r.With(auth.Optional).Get("/ws", handlers.Realtime.Subscribe)
		}

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Group(func(r chi.Router) {
				r.Use(auth.Optional)

				r.Get("/lists", handlers.Lists.ListLists)
				r.Get("/lists/{list_id}", handlers.Lists.GetList)
				r.Get("/lists/{list_id}/items/{item_id}/comments", handlers.Lists.ListComments)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware)

				r.Get("/auth/me", handlers.Common.AuthMe)

				r.Post("/lists", handlers.Lists.CreateList)
				r.Patch("/lists/{list_id}", handlers.Lists.UpdateList)
				r.Delete("/lists/{list_id}", handlers.Lists.DeleteList)
				r.Post("/lists/{list_id}/star", handlers.Lists.ToggleStar)
				r.Post("/lists/{list_id}/copy", handlers.Lists.CopyList)

				r.Post("/lists/{list_id}/items", handlers.Lists.AddItem)
				r.Patch("/lists/{list_id}/items/{item_id}/toggle", handlers.Lists.ToggleItem)
				r.Delete("/lists/{list_id}/items/{item_id}", handlers.Lists.DeleteItem)
				r.Put("/lists/{list_id}/items/{item_id}/rating", handlers.Lists.RateItem)
				r.Post("/lists/{list_id}/items/{item_id}/comments", handlers.Lists.AddComment)

				if handlers.Uploads != nil {
					r.Post("/uploads", handlers.Uploads.Upload)
				}
			})
		})
	})

	return r
}
