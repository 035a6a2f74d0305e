package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/migchat/migchat-backend/internal/handlers"
	"github.com/migchat/migchat-backend/internal/middleware"
)

// Deps carries the wired handlers and the session resolver the auth
// gate uses.
type Deps struct {
	Account  *handlers.AccountHandler
	Messages *handlers.MessageHandler
	Keys     *handlers.KeysHandler
	WS       *handlers.WSHandler
	Sessions middleware.SessionResolver
}

// Setup registers all routes. Everything except the health check and
// account creation sits behind the auth gate.
func Setup(r *chi.Mux, d Deps) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Post("/api/account/create", d.Account.CreateAccount)
	r.Post("/api/auth/login", d.Account.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Sessions))

		r.Put("/api/account/username", d.Account.UpdateUsername)

		r.Post("/api/messages/send", d.Messages.Send)
		r.Get("/api/messages", d.Messages.List)
		r.Get("/api/conversations", d.Messages.Conversations)
		r.Post("/api/messages/read", d.Messages.MarkRead)

		r.Post("/api/keys/upload", d.Keys.UploadKeys)
		r.Get("/api/keys/{username}", d.Keys.GetKeys)
	})

	// The WebSocket endpoint authenticates itself: browser clients
	// cannot set an Authorization header on the upgrade request.
	r.Get("/ws", d.WS.Serve)
}
