package api

import (
	"net/http"

	"github.com/rahul/blueprint/internal/observability"
)

func NewMux(h *Handler, auth *Authenticator, logger *observability.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /blueprint", auth.Require(h.Blueprint))
	mux.HandleFunc("POST /generate-architecture-stream/{$}", auth.Require(h.Stream))
	mux.HandleFunc("GET /ws/blueprint", auth.Require(h.StreamWS))

	mux.HandleFunc("GET /chats", auth.Require(h.ListChats))
	mux.HandleFunc("GET /chat/{id}", auth.Require(h.GetChat))
	mux.HandleFunc("DELETE /chat/{id}/delete", auth.Require(h.DeleteChat))

	return CORS(LogRequests(logger, mux))
}
