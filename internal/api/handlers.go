package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rahul/blueprint/internal/agent"
	"github.com/rahul/blueprint/internal/governance"
	"github.com/rahul/blueprint/internal/observability"
	"github.com/rahul/blueprint/internal/store"
)

type ideaRequest struct {
	ProductIdea string `json:"product_idea"`
}

type Handler struct {
	executor *agent.Executor
	repo     store.ChatRepository
	policy   governance.PolicyEngine
	logger   *observability.Logger
	status   *observability.Status
	upgrader websocket.Upgrader
}

func NewHandler(
	executor *agent.Executor,
	repo store.ChatRepository,
	policy governance.PolicyEngine,
	logger *observability.Logger,
	status *observability.Status,
) *Handler {
	return &Handler{
		executor: executor,
		repo:     repo,
		policy:   policy,
		logger:   logger,
		status:   status,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": h.status.ActiveRuns(),
	})
}

// Blueprint runs the whole chain and answers with the stored chat, or with
// the partial record when a step failed.
func (h *Handler) Blueprint(w http.ResponseWriter, r *http.Request) {
	userID := UserFrom(r.Context())
	idea, ok := h.admit(w, r, userID)
	if !ok {
		return
	}

	rec := h.executor.Run(r.Context(), idea)
	if rec.Failed() {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	chat, err := h.persist(r.Context(), userID, idea, rec)
	if err != nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Stream runs the chain as server-sent events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := UserFrom(r.Context())
	idea, ok := h.admit(w, r, userID)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var c collector
	for ev := range h.executor.Stream(r.Context(), idea) {
		if _, err := w.Write(SSEFrame(ev)); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			log.Printf("stream flush failed: %v", err)
			return
		}
		c.add(ev)
	}

	if c.rec.Complete() {
		// the client already has every frame, a failed save only gets logged
		_, _ = h.persist(context.WithoutCancel(r.Context()), userID, idea, c.rec)
	}
}

// StreamWS is the websocket flavour of Stream. The client sends
// {"product_idea": ...} and receives one text message per event.
func (h *Handler) StreamWS(w http.ResponseWriter, r *http.Request) {
	userID := UserFrom(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req ideaRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	res, err := h.policy.Evaluate(ctx, governance.Request{Idea: req.ProductIdea, UserID: userID})
	if err != nil || res.Effect != governance.EffectAllow {
		reason := res.Reason
		if err != nil {
			reason = err.Error()
		}
		_ = conn.WriteMessage(websocket.TextMessage, Payload(agent.Event{Name: agent.EventError, Output: reason}))
		_ = conn.WriteMessage(websocket.TextMessage, Payload(agent.Event{Name: agent.EventDone}))
		return
	}

	// a closed connection surfaces as a read error
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	var c collector
	for ev := range h.executor.Stream(ctx, res.Idea) {
		if err := conn.WriteMessage(websocket.TextMessage, Payload(ev)); err != nil {
			cancel()
			continue
		}
		c.add(ev)
	}
	if c.rec.Complete() {
		_, _ = h.persist(context.WithoutCancel(ctx), userID, res.Idea, c.rec)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.repo.ListByUser(r.Context(), UserFrom(r.Context()))
	if err != nil {
		log.Printf("list chats failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load chats")
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.repo.Get(r.Context(), UserFrom(r.Context()), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Chat not found")
	case err != nil:
		log.Printf("get chat failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load chat")
	default:
		writeJSON(w, http.StatusOK, chat)
	}
}

func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := h.repo.Delete(r.Context(), UserFrom(r.Context()), id)
	h.logger.LogPersist("delete", id, err)
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to delete chat")
	case !deleted:
		writeError(w, http.StatusNotFound, "Chat not found")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// admit decodes the request body and applies the idea policy. On refusal
// the response is already written.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, userID string) (string, bool) {
	var req ideaRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	res, err := h.policy.Evaluate(r.Context(), governance.Request{Idea: req.ProductIdea, UserID: userID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return "", false
	}
	if res.Effect != governance.EffectAllow {
		writeError(w, http.StatusBadRequest, res.Reason)
		return "", false
	}
	return res.Idea, true
}

func (h *Handler) persist(ctx context.Context, userID, idea string, rec agent.Record) (store.Chat, error) {
	chat := store.NewChat(userID, idea, rec)
	err := h.repo.Save(ctx, chat)
	h.logger.LogPersist("save", chat.ID, err)
	if err != nil {
		log.Printf("persist chat %s failed: %v", chat.ID, err)
	}
	return chat, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
