package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"threadchat/pkg/chat"
	"threadchat/pkg/hub"
	"threadchat/pkg/logger"
	"threadchat/pkg/store"
	"threadchat/pkg/tree"
	"threadchat/pkg/validation"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeError marshals the error payload so messages containing quotes or
// other JSON-significant characters stay valid on the wire.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// registerMessages registers the message endpoints.
func registerMessages(r *mux.Router, h *hub.Hub, depth int) {
	if depth <= 0 {
		depth = tree.DefaultDepth
	}
	r.HandleFunc("/messages", listMessages(depth)).Methods(http.MethodGet)
	r.HandleFunc("/messages", createMessage(h)).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}", getMessage(depth)).Methods(http.MethodGet)
}

// listMessages returns the full forest snapshot: every root tree populated
// to the depth limit, in creation order.
func listMessages(depth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		roots, err := tree.ListRoots(depth)
		if err != nil {
			logger.Error("snapshot_failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Info("snapshot_served", "roots", len(roots))
		_ = json.NewEncoder(w).Encode(roots)
	}
}

// createMessage is the REST variant of the websocket submit: same attach
// pipeline, same fanout to all connected sessions.
func createMessage(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var req chat.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		populated, err := chat.Attach(req)
		if err != nil {
			if validation.IsInvalid(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.Broadcast(populated)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(populated)
	}
}

// getMessage returns one populated subtree.
func getMessage(depth int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id := mux.Vars(r)["id"]
		populated, err := tree.Populate(id, depth)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "message not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = json.NewEncoder(w).Encode(populated)
	}
}
