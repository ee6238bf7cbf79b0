package verification

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the verification API endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/messages/{messageID}/verifications", func(r chi.Router) {
		r.Get("/", listHandler(store))
		r.Post("/", addHandler(store))
		r.Delete("/", removeHandler(store))
		r.Get("/stats", statsHandler(store))
	})
	r.Get("/api/verifiers/{verifierID}/verifications", byVerifierHandler(store))
	r.Get("/api/verifications/count", countHandler(store))
	r.Post("/api/verifications/cleanup", cleanupHandler(store))
	r.Delete("/api/verifications", clearHandler(store))
}

type addRequest struct {
	VerifierID string `json:"verifier_id"`
	Confirmed  bool   `json:"confirmed"`
	Comment    string `json:"comment,omitempty"`
}

type statsResponse struct {
	Stats
	NetScore          int  `json:"net_score"`
	PositiveConsensus bool `json:"positive_consensus"`
}

func listHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.ForMessage(chi.URLParam(r, "messageID")))
	}
}

func addHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.VerifierID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "verifier_id is required"})
			return
		}

		outcome, err := store.Add(r.Context(), chi.URLParam(r, "messageID"), req.VerifierID, req.Confirmed, req.Comment)
		if err != nil {
			if errors.Is(err, ErrEmptyID) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if outcome == Duplicate {
			writeJSON(w, http.StatusConflict, map[string]string{"status": outcome.String()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": outcome.String()})
	}
}

func removeHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := store.RemoveMessage(r.Context(), chi.URLParam(r, "messageID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !removed {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

func statsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := store.Stats(chi.URLParam(r, "messageID"))
		writeJSON(w, http.StatusOK, statsResponse{
			Stats:             st,
			NetScore:          st.NetScore(),
			PositiveConsensus: st.HasPositiveConsensus(),
		})
	}
}

func byVerifierHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.ByVerifier(chi.URLParam(r, "verifierID")))
	}
}

func countHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"total": store.Count()})
	}
}

func cleanupHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.Cleanup(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if res.EvictedMessages == nil {
			res.EvictedMessages = []string{}
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func clearHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
