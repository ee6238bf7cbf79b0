package trust

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the trust API endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/trust", listHandler(store))
	r.Delete("/api/trust", clearHandler(store))
	r.Get("/api/trust/stats", statsHandler(store))
	r.Post("/api/trust/import", importHandler(store))
	r.Get("/api/trust/{contactID}", getHandler(store))
	r.Put("/api/trust/{contactID}", setHandler(store))
	r.Delete("/api/trust/{contactID}", removeHandler(store))
}

type setRequest struct {
	Level       *int  `json:"level"`
	ManuallySet *bool `json:"manually_set,omitempty"`
}

type importRequest struct {
	ContactIDs []string `json:"contact_ids"`
}

func listHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := r.URL.Query().Get("level"); v != "" {
			level, err := ParseLevel(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			results := store.ByLevel(level)
			if results == nil {
				results = []ContactTrust{}
			}
			writeJSON(w, http.StatusOK, results)
			return
		}
		writeJSON(w, http.StatusOK, store.All())
	}
}

func getHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Get(chi.URLParam(r, "contactID")))
	}
}

func setHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Level == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "level is required"})
			return
		}
		manual := true
		if req.ManuallySet != nil {
			manual = *req.ManuallySet
		}

		contactID := chi.URLParam(r, "contactID")
		if err := store.Set(r.Context(), contactID, Level(*req.Level), manual); err != nil {
			if errors.Is(err, ErrInvalidLevel) || errors.Is(err, ErrEmptyID) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, store.Get(contactID))
	}
}

func removeHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := store.Remove(r.Context(), chi.URLParam(r, "contactID"))
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

func importHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		n, err := store.ImportKnownContacts(r.Context(), req.ContactIDs)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"imported": n})
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

func statsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Stats())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
