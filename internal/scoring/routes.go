package scoring

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the evaluation endpoints on the given router.
func RegisterRoutes(r chi.Router, scorer *Scorer) {
	r.Post("/api/evaluate", evaluateHandler(scorer))
	r.Post("/api/evaluate/batch", batchHandler(scorer))
}

// MessageRequest is what the transport layer knows about a received message.
type MessageRequest struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	HopCount       int    `json:"hop_count"`
	HasInsecureHop bool   `json:"insecure_hop"`
}

func (m MessageRequest) validate() string {
	switch {
	case m.MessageID == "":
		return "message_id is required"
	case m.SenderID == "":
		return "sender_id is required"
	case m.HopCount < 0:
		return "hop_count must be non-negative"
	}
	return ""
}

type batchRequest struct {
	Messages []MessageRequest `json:"messages"`
	MinTrust float64          `json:"min_trust"`
}

// EvaluationResponse is an Evaluation plus its display classification.
type EvaluationResponse struct {
	Evaluation
	Rating    string `json:"rating"`
	Indicator string `json:"indicator"`
}

func newResponse(e Evaluation) EvaluationResponse {
	return EvaluationResponse{Evaluation: e, Rating: e.Rating(), Indicator: e.Indicator()}
}

func evaluateHandler(scorer *Scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if msg := req.validate(); msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		eval := scorer.EvaluateMessage(req.MessageID, req.SenderID, req.HopCount, req.HasInsecureHop)
		writeJSON(w, http.StatusOK, newResponse(eval))
	}
}

func batchHandler(scorer *Scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}

		evals := make([]Evaluation, 0, len(req.Messages))
		for _, m := range req.Messages {
			if msg := m.validate(); msg != "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
				return
			}
			evals = append(evals, scorer.EvaluateMessage(m.MessageID, m.SenderID, m.HopCount, m.HasInsecureHop))
		}

		ranked := SortByTrust(FilterByMinTrust(evals, req.MinTrust))
		out := make([]EvaluationResponse, 0, len(ranked))
		for _, e := range ranked {
			out = append(out, newResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
