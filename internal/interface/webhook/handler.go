// Package webhook is the push-mode inbound boundary: an external forwarder
// POSTs decoded email content here, authenticated with a shared secret
// header. Rejection happens before any parsing.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/pkg/logger"
)

// SecretHeader carries the shared secret on inbound requests.
const SecretHeader = "X-Webhook-Secret"

// OfferProcessor is the slice of the offer service the handler needs.
type OfferProcessor interface {
	ProcessEmailBody(ctx context.Context, label, body string) *entity.ProcessResult
	ProcessAllLabels(ctx context.Context) []*entity.ProcessResult
}

// EmailEvent is the inbound request body.
type EmailEvent struct {
	Label string `json:"label"`
	Body  string `json:"body"`
}

// Handler processes inbound email events.
type Handler struct {
	processor OfferProcessor
	secret    string
	logger    logger.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(processor OfferProcessor, secret string, logger logger.Logger) *Handler {
	return &Handler{
		processor: processor,
		secret:    secret,
		logger:    logger,
	}
}

// ServeEmailEvent handles POST /hooks/email.
func (h *Handler) ServeEmailEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		h.logger.Warn("Webhook secret mismatch", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var event EmailEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if event.Label == "" || event.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label and body are required"})
		return
	}

	result := h.processor.ProcessEmailBody(r.Context(), event.Label, event.Body)
	writeJSON(w, http.StatusOK, result)
}

// ServeSweep handles GET /emails: a pull-mode sweep over all user labels,
// mirroring the push pipeline per label.
func (h *Handler) ServeSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		h.logger.Warn("Webhook secret mismatch", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	results := h.processor.ProcessAllLabels(r.Context())
	if results == nil {
		results = []*entity.ProcessResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_labels": len(results),
		"results":      results,
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	got := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
