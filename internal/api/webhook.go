package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/nerrad567/mc-connect-core/internal/audit"
	"github.com/nerrad567/mc-connect-core/internal/webhook"
)

// handleWebhook accepts one fleet platform event. Unknown titles and
// malformed bodies are rejected with 400; everything else, including
// events for unregistered devices, is acknowledged with 200 so the
// platform does not retry.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body failed")
		return
	}

	outcome, err := s.dispatcher.HandlePayload(r.Context(), audit.SourceWebhook, body)
	if err != nil {
		if errors.Is(err, webhook.ErrUnknownEvent) || errors.Is(err, webhook.ErrMalformedEvent) {
			s.logger.Warn("rejected webhook", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("webhook dispatch failed", "error", err)
		writeInternalError(w, "dispatch failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}
