package api

import "net/http"

// handleReloadPromotions re-reads the promoted menu items. Devices pick up
// the new rotation on their next promo render.
func (s *Server) handleReloadPromotions(w http.ResponseWriter, r *http.Request) {
	if s.promotions == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "promotion reload is not configured")
		return
	}

	n, err := s.promotions.ReloadPromotions(r.Context())
	if err != nil {
		s.logger.Error("reloading promotions failed", "error", err)
		writeInternalError(w, "reloading promotions failed")
		return
	}

	s.logger.Info("promotions reloaded", "count", n)
	writeJSON(w, http.StatusOK, map[string]int{"promotions": n})
}
