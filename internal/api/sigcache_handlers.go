package api

import (
	"encoding/json"
	"net/http"

	"github.com/signetapp/signet/internal/sigcache"
)

type cacheSignatureRequest struct {
	Image string `json:"image"`
}

// handleCacheSignature stores a drawn signature for the landing-page
// checkout flow and returns the key the client passes into Stripe
// metadata. No session is required: the landing page runs before the
// paying visitor has an account cookie on this origin.
func (r *Router) handleCacheSignature(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, 1<<20)
	var body cacheSignatureRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	key := sigcache.NewKey()
	if err := r.sigCache.Put(req.Context(), key, body.Image); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_signature",
			"Signature image must be a PNG or JPEG data URL", nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}
