package httpapi

import (
	"encoding/json"
	"net/http"
)

// TokenRequest is the client-credentials exchange body.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

// handleToken exchanges client credentials for a short-lived access token.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GrantType != "" && req.GrantType != "client_credentials" {
		h.writeError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}

	token, err := h.jwt.ExchangeCredentials(req.ClientID, req.ClientSecret)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "invalid client credentials")
		return
	}
	h.writeJSON(w, http.StatusOK, token)
}
