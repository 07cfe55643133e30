package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gnetorg/gnet/internal/auth"
	"github.com/gnetorg/gnet/internal/push"
	"github.com/gnetorg/gnet/internal/store"
)

type PushHandler struct {
	subscriptions *store.PushStore
	service       *push.Service
	logger        *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		subscriptions: ps,
		service:       svc,
		logger:        logger.With("component", "push"),
	}
}

// VAPIDKey hands the browser the public key it needs to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Endpoint = strings.TrimSpace(req.Endpoint)
	fields := map[string]string{}
	if req.Endpoint == "" {
		fields["endpoint"] = "endpoint is required"
	}
	if req.Keys.P256dh == "" {
		fields["p256dh"] = "p256dh key is required"
	}
	if req.Keys.Auth == "" {
		fields["auth"] = "auth key is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	sub, err := h.subscriptions.Upsert(ac.UserID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		h.logger.Error("save subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Endpoint = strings.TrimSpace(req.Endpoint)
	if req.Endpoint == "" {
		writeFieldErrors(w, map[string]string{"endpoint": "endpoint is required"})
		return
	}
	if err := h.subscriptions.DeleteByEndpoint(req.Endpoint); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "unsubscribed"})
}
