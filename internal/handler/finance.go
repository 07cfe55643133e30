package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/gnetorg/gnet/internal/auth"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/payments"
	"github.com/gnetorg/gnet/internal/store"
	"github.com/gnetorg/gnet/internal/websocket"
)

var monthRegexp = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type FinanceHandler struct {
	topups      *store.TopUpStore
	withdrawals *store.WithdrawalStore
	audits      *store.AuditStore
	users       *store.UserStore
	payments    *payments.Client
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewFinanceHandler(
	ts *store.TopUpStore,
	ws *store.WithdrawalStore,
	as *store.AuditStore,
	us *store.UserStore,
	pc *payments.Client,
	hub *websocket.Hub,
	logger *slog.Logger,
) *FinanceHandler {
	return &FinanceHandler{
		topups:      ts,
		withdrawals: ws,
		audits:      as,
		users:       us,
		payments:    pc,
		hub:         hub,
		logger:      logger.With("component", "finance"),
	}
}

// ListTopUps scopes by role: admins see every contribution, members only
// their own.
func (h *FinanceHandler) ListTopUps(w http.ResponseWriter, r *http.Request) {
	var (
		topups []model.TopUp
		err    error
	)
	if auth.IsAdmin(r.Context()) {
		topups, err = h.topups.List()
	} else {
		topups, err = h.topups.ListByUser(auth.UserID(r.Context()))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list topups")
		return
	}
	if topups == nil {
		topups = []model.TopUp{}
	}
	writeJSON(w, http.StatusOK, topups)
}

func (h *FinanceHandler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountCents int64  `json:"amount_cents"`
		Month       string `json:"month"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fields := map[string]string{}
	if req.AmountCents <= 0 {
		fields["amount_cents"] = "amount must be positive"
	}
	if !monthRegexp.MatchString(req.Month) {
		fields["month"] = "month must be in YYYY-MM format"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	topup, err := h.topups.Create(auth.UserID(r.Context()), req.AmountCents, req.Month, "", strings.TrimSpace(req.Notes))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			writeError(w, http.StatusConflict, "a contribution for this month already exists")
			return
		}
		h.logger.Error("create topup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create topup")
		return
	}
	writeJSON(w, http.StatusCreated, topup)
}

// GetTopUp hides other members' contributions from non-admins behind a 404.
func (h *FinanceHandler) GetTopUp(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	topup, err := h.topups.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get topup")
		return
	}
	if topup != nil && topup.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		topup = nil
	}
	if topup == nil {
		writeError(w, http.StatusNotFound, "topup not found")
		return
	}
	writeJSON(w, http.StatusOK, topup)
}

// DeleteTopUp removes a contribution record. Members may only withdraw their
// own pending entries; settled money movements stay on the books.
func (h *FinanceHandler) DeleteTopUp(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	topup, err := h.topups.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get topup")
		return
	}
	if topup == nil || (topup.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context())) {
		writeError(w, http.StatusNotFound, "topup not found")
		return
	}
	if topup.Status != model.TopUpPending && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusConflict, "settled contributions cannot be removed")
		return
	}
	if err := h.topups.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete topup")
		return
	}
	h.hub.NotifyChange("topup", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "topup deleted"})
}

// Checkout creates a Stripe Checkout Session for a pending top-up.
func (h *FinanceHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil || !h.payments.Configured() {
		writeError(w, http.StatusServiceUnavailable, "online payments are not configured")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	topup, err := h.topups.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get topup")
		return
	}
	if topup == nil {
		writeError(w, http.StatusNotFound, "topup not found")
		return
	}
	if topup.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot pay another member's contribution")
		return
	}
	if topup.Status != model.TopUpPending {
		writeError(w, http.StatusConflict, "contribution is not pending")
		return
	}

	user, err := h.users.GetByID(topup.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	url, err := h.payments.CreateTopUpCheckout(topup, user.Email)
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// StripeWebhook settles top-ups. It is CSRF-exempt; authenticity comes from
// the signature header.
func (h *FinanceHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	event, err := h.payments.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.settleCheckout(event, model.TopUpSuccess)
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		h.settleCheckout(event, model.TopUpFailed)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FinanceHandler) settleCheckout(event stripe.Event, status model.TopUpStatus) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("unmarshal checkout session", "error", err)
		return
	}
	txID := sess.Metadata["transaction_id"]
	if txID == "" {
		h.logger.Warn("checkout session missing transaction id", "event", event.Type)
		return
	}
	topup, err := h.topups.GetByTransactionID(txID)
	if err != nil || topup == nil {
		h.logger.Error("lookup topup for webhook", "transaction_id", txID, "error", err)
		return
	}
	if err := h.topups.SetStatus(topup.ID, status); err != nil {
		h.logger.Error("settle topup", "transaction_id", txID, "error", err)
		return
	}
	h.hub.NotifyChange("topup", strings.ToLower(string(status)), topup.ID)
}

func (h *FinanceHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	var (
		reqs []model.WithdrawalRequest
		err  error
	)
	if auth.IsAdmin(r.Context()) {
		reqs, err = h.withdrawals.List()
	} else {
		reqs, err = h.withdrawals.ListByUser(auth.UserID(r.Context()))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list withdrawals")
		return
	}
	if reqs == nil {
		reqs = []model.WithdrawalRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *FinanceHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountCents int64  `json:"amount_cents"`
		Reason      string `json:"reason"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fields := map[string]string{}
	if req.AmountCents <= 0 {
		fields["amount_cents"] = "amount must be positive"
	}
	if strings.TrimSpace(req.Reason) == "" {
		fields["reason"] = "reason is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	wr, err := h.withdrawals.Create(auth.UserID(r.Context()), req.AmountCents, strings.TrimSpace(req.Reason), strings.TrimSpace(req.Notes))
	if err != nil {
		h.logger.Error("create withdrawal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create withdrawal request")
		return
	}
	h.hub.NotifyChange("withdrawal", "created", wr.ID)
	writeJSON(w, http.StatusCreated, wr)
}

func (h *FinanceHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	wr, err := h.withdrawals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get withdrawal request")
		return
	}
	if wr != nil && wr.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		wr = nil
	}
	if wr == nil {
		writeError(w, http.StatusNotFound, "withdrawal request not found")
		return
	}
	writeJSON(w, http.StatusOK, wr)
}

// DeleteWithdrawal lets a member retract their own pending request; admins
// may remove any.
func (h *FinanceHandler) DeleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	wr, err := h.withdrawals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get withdrawal request")
		return
	}
	if wr == nil || (wr.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context())) {
		writeError(w, http.StatusNotFound, "withdrawal request not found")
		return
	}
	if wr.Status != model.WithdrawalPending && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusConflict, "decided requests cannot be retracted")
		return
	}
	if err := h.withdrawals.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete withdrawal request")
		return
	}
	h.hub.NotifyChange("withdrawal", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "withdrawal request deleted"})
}

// DecideWithdrawal approves or rejects a pending request. Admin only
// (enforced by routing middleware).
func (h *FinanceHandler) DecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	status := model.WithdrawalStatus(req.Status)
	if status != model.WithdrawalApproved && status != model.WithdrawalRejected {
		writeFieldErrors(w, map[string]string{"status": "status must be Approved or Rejected"})
		return
	}

	existing, err := h.withdrawals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get withdrawal")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "withdrawal request not found")
		return
	}
	if existing.Status != model.WithdrawalPending {
		writeError(w, http.StatusConflict, "withdrawal request already decided")
		return
	}

	decided, err := h.withdrawals.Decide(id, status, auth.UserID(r.Context()), strings.TrimSpace(req.Notes))
	if err != nil {
		h.logger.Error("decide withdrawal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to decide withdrawal")
		return
	}
	h.hub.NotifyChange("withdrawal", "decided", decided.ID)
	writeJSON(w, http.StatusOK, decided)
}

func (h *FinanceHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := h.audits.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get audit record")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "audit record not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *FinanceHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := h.audits.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audits")
		return
	}
	if audits == nil {
		audits = []model.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, audits)
}

// CreateAudit records a monthly audit. Admin only (routing middleware).
func (h *FinanceHandler) CreateAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month                 string `json:"month"`
		TotalTopUpsCents      int64  `json:"total_topups_cents"`
		TotalWithdrawalsCents int64  `json:"total_withdrawals_cents"`
		MemberCount           int    `json:"member_count"`
		Comments              string `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !monthRegexp.MatchString(req.Month) {
		writeFieldErrors(w, map[string]string{"month": "month must be in YYYY-MM format"})
		return
	}

	audit, err := h.audits.Create(model.AuditRecord{
		AuditorID:             auth.UserID(r.Context()),
		Month:                 req.Month,
		TotalTopUpsCents:      req.TotalTopUpsCents,
		TotalWithdrawalsCents: req.TotalWithdrawalsCents,
		MemberCount:           req.MemberCount,
		Comments:              strings.TrimSpace(req.Comments),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			writeError(w, http.StatusConflict, "you have already recorded an audit for this month")
			return
		}
		h.logger.Error("create audit", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create audit")
		return
	}
	writeJSON(w, http.StatusCreated, audit)
}

// Summary reports the caller's contribution position.
func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	thisMonth := time.Now().UTC().Format("2006-01")
	summary, err := h.topups.Summary(auth.UserID(r.Context()), thisMonth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Rankings is the contribution leaderboard.
func (h *FinanceHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	rankings, err := h.topups.Rankings(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load rankings")
		return
	}
	if rankings == nil {
		rankings = []model.Ranking{}
	}
	writeJSON(w, http.StatusOK, rankings)
}
