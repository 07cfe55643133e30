package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/payments"
	"github.com/gnetorg/gnet/internal/store"
	"github.com/gnetorg/gnet/internal/websocket"
)

func newFinanceHandler(t *testing.T) (*FinanceHandler, *store.UserStore, *store.TopUpStore, *store.WithdrawalStore) {
	t.Helper()
	db := newTestDB(t)
	us := store.NewUserStore(db)
	ts := store.NewTopUpStore(db)
	ws := store.NewWithdrawalStore(db)
	as := store.NewAuditStore(db)
	hub := websocket.NewHub(testLogger())
	h := NewFinanceHandler(ts, ws, as, us, payments.NewClient(payments.Config{}), hub, testLogger())
	return h, us, ts, ws
}

func TestListTopUpsRoleScoped(t *testing.T) {
	h, us, ts, _ := newFinanceHandler(t)
	member := createUser(t, us, "member@example.com", model.RoleMember, "member-password")
	admin := createUser(t, us, "admin@example.com", model.RoleAdmin, "admin-password")

	if _, err := ts.Create(member.ID, 5000, "2026-01", "", ""); err != nil {
		t.Fatalf("create topup: %v", err)
	}
	if _, err := ts.Create(admin.ID, 7000, "2026-01", "", ""); err != nil {
		t.Fatalf("create topup: %v", err)
	}

	w := httptest.NewRecorder()
	h.ListTopUps(w, asUser(httptest.NewRequest(http.MethodGet, "/api/finance/topups/", nil), member))
	var memberView []model.TopUp
	decodeBody(t, w, &memberView)
	if len(memberView) != 1 {
		t.Fatalf("member saw %d topups, want 1", len(memberView))
	}
	if memberView[0].UserID != member.ID {
		t.Errorf("member saw someone else's topup")
	}

	w = httptest.NewRecorder()
	h.ListTopUps(w, asUser(httptest.NewRequest(http.MethodGet, "/api/finance/topups/", nil), admin))
	var adminView []model.TopUp
	decodeBody(t, w, &adminView)
	if len(adminView) != 2 {
		t.Errorf("admin saw %d topups, want 2", len(adminView))
	}
}

func TestCreateTopUpValidation(t *testing.T) {
	h, us, _, _ := newFinanceHandler(t)
	member := createUser(t, us, "pat@example.com", model.RoleMember, "pats-password")

	w := httptest.NewRecorder()
	h.CreateTopUp(w, asUser(jsonRequest(t, http.MethodPost, "/api/finance/topups/", map[string]any{
		"amount_cents": 0,
		"month":        "January",
	}), member))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, w, &resp)
	if resp.Errors["amount_cents"] == "" {
		t.Error("expected amount_cents error")
	}
	if resp.Errors["month"] == "" {
		t.Error("expected month error")
	}
}

func TestCreateTopUpDuplicateMonth(t *testing.T) {
	h, us, _, _ := newFinanceHandler(t)
	member := createUser(t, us, "quinn@example.com", model.RoleMember, "quinns-password")

	first := httptest.NewRecorder()
	h.CreateTopUp(first, asUser(jsonRequest(t, http.MethodPost, "/api/finance/topups/", map[string]any{
		"amount_cents": 5000,
		"month":        "2026-02",
	}), member))
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201: %s", first.Code, first.Body.String())
	}

	second := httptest.NewRecorder()
	h.CreateTopUp(second, asUser(jsonRequest(t, http.MethodPost, "/api/finance/topups/", map[string]any{
		"amount_cents": 6000,
		"month":        "2026-02",
	}), member))
	if second.Code != http.StatusConflict {
		t.Fatalf("second status = %d, want 409: %s", second.Code, second.Body.String())
	}
}

func TestCheckoutUnconfigured(t *testing.T) {
	h, us, ts, _ := newFinanceHandler(t)
	member := createUser(t, us, "rose@example.com", model.RoleMember, "roses-password")
	topup, err := ts.Create(member.ID, 5000, "2026-03", "", "")
	if err != nil {
		t.Fatalf("create topup: %v", err)
	}

	idStr := strconv.FormatInt(topup.ID, 10)
	req := asUser(jsonRequest(t, http.MethodPost, "/api/finance/topups/"+idStr+"/checkout/", nil), member)
	req.SetPathValue("id", idStr)
	w := httptest.NewRecorder()
	h.Checkout(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestDecideWithdrawal(t *testing.T) {
	h, us, _, ws := newFinanceHandler(t)
	member := createUser(t, us, "sam@example.com", model.RoleMember, "sams-password")
	admin := createUser(t, us, "boss@example.com", model.RoleAdmin, "boss-password")

	wr, err := ws.Create(member.ID, 10000, "school fees", "")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	idStr := strconv.FormatInt(wr.ID, 10)
	req := asUser(jsonRequest(t, http.MethodPut, "/api/finance/withdrawals/"+idStr+"/decide/", map[string]string{
		"status": "Approved",
	}), admin)
	req.SetPathValue("id", idStr)
	w := httptest.NewRecorder()
	h.DecideWithdrawal(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var decided model.WithdrawalRequest
	decodeBody(t, w, &decided)
	if decided.Status != model.WithdrawalApproved {
		t.Errorf("status = %q, want Approved", decided.Status)
	}
	if decided.ApprovedBy == nil || *decided.ApprovedBy != admin.ID {
		t.Errorf("approved_by = %v, want %d", decided.ApprovedBy, admin.ID)
	}

	// A decided request cannot be decided again.
	req = asUser(jsonRequest(t, http.MethodPut, "/api/finance/withdrawals/"+idStr+"/decide/", map[string]string{
		"status": "Rejected",
	}), admin)
	req.SetPathValue("id", idStr)
	w = httptest.NewRecorder()
	h.DecideWithdrawal(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("redecide status = %d, want 409", w.Code)
	}
}

func TestSummary(t *testing.T) {
	h, us, ts, _ := newFinanceHandler(t)
	member := createUser(t, us, "tina@example.com", model.RoleMember, "tinas-password")

	topup, err := ts.Create(member.ID, 5000, "2026-04", "", "")
	if err != nil {
		t.Fatalf("create topup: %v", err)
	}
	if err := ts.SetStatus(topup.ID, model.TopUpSuccess); err != nil {
		t.Fatalf("settle topup: %v", err)
	}

	w := httptest.NewRecorder()
	h.Summary(w, asUser(httptest.NewRequest(http.MethodGet, "/api/finance/summary/", nil), member))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var summary model.FinanceSummary
	decodeBody(t, w, &summary)
	if summary.TotalContributionsCents != 5000 {
		t.Errorf("total = %d, want 5000", summary.TotalContributionsCents)
	}
}

func TestCreateAuditUniquePerAuditor(t *testing.T) {
	h, us, _, _ := newFinanceHandler(t)
	first := createUser(t, us, "auditor1@example.com", model.RoleAdmin, "first-password")
	second := createUser(t, us, "auditor2@example.com", model.RoleAdmin, "second-password")

	body := map[string]any{
		"month":             "2026-05",
		"total_topups_cents": 120000,
		"member_count":      14,
	}

	w := httptest.NewRecorder()
	h.CreateAudit(w, asUser(jsonRequest(t, http.MethodPost, "/api/finance/audits/", body), first))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	// The same auditor cannot record the month twice.
	w = httptest.NewRecorder()
	h.CreateAudit(w, asUser(jsonRequest(t, http.MethodPost, "/api/finance/audits/", body), first))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409: %s", w.Code, w.Body.String())
	}

	// A second auditor may record the same month independently.
	w = httptest.NewRecorder()
	h.CreateAudit(w, asUser(jsonRequest(t, http.MethodPost, "/api/finance/audits/", body), second))
	if w.Code != http.StatusCreated {
		t.Fatalf("second auditor status = %d, want 201: %s", w.Code, w.Body.String())
	}
}
