package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/gnetorg/gnet/internal/email"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
	"github.com/gnetorg/gnet/internal/token"
)

var testResetSecret = []byte("test-reset-secret")

func newMemberHandler(t *testing.T) (*MemberHandler, *store.UserStore, *store.SessionStore, *store.ProfileStore) {
	t.Helper()
	db := newTestDB(t)
	us := store.NewUserStore(db)
	ss := store.NewSessionStore(db)
	ps := store.NewProfileStore(db)
	h := NewMemberHandler(us, ps, ss, email.NewLogSender(testLogger()), testResetSecret, "http://localhost:5173", testLogger())
	return h, us, ss, ps
}

func TestJoinCreatesAccountAndProfile(t *testing.T) {
	h, us, _, ps := newMemberHandler(t)

	w := httptest.NewRecorder()
	h.Join(w, jsonRequest(t, http.MethodPost, "/api/members/join/", map[string]string{
		"email":     "grace@example.com",
		"full_name": "Grace Njeri",
		"county":    "Nairobi",
		"skills":    "accounting",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	u, err := us.GetByEmail("grace@example.com")
	if err != nil || u == nil {
		t.Fatalf("expected account, got %v, %v", u, err)
	}
	p, err := ps.GetByUserID(u.ID)
	if err != nil || p == nil {
		t.Fatalf("expected profile, got %v, %v", p, err)
	}
	if p.County != "Nairobi" {
		t.Errorf("county = %q, want Nairobi", p.County)
	}
}

func TestJoinDuplicateEmail(t *testing.T) {
	h, us, _, _ := newMemberHandler(t)
	createUser(t, us, "henry@example.com", model.RoleMember, "henrys-password")

	w := httptest.NewRecorder()
	h.Join(w, jsonRequest(t, http.MethodPost, "/api/members/join/", map[string]string{
		"email":     "henry@example.com",
		"full_name": "Henry Again",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRequestResetUniformResponse(t *testing.T) {
	h, us, _, _ := newMemberHandler(t)
	createUser(t, us, "irene@example.com", model.RoleMember, "irenes-password")

	known := httptest.NewRecorder()
	h.RequestReset(known, jsonRequest(t, http.MethodPost, "/api/members/password-reset/", map[string]string{
		"email": "irene@example.com",
	}))
	unknown := httptest.NewRecorder()
	h.RequestReset(unknown, jsonRequest(t, http.MethodPost, "/api/members/password-reset/", map[string]string{
		"email": "stranger@example.com",
	}))

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want both 200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("responses differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}
}

func TestConfirmResetRotatesCredential(t *testing.T) {
	h, us, ss, _ := newMemberHandler(t)
	u := createUser(t, us, "james@example.com", model.RoleMember, "old-password")
	sess, err := ss.Create(u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	resetToken, err := token.GenerateReset(u, testResetSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	w := httptest.NewRecorder()
	h.ConfirmReset(w, jsonRequest(t, http.MethodPost, "/api/members/password-reset/confirm/", map[string]string{
		"uid":      token.EncodeUID(u.ID),
		"token":    resetToken,
		"password": "brand-new-password",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	updated, err := us.GetByID(u.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload user: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("brand-new-password")) != nil {
		t.Error("new password does not match stored hash")
	}

	// Rotating the credential ends every open session.
	live, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if live != nil {
		t.Error("expected sessions to be invalidated after reset")
	}

	// The token was bound to the old credential, so it cannot be replayed.
	w = httptest.NewRecorder()
	h.ConfirmReset(w, jsonRequest(t, http.MethodPost, "/api/members/password-reset/confirm/", map[string]string{
		"uid":      token.EncodeUID(u.ID),
		"token":    resetToken,
		"password": "yet-another-password",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("replay status = %d, want 400", w.Code)
	}
}

func TestConfirmResetGenericFailures(t *testing.T) {
	h, us, _, _ := newMemberHandler(t)
	u := createUser(t, us, "karen@example.com", model.RoleMember, "karens-password")

	cases := []struct {
		name string
		uid  string
		tok  string
	}{
		{"garbage uid", "!!!", "whatever"},
		{"unknown user", token.EncodeUID(9999), "whatever"},
		{"bad token", token.EncodeUID(u.ID), "not-a-token"},
	}
	var bodies []string
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.ConfirmReset(w, jsonRequest(t, http.MethodPost, "/api/members/password-reset/confirm/", map[string]string{
			"uid":      tc.uid,
			"token":    tc.tok,
			"password": "long-enough-password",
		}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Errorf("failure bodies differ: %q vs %q", bodies[0], b)
		}
	}
}

func TestConfirmResetShortPassword(t *testing.T) {
	h, us, _, _ := newMemberHandler(t)
	u := createUser(t, us, "liam@example.com", model.RoleMember, "liams-password")
	resetToken, err := token.GenerateReset(u, testResetSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	w := httptest.NewRecorder()
	h.ConfirmReset(w, jsonRequest(t, http.MethodPost, "/api/members/password-reset/confirm/", map[string]string{
		"uid":      token.EncodeUID(u.ID),
		"token":    resetToken,
		"password": "short",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, w, &resp)
	if resp.Errors["password"] != "password too short" {
		t.Errorf("password error = %q", resp.Errors["password"])
	}
}

func TestProfileOwnerGate(t *testing.T) {
	h, us, _, ps := newMemberHandler(t)
	other := createUser(t, us, "noah@example.com", model.RoleMember, "noahs-password")

	hash, err := bcrypt.GenerateFromPassword([]byte("marys-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	owner, p, err := ps.RegisterMember("mary@example.com", "Mary Atieno", model.RoleMember, string(hash), model.MemberProfile{County: "Kisumu"})
	if err != nil {
		t.Fatalf("register member: %v", err)
	}

	idStr := strconv.FormatInt(p.ID, 10)
	req := asUser(jsonRequest(t, http.MethodPut, "/api/members/profiles/"+idStr+"/", map[string]string{
		"county": "Mombasa",
	}), other)
	req.SetPathValue("id", idStr)
	w := httptest.NewRecorder()
	h.UpdateProfile(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	req = asUser(jsonRequest(t, http.MethodPut, "/api/members/profiles/"+idStr+"/", map[string]string{
		"county": "Mombasa",
	}), owner)
	req.SetPathValue("id", idStr)
	w = httptest.NewRecorder()
	h.UpdateProfile(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	updated, err := ps.GetByID(p.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload profile: %v", err)
	}
	if updated.County != "Mombasa" {
		t.Errorf("county = %q, want Mombasa", updated.County)
	}
}

func TestSetPasswordFirstTimeSetup(t *testing.T) {
	h, us, _, _ := newMemberHandler(t)
	createUser(t, us, "newcomer@example.com", model.RoleMember, "temporary-credential")

	w := httptest.NewRecorder()
	h.SetPassword(w, jsonRequest(t, http.MethodPost, "/api/members/set-password/", map[string]string{
		"email":    "newcomer@example.com",
		"password": "short",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password status = %d, want 400", w.Code)
	}
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, w, &body)
	if body.Errors["password"] != "password too short" {
		t.Errorf("errors = %v, want password too short", body.Errors)
	}

	w = httptest.NewRecorder()
	h.SetPassword(w, jsonRequest(t, http.MethodPost, "/api/members/set-password/", map[string]string{
		"email":    "nobody@example.com",
		"password": "a-real-password",
	}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown email status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	h.SetPassword(w, jsonRequest(t, http.MethodPost, "/api/members/set-password/", map[string]string{
		"email":    "Newcomer@Example.COM",
		"password": "a-real-password",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	user, err := us.GetByEmail("newcomer@example.com")
	if err != nil || user == nil {
		t.Fatalf("reload user: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("a-real-password")); err != nil {
		t.Error("new credential does not verify after set-password")
	}
}

func TestActivateWithSignedToken(t *testing.T) {
	h, us, _, _ := newMemberHandler(t)
	u := createUser(t, us, "dormant@example.com", model.RoleMember, "dormant-password")
	if err := us.SetActive(u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// The token is bound to the account's current state.
	dormant, err := us.GetByID(u.ID)
	if err != nil || dormant == nil {
		t.Fatalf("reload user: %v", err)
	}
	tok, err := token.GenerateReset(dormant, testResetSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	w := httptest.NewRecorder()
	h.Activate(w, jsonRequest(t, http.MethodPost, "/api/members/activate/", map[string]string{
		"email": "dormant@example.com",
		"token": "not-a-token",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("garbage token status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	h.Activate(w, jsonRequest(t, http.MethodPost, "/api/members/activate/", map[string]string{
		"email": "dormant@example.com",
		"token": tok,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	active, err := us.GetByID(u.ID)
	if err != nil || active == nil {
		t.Fatalf("reload user: %v", err)
	}
	if !active.IsActive {
		t.Error("account still inactive after activation")
	}
}
