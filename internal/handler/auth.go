package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gnetorg/gnet/internal/auth"
	"github.com/gnetorg/gnet/internal/email"
	"github.com/gnetorg/gnet/internal/middleware"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
)

const minPasswordLength = 8

// dummyHash keeps login timing flat when the email does not exist.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gnet-dummy-password"), bcrypt.DefaultCost)

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	sender   email.Sender
	logger   *slog.Logger
	debug    bool
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, sender email.Sender, logger *slog.Logger, debug bool) *AuthHandler {
	return &AuthHandler{
		users:    us,
		sessions: ss,
		sender:   sender,
		logger:   logger.With("component", "auth"),
		debug:    debug,
	}
}

// CSRF issues the double-submit token. Callable without a session.
func (h *AuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.NewCSRFToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue CSRF token")
		return
	}
	middleware.SetCSRFCookie(w, token, !h.debug)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "CSRF cookie set"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	// Compare against a dummy hash when the account is absent so the
	// response cannot be distinguished by timing.
	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	match := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) == nil

	if user == nil || !match {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "account is inactive")
		return
	}

	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.sessions.Delete(ac.SessionID); err != nil {
		h.logger.Error("delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		FullName        string `json:"full_name"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
		Role            string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = store.NormalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "email is required"
	}
	if req.FullName == "" {
		fields["full_name"] = "full name is required"
	}
	if len(req.Password) < minPasswordLength {
		fields["password"] = "password too short"
	}
	if req.Password != req.PasswordConfirm {
		fields["password_confirm"] = "passwords do not match"
	}
	role := model.RoleMember
	if req.Role != "" {
		role = model.Role(req.Role)
		if !role.Valid() {
			fields["role"] = "unknown role"
		}
	}
	if req.Email != "" {
		exists, err := h.users.EmailExists(req.Email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		if exists {
			fields["email"] = "an account with this email already exists"
		}
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	user, err := h.users.Create(req.Email, req.FullName, role, string(hash))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	// Auto-login: registration establishes a session in the same response.
	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.setSessionCookie(w, sess)

	if err := h.sender.SendWelcome(user.Email, user.FullName); err != nil {
		h.logger.Warn("send welcome email", "error", err)
	}

	writeJSON(w, http.StatusCreated, user)
}

// Profile returns the authenticated account on GET and applies name or
// avatar changes on PUT.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, user)
		return
	}

	var req struct {
		FullName     *string `json:"full_name"`
		ProfileImage *string `json:"profile_image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	fullName := user.FullName
	if req.FullName != nil {
		fullName = strings.TrimSpace(*req.FullName)
		if fullName == "" {
			writeFieldErrors(w, map[string]string{"full_name": "full name cannot be empty"})
			return
		}
	}
	profileImage := user.ProfileImage
	if req.ProfileImage != nil {
		profileImage = strings.TrimSpace(*req.ProfileImage)
	}

	updated, err := h.users.UpdateProfile(user.ID, fullName, profileImage)
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Users lists accounts. Admins see everything; everyone else sees only
// member-role accounts.
func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	var (
		users []model.User
		err   error
	)
	if auth.IsAdmin(r.Context()) {
		users, err = h.users.List()
	} else {
		users, err = h.users.ListByRole(model.RoleMember)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	// Non-admins can only see member-role accounts and themselves.
	if user != nil && !auth.IsAdmin(r.Context()) && user.Role != model.RoleMember && user.ID != auth.UserID(r.Context()) {
		user = nil
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *model.Session) {
	sameSite := http.SameSiteStrictMode
	if h.debug {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(store.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   !h.debug,
		SameSite: sameSite,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
