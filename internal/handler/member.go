package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gnetorg/gnet/internal/auth"
	"github.com/gnetorg/gnet/internal/email"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
	"github.com/gnetorg/gnet/internal/token"
)

const resetMessage = "If an account with that email exists, a reset link has been sent."

type MemberHandler struct {
	users       *store.UserStore
	profiles    *store.ProfileStore
	sessions    *store.SessionStore
	sender      email.Sender
	resetSecret []byte
	frontendURL string
	logger      *slog.Logger
}

func NewMemberHandler(
	us *store.UserStore,
	ps *store.ProfileStore,
	ss *store.SessionStore,
	sender email.Sender,
	resetSecret []byte,
	frontendURL string,
	logger *slog.Logger,
) *MemberHandler {
	return &MemberHandler{
		users:       us,
		profiles:    ps,
		sessions:    ss,
		sender:      sender,
		resetSecret: resetSecret,
		frontendURL: frontendURL,
		logger:      logger.With("component", "members"),
	}
}

type profileRequest struct {
	Phone        string `json:"phone"`
	County       string `json:"county"`
	Skills       string `json:"skills"`
	Profession   string `json:"profession"`
	PortfolioURL string `json:"portfolio_url"`
	Bio          string `json:"bio"`
}

func (r profileRequest) toModel() model.MemberProfile {
	return model.MemberProfile{
		Phone:        strings.TrimSpace(r.Phone),
		County:       strings.TrimSpace(r.County),
		Skills:       strings.TrimSpace(r.Skills),
		Profession:   strings.TrimSpace(r.Profession),
		PortfolioURL: strings.TrimSpace(r.PortfolioURL),
		Bio:          strings.TrimSpace(r.Bio),
	}
}

// Join registers a new member and their profile in one transaction. The
// account starts with a random credential; the member sets a real password
// through the set-password flow.
func (h *MemberHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		profileRequest
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

	tempPassword := make([]byte, 16)
	if _, err := rand.Read(tempPassword); err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(tempPassword)), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user, profile, err := h.profiles.RegisterMember(req.Email, req.FullName, model.RoleMember, string(hash), req.toModel())
	if err != nil {
		h.logger.Error("register member", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := h.sender.SendWelcome(user.Email, user.FullName); err != nil {
		h.logger.Warn("send welcome email", "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"profile": profile,
	})
}

// Count is public: the landing page shows the member tally.
func (h *MemberHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.profiles.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Directory is public: profiles joined with names, filterable by search
// text and county.
func (h *MemberHandler) Directory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.profiles.Directory(r.URL.Query().Get("search"), r.URL.Query().Get("county"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load directory")
		return
	}
	if entries == nil {
		entries = []model.DirectoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *MemberHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []model.MemberProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *MemberHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	profile, err := h.profiles.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *MemberHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	profile, err := h.profiles.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if profile.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot modify another member's profile")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	updated, err := h.profiles.Update(id, req.toModel())
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *MemberHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	profile, err := h.profiles.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if profile.UserID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot delete another member's profile")
		return
	}
	if err := h.profiles.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "profile deleted"})
}

// RequestReset always answers with the same body whether or not the account
// exists. Only a delivery failure surfaces as an error.
func (h *MemberHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("reset lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process reset request")
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]string{"detail": resetMessage})
		return
	}

	resetToken, err := token.GenerateReset(user, h.resetSecret)
	if err != nil {
		h.logger.Error("generate reset token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process reset request")
		return
	}
	link := fmt.Sprintf("%s/reset-password/%s/%s/", h.frontendURL, token.EncodeUID(user.ID), resetToken)

	if err := h.sender.SendPasswordReset(user.Email, link); err != nil {
		h.logger.Error("send reset email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": resetMessage})
}

// ConfirmReset validates the uid+token pair and rotates the credential. All
// token failures collapse into one generic message.
func (h *MemberHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID      string `json:"uid"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeFieldErrors(w, map[string]string{"password": "password too short"})
		return
	}

	userID, err := token.DecodeUID(req.UID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset link")
		return
	}
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset link")
		return
	}
	if err := token.VerifyReset(req.Token, user, h.resetSecret); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset link")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if err := h.users.UpdatePassword(user.ID, string(hash)); err != nil {
		h.logger.Error("update password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	// Rotating the credential ends every open session for the account.
	if err := h.sessions.DeleteByUserID(user.ID); err != nil {
		h.logger.Error("invalidate sessions", "error", err)
	}
	if err := h.sender.SendPasswordChanged(user.Email); err != nil {
		h.logger.Warn("send password changed email", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "password has been reset"})
}

// SetPassword is the first-time setup variant: email lookup, no token.
func (h *MemberHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = store.NormalizeEmail(req.Email)
	if len(req.Password) < minPasswordLength {
		writeFieldErrors(w, map[string]string{"password": "password too short"})
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}
	if err := h.users.UpdatePassword(user.ID, string(hash)); err != nil {
		h.logger.Error("set password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "password set"})
}

// Activate flips an account active given a valid email+token pair. The token
// is the same signed credential the password-reset mail carries; there is no
// separate activation mailer, so reactivation links are issued through the
// password-reset request flow.
func (h *MemberHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	user, err := h.users.GetByEmail(store.NormalizeEmail(req.Email))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "activation failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired activation link")
		return
	}
	if err := token.VerifyReset(req.Token, user, h.resetSecret); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired activation link")
		return
	}
	if err := h.users.SetActive(user.ID, true); err != nil {
		writeError(w, http.StatusInternalServerError, "activation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "account activated"})
}
