package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gnetorg/gnet/internal/auth"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
	"github.com/gnetorg/gnet/internal/websocket"
)

type ProjectHandler struct {
	ideas      *store.IdeaStore
	proposals  *store.ProposalStore
	milestones *store.MilestoneStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewProjectHandler(
	is *store.IdeaStore,
	ps *store.ProposalStore,
	ms *store.MilestoneStore,
	hub *websocket.Hub,
	logger *slog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		ideas:      is,
		proposals:  ps,
		milestones: ms,
		hub:        hub,
		logger:     logger.With("component", "project"),
	}
}

// ListIdeas shows admins everything. Everyone else sees approved ideas
// plus their own submissions.
func (h *ProjectHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var (
		ideas []model.Idea
		err   error
	)
	if ac.IsAdmin() {
		ideas, err = h.ideas.List()
	} else {
		ideas, err = h.ideas.ListVisibleTo(ac.UserID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list ideas")
		return
	}
	if ideas == nil {
		ideas = []model.Idea{}
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (h *ProjectHandler) GetIdea(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	idea, err := h.ideas.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get idea")
		return
	}
	if idea == nil || !h.canSee(ac, idea) {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (h *ProjectHandler) canSee(ac auth.AuthContext, idea *model.Idea) bool {
	if ac.IsAdmin() {
		return true
	}
	return idea.UserID == ac.UserID || idea.Status == model.IdeaApproved
}

type ideaRequest struct {
	Title            string `json:"title"`
	ProblemStatement string `json:"problem_statement"`
	ProposedSolution string `json:"proposed_solution"`
}

func (req *ideaRequest) validate() map[string]string {
	req.Title = strings.TrimSpace(req.Title)
	req.ProblemStatement = strings.TrimSpace(req.ProblemStatement)
	req.ProposedSolution = strings.TrimSpace(req.ProposedSolution)

	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "title is required"
	}
	if req.ProblemStatement == "" {
		fields["problem_statement"] = "problem statement is required"
	}
	return fields
}

func (h *ProjectHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	idea, err := h.ideas.Create(ac.UserID, req.Title, req.ProblemStatement, req.ProposedSolution)
	if err != nil {
		h.logger.Error("create idea", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create idea")
		return
	}
	h.hub.NotifyChange("idea", "created", idea.ID)
	writeJSON(w, http.StatusCreated, idea)
}

// UpdateIdea edits the text. Only the submitter or an admin may edit.
func (h *ProjectHandler) UpdateIdea(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.ideas.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get idea")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}
	if existing.UserID != ac.UserID && !ac.IsAdmin() {
		writeError(w, http.StatusForbidden, "you may only edit your own ideas")
		return
	}

	var req ideaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	idea, err := h.ideas.Update(id, req.Title, req.ProblemStatement, req.ProposedSolution)
	if err != nil {
		h.logger.Error("update idea", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update idea")
		return
	}
	h.hub.NotifyChange("idea", "updated", idea.ID)
	writeJSON(w, http.StatusOK, idea)
}

// SetIdeaStatus moves an idea through review. Executives and admins only.
func (h *ProjectHandler) SetIdeaStatus(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !ac.IsExecutive() {
		writeError(w, http.StatusForbidden, "executive access required")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	status := model.IdeaStatus(req.Status)
	switch status {
	case model.IdeaSubmitted, model.IdeaReviewing, model.IdeaApproved, model.IdeaRejected:
	default:
		writeFieldErrors(w, map[string]string{"status": "invalid status"})
		return
	}

	existing, err := h.ideas.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get idea")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}

	idea, err := h.ideas.SetStatus(id, status)
	if err != nil {
		h.logger.Error("set idea status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update idea")
		return
	}
	h.hub.NotifyChange("idea", "status_changed", idea.ID)
	writeJSON(w, http.StatusOK, idea)
}

func (h *ProjectHandler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.ideas.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get idea")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}
	if existing.UserID != ac.UserID && !ac.IsAdmin() {
		writeError(w, http.StatusForbidden, "you may only delete your own ideas")
		return
	}
	if err := h.ideas.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete idea")
		return
	}
	h.hub.NotifyChange("idea", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "idea deleted"})
}

func (h *ProjectHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.proposals.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}
	if proposals == nil {
		proposals = []model.Proposal{}
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (h *ProjectHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	proposal, err := h.proposals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}
	if proposal == nil {
		writeError(w, http.StatusNotFound, "proposal not found")
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (h *ProjectHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IdeaID      int64  `json:"idea_id"`
		DocumentURL string `json:"document_url"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.IdeaID <= 0 {
		writeFieldErrors(w, map[string]string{"idea_id": "idea_id is required"})
		return
	}

	idea, err := h.ideas.GetByID(req.IdeaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get idea")
		return
	}
	if idea == nil {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}

	proposal, err := h.proposals.Create(req.IdeaID, strings.TrimSpace(req.DocumentURL), strings.TrimSpace(req.Description))
	if err != nil {
		h.logger.Error("create proposal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create proposal")
		return
	}
	h.hub.NotifyChange("proposal", "created", proposal.ID)
	writeJSON(w, http.StatusCreated, proposal)
}

// ApproveProposal stamps the acting executive as approver.
func (h *ProjectHandler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !ac.IsExecutive() {
		writeError(w, http.StatusForbidden, "executive access required")
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.proposals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "proposal not found")
		return
	}

	proposal, err := h.proposals.Approve(id, ac.UserID)
	if err != nil {
		h.logger.Error("approve proposal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve proposal")
		return
	}
	h.hub.NotifyChange("proposal", "approved", proposal.ID)
	writeJSON(w, http.StatusOK, proposal)
}

func (h *ProjectHandler) DeleteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.proposals.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "proposal not found")
		return
	}
	if err := h.proposals.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete proposal")
		return
	}
	h.hub.NotifyChange("proposal", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "proposal deleted"})
}

func (h *ProjectHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	var (
		milestones []model.Milestone
		err        error
	)
	if ideaID := r.URL.Query().Get("idea"); ideaID != "" {
		id, perr := parseID(ideaID)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid idea filter")
			return
		}
		milestones, err = h.milestones.ListByIdea(id)
	} else {
		milestones, err = h.milestones.List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list milestones")
		return
	}
	if milestones == nil {
		milestones = []model.Milestone{}
	}
	writeJSON(w, http.StatusOK, milestones)
}

func (h *ProjectHandler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	milestone, err := h.milestones.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get milestone")
		return
	}
	if milestone == nil {
		writeError(w, http.StatusNotFound, "milestone not found")
		return
	}
	writeJSON(w, http.StatusOK, milestone)
}

type milestoneRequest struct {
	IdeaID      int64  `json:"idea_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
}

func (req *milestoneRequest) validate() map[string]string {
	req.Title = strings.TrimSpace(req.Title)
	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "title is required"
	}
	return fields
}

func (h *ProjectHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	fields := req.validate()
	if req.IdeaID <= 0 {
		fields["idea_id"] = "idea_id is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	idea, err := h.ideas.GetByID(req.IdeaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get idea")
		return
	}
	if idea == nil {
		writeError(w, http.StatusNotFound, "idea not found")
		return
	}

	milestone, err := h.milestones.Create(req.IdeaID, req.Title, strings.TrimSpace(req.Description), strings.TrimSpace(req.DueDate), strings.TrimSpace(req.Status))
	if err != nil {
		h.logger.Error("create milestone", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create milestone")
		return
	}
	h.hub.NotifyChange("milestone", "created", milestone.ID)
	writeJSON(w, http.StatusCreated, milestone)
}

func (h *ProjectHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.milestones.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get milestone")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "milestone not found")
		return
	}

	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	milestone, err := h.milestones.Update(id, req.Title, strings.TrimSpace(req.Description), strings.TrimSpace(req.DueDate), strings.TrimSpace(req.Status))
	if err != nil {
		h.logger.Error("update milestone", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update milestone")
		return
	}
	h.hub.NotifyChange("milestone", "updated", milestone.ID)
	writeJSON(w, http.StatusOK, milestone)
}

func (h *ProjectHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.milestones.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get milestone")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "milestone not found")
		return
	}
	if err := h.milestones.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete milestone")
		return
	}
	h.hub.NotifyChange("milestone", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "milestone deleted"})
}
