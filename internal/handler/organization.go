package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/push"
	"github.com/gnetorg/gnet/internal/store"
	"github.com/gnetorg/gnet/internal/websocket"
)

const recentAnnouncementCount = 5

type OrganizationHandler struct {
	announcements *store.AnnouncementStore
	events        *store.EventStore
	applications  *store.ApplicationStore
	scheduler     *push.Scheduler
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewOrganizationHandler(
	as *store.AnnouncementStore,
	es *store.EventStore,
	aps *store.ApplicationStore,
	scheduler *push.Scheduler,
	hub *websocket.Hub,
	logger *slog.Logger,
) *OrganizationHandler {
	return &OrganizationHandler{
		announcements: as,
		events:        es,
		applications:  aps,
		scheduler:     scheduler,
		hub:           hub,
		logger:        logger.With("component", "organization"),
	}
}

func (h *OrganizationHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.announcements.List(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list announcements")
		return
	}
	if announcements == nil {
		announcements = []model.Announcement{}
	}
	writeJSON(w, http.StatusOK, announcements)
}

// RecentAnnouncements is public: the landing page shows the latest few.
func (h *OrganizationHandler) RecentAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.announcements.List(recentAnnouncementCount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list announcements")
		return
	}
	if announcements == nil {
		announcements = []model.Announcement{}
	}
	writeJSON(w, http.StatusOK, announcements)
}

func (h *OrganizationHandler) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := h.announcements.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get announcement")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "announcement not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type announcementRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
	ImageURL string `json:"image_url"`
}

func (req *announcementRequest) validate() map[string]string {
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}

	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "title is required"
	}
	if req.Message == "" {
		fields["message"] = "message is required"
	}
	switch req.Priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		fields["priority"] = "priority must be Low, Medium, or High"
	}
	return fields
}

func (h *OrganizationHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	a, err := h.announcements.Create(req.Title, req.Message, req.Priority, strings.TrimSpace(req.ImageURL))
	if err != nil {
		h.logger.Error("create announcement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create announcement")
		return
	}

	h.hub.NotifyChange("announcement", "created", a.ID)
	if a.Priority == model.PriorityHigh && h.scheduler != nil {
		go h.scheduler.NotifyAnnouncement(a)
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *OrganizationHandler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.announcements.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get announcement")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "announcement not found")
		return
	}

	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	a, err := h.announcements.Update(id, req.Title, req.Message, req.Priority, strings.TrimSpace(req.ImageURL))
	if err != nil {
		h.logger.Error("update announcement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update announcement")
		return
	}
	h.hub.NotifyChange("announcement", "updated", a.ID)
	writeJSON(w, http.StatusOK, a)
}

func (h *OrganizationHandler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.announcements.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get announcement")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "announcement not found")
		return
	}
	if err := h.announcements.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete announcement")
		return
	}
	h.hub.NotifyChange("announcement", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "announcement deleted"})
}

func (h *OrganizationHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListUpcoming()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *OrganizationHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	event, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// NextEvent returns the soonest upcoming event, 404 when the calendar is
// empty.
func (h *OrganizationHandler) NextEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.NextUpcoming()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get next event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "no upcoming events")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type eventRequest struct {
	Title       string `json:"title"`
	StartsAt    string `json:"starts_at"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Link        string `json:"link"`
}

func (req *eventRequest) validate() (time.Time, map[string]string) {
	req.Title = strings.TrimSpace(req.Title)

	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "title is required"
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		fields["starts_at"] = "starts_at must be an RFC 3339 timestamp"
	}
	return startsAt, fields
}

func (h *OrganizationHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	startsAt, fields := req.validate()
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	event, err := h.events.Create(req.Title, startsAt, strings.TrimSpace(req.Venue), strings.TrimSpace(req.Description), strings.TrimSpace(req.ImageURL), strings.TrimSpace(req.Link))
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	h.hub.NotifyChange("event", "created", event.ID)
	writeJSON(w, http.StatusCreated, event)
}

func (h *OrganizationHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	startsAt, fields := req.validate()
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	event, err := h.events.Update(id, req.Title, startsAt, strings.TrimSpace(req.Venue), strings.TrimSpace(req.Description), strings.TrimSpace(req.ImageURL), strings.TrimSpace(req.Link))
	if err != nil {
		h.logger.Error("update event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	h.hub.NotifyChange("event", "updated", event.ID)
	writeJSON(w, http.StatusOK, event)
}

func (h *OrganizationHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.events.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err := h.events.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	h.hub.NotifyChange("event", "deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "event deleted"})
}

// CreateApplication is public: prospective members apply without an account.
func (h *OrganizationHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName   string `json:"full_name"`
		Email      string `json:"email"`
		County     string `json:"county"`
		Motivation string `json:"motivation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = store.NormalizeEmail(req.Email)

	fields := map[string]string{}
	if req.FullName == "" {
		fields["full_name"] = "full name is required"
	}
	if req.Email == "" {
		fields["email"] = "email is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	app, err := h.applications.Create(req.FullName, req.Email, strings.TrimSpace(req.County), strings.TrimSpace(req.Motivation))
	if err != nil {
		h.logger.Error("create application", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit application")
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *OrganizationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	app, err := h.applications.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get application")
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *OrganizationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applications.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}
	if apps == nil {
		apps = []model.MembershipApplication{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// DecideApplication approves or rejects. Admin only (routing middleware).
func (h *OrganizationHandler) DecideApplication(w http.ResponseWriter, r *http.Request) {
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
	status := model.ApplicationStatus(req.Status)
	if status != model.ApplicationApproved && status != model.ApplicationRejected {
		writeFieldErrors(w, map[string]string{"status": "status must be Approved or Rejected"})
		return
	}

	existing, err := h.applications.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get application")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	app, err := h.applications.SetStatus(id, status)
	if err != nil {
		h.logger.Error("decide application", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to decide application")
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Stats is the dashboard headline block.
func (h *OrganizationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	pending, err := h.applications.CountPending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	upcoming, err := h.events.CountUpcoming()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	total, err := h.announcements.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, model.OrganizationStats{
		PendingApplications: pending,
		UpcomingEvents:      upcoming,
		TotalAnnouncements:  total,
	})
}
