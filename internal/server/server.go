package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gnetorg/gnet/internal/backup"
	"github.com/gnetorg/gnet/internal/config"
	"github.com/gnetorg/gnet/internal/email"
	"github.com/gnetorg/gnet/internal/handler"
	"github.com/gnetorg/gnet/internal/middleware"
	"github.com/gnetorg/gnet/internal/payments"
	"github.com/gnetorg/gnet/internal/push"
	"github.com/gnetorg/gnet/internal/store"
	ws "github.com/gnetorg/gnet/internal/websocket"
)

// Mutating requests need the double-submit CSRF token, with two exceptions:
// fetching the token itself, and the Stripe webhook which carries its own
// signature.
var csrfExempt = map[string]bool{
	"/api/auth/csrf/":              true,
	"/api/finance/stripe/webhook/": true,
}

type Server struct {
	db           *sql.DB
	cfg          *config.Config
	hub          *ws.Hub
	authH        *handler.AuthHandler
	memberH      *handler.MemberHandler
	financeH     *handler.FinanceHandler
	orgH         *handler.OrganizationHandler
	projectH     *handler.ProjectHandler
	pushH        *handler.PushHandler
	backupH      *handler.BackupHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	pushSvc      *push.Service
	pushSched    *push.Scheduler
	backupMgr    *backup.Manager
	logger       *slog.Logger
}

func New(cfg *config.Config, db *sql.DB, sender email.Sender, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	profileStore := store.NewProfileStore(db)
	topUpStore := store.NewTopUpStore(db)
	withdrawalStore := store.NewWithdrawalStore(db)
	auditStore := store.NewAuditStore(db)
	announcementStore := store.NewAnnouncementStore(db)
	eventStore := store.NewEventStore(db)
	applicationStore := store.NewApplicationStore(db)
	ideaStore := store.NewIdeaStore(db)
	proposalStore := store.NewProposalStore(db)
	milestoneStore := store.NewMilestoneStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	paymentsClient := payments.NewClient(payments.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.FrontendURL + "/finance/success/",
		CancelURL:     cfg.FrontendURL + "/finance/cancelled/",
	})

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	if cfg.PushEnabled() {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
		pushSched = push.NewScheduler(pushSvc, pushStore, eventStore, logger.With("component", "push"))
	}

	var backupMgr *backup.Manager
	if cfg.BackupEnabled() {
		backupMgr = backup.NewManager(backup.Config{
			Bucket:     cfg.BackupBucket,
			Region:     cfg.BackupRegion,
			Endpoint:   cfg.BackupEndpoint,
			AccessKey:  cfg.BackupAccessKey,
			SecretKey:  cfg.BackupSecretKey,
			Passphrase: cfg.BackupPassphrase,
			DBPath:     cfg.DBPath,
		}, db, backupStore, logger.With("component", "backup"))
	}

	return &Server{
		db:           db,
		cfg:          cfg,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, sender, logger, cfg.Debug),
		memberH:      handler.NewMemberHandler(userStore, profileStore, sessionStore, sender, []byte(cfg.ResetSecret), cfg.FrontendURL, logger),
		financeH:     handler.NewFinanceHandler(topUpStore, withdrawalStore, auditStore, userStore, paymentsClient, hub, logger),
		orgH:         handler.NewOrganizationHandler(announcementStore, eventStore, applicationStore, pushSched, hub, logger),
		projectH:     handler.NewProjectHandler(ideaStore, proposalStore, milestoneStore, hub, logger),
		pushH:        handler.NewPushHandler(pushStore, pushSvc, logger),
		backupH:      handler.NewBackupHandler(backupMgr, backupStore, logger),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		pushSvc:      pushSvc,
		pushSched:    pushSched,
		backupMgr:    backupMgr,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the reminder scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushSched
}

// BackupManager returns the backup manager, nil when backups are not
// configured.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

func (s *Server) Router() http.Handler {
	outer := http.NewServeMux()

	// Public routes
	outer.HandleFunc("GET /api/auth/csrf/{$}", s.authH.CSRF)
	outer.HandleFunc("POST /api/auth/csrf/{$}", s.authH.CSRF)
	outer.HandleFunc("POST /api/auth/login/{$}", s.rateLimited(s.authH.Login))
	outer.HandleFunc("POST /api/auth/register/{$}", s.rateLimited(s.authH.Register))
	outer.HandleFunc("POST /api/members/join/{$}", s.rateLimited(s.memberH.Join))
	outer.HandleFunc("GET /api/members/count/{$}", s.memberH.Count)
	outer.HandleFunc("GET /api/members/directory/{$}", s.memberH.Directory)
	outer.HandleFunc("POST /api/members/activate/{$}", s.memberH.Activate)
	outer.HandleFunc("POST /api/members/set-password/{$}", s.memberH.SetPassword)
	outer.HandleFunc("POST /api/members/password-reset/{$}", s.rateLimited(s.memberH.RequestReset))
	outer.HandleFunc("POST /api/members/password-reset/confirm/{$}", s.rateLimited(s.memberH.ConfirmReset))
	outer.HandleFunc("GET /api/organization/announcements/recent/{$}", s.orgH.RecentAnnouncements)
	outer.HandleFunc("POST /api/organization/applications/{$}", s.orgH.CreateApplication)
	outer.HandleFunc("POST /api/finance/stripe/webhook/{$}", s.financeH.StripeWebhook)
	outer.HandleFunc("GET /health", s.health)

	// Session-gated routes
	protected := http.NewServeMux()
	s.registerProtectedRoutes(protected)

	requireAuth := middleware.RequireAuth(s.sessionStore, s.userStore)
	outer.Handle("/", requireAuth(protected))

	chain := middleware.CORS(s.cfg.AllowedOrigins)(
		middleware.VerifyCSRF(csrfExempt)(outer))
	return middleware.RequestLogger(s.logger.With("component", "http"))(chain)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout/{$}", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/profile/{$}", s.authH.Profile)
	mux.HandleFunc("PUT /api/auth/profile/{$}", s.authH.Profile)
	mux.HandleFunc("GET /api/auth/users/{$}", s.authH.Users)
	mux.HandleFunc("GET /api/auth/users/{id}/{$}", s.authH.GetUser)

	// Member profiles
	mux.HandleFunc("GET /api/members/profiles/{$}", s.memberH.ListProfiles)
	mux.HandleFunc("GET /api/members/profiles/{id}/{$}", s.memberH.GetProfile)
	mux.HandleFunc("PUT /api/members/profiles/{id}/{$}", s.memberH.UpdateProfile)
	mux.HandleFunc("DELETE /api/members/profiles/{id}/{$}", s.memberH.DeleteProfile)

	// Finance
	mux.HandleFunc("GET /api/finance/topups/{$}", s.financeH.ListTopUps)
	mux.HandleFunc("POST /api/finance/topups/{$}", s.financeH.CreateTopUp)
	mux.HandleFunc("GET /api/finance/topups/{id}/{$}", s.financeH.GetTopUp)
	mux.HandleFunc("DELETE /api/finance/topups/{id}/{$}", s.financeH.DeleteTopUp)
	mux.HandleFunc("POST /api/finance/topups/{id}/checkout/{$}", s.financeH.Checkout)
	mux.HandleFunc("GET /api/finance/withdrawals/{$}", s.financeH.ListWithdrawals)
	mux.HandleFunc("POST /api/finance/withdrawals/{$}", s.financeH.CreateWithdrawal)
	mux.HandleFunc("GET /api/finance/withdrawals/{id}/{$}", s.financeH.GetWithdrawal)
	mux.HandleFunc("DELETE /api/finance/withdrawals/{id}/{$}", s.financeH.DeleteWithdrawal)
	mux.HandleFunc("GET /api/finance/audits/{$}", s.financeH.ListAudits)
	mux.HandleFunc("GET /api/finance/audits/{id}/{$}", s.financeH.GetAudit)
	mux.HandleFunc("GET /api/finance/summary/{$}", s.financeH.Summary)
	mux.HandleFunc("GET /api/finance/rankings/{$}", s.financeH.Rankings)

	// Organization
	mux.HandleFunc("GET /api/organization/announcements/{$}", s.orgH.ListAnnouncements)
	mux.HandleFunc("GET /api/organization/announcements/{id}/{$}", s.orgH.GetAnnouncement)
	mux.HandleFunc("GET /api/organization/events/{$}", s.orgH.ListEvents)
	mux.HandleFunc("GET /api/organization/events/next/{$}", s.orgH.NextEvent)
	mux.HandleFunc("GET /api/organization/events/{id}/{$}", s.orgH.GetEvent)
	mux.HandleFunc("GET /api/organization/stats/{$}", s.orgH.Stats)

	// Projects
	mux.HandleFunc("GET /api/projects/ideas/{$}", s.projectH.ListIdeas)
	mux.HandleFunc("POST /api/projects/ideas/{$}", s.projectH.CreateIdea)
	mux.HandleFunc("GET /api/projects/ideas/{id}/{$}", s.projectH.GetIdea)
	mux.HandleFunc("PUT /api/projects/ideas/{id}/{$}", s.projectH.UpdateIdea)
	mux.HandleFunc("POST /api/projects/ideas/{id}/status/{$}", s.projectH.SetIdeaStatus)
	mux.HandleFunc("DELETE /api/projects/ideas/{id}/{$}", s.projectH.DeleteIdea)
	mux.HandleFunc("GET /api/projects/proposals/{$}", s.projectH.ListProposals)
	mux.HandleFunc("POST /api/projects/proposals/{$}", s.projectH.CreateProposal)
	mux.HandleFunc("GET /api/projects/proposals/{id}/{$}", s.projectH.GetProposal)
	mux.HandleFunc("POST /api/projects/proposals/{id}/approve/{$}", s.projectH.ApproveProposal)
	mux.HandleFunc("DELETE /api/projects/proposals/{id}/{$}", s.projectH.DeleteProposal)
	mux.HandleFunc("GET /api/projects/milestones/{$}", s.projectH.ListMilestones)
	mux.HandleFunc("POST /api/projects/milestones/{$}", s.projectH.CreateMilestone)
	mux.HandleFunc("GET /api/projects/milestones/{id}/{$}", s.projectH.GetMilestone)
	mux.HandleFunc("PUT /api/projects/milestones/{id}/{$}", s.projectH.UpdateMilestone)
	mux.HandleFunc("DELETE /api/projects/milestones/{id}/{$}", s.projectH.DeleteMilestone)

	// Push
	mux.HandleFunc("GET /api/push/vapid-key/{$}", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe/{$}", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe/{$}", s.pushH.Unsubscribe)

	// Admin-only
	admin := http.NewServeMux()
	admin.HandleFunc("POST /api/organization/announcements/{$}", s.orgH.CreateAnnouncement)
	admin.HandleFunc("PUT /api/organization/announcements/{id}/{$}", s.orgH.UpdateAnnouncement)
	admin.HandleFunc("DELETE /api/organization/announcements/{id}/{$}", s.orgH.DeleteAnnouncement)
	admin.HandleFunc("POST /api/organization/events/{$}", s.orgH.CreateEvent)
	admin.HandleFunc("PUT /api/organization/events/{id}/{$}", s.orgH.UpdateEvent)
	admin.HandleFunc("DELETE /api/organization/events/{id}/{$}", s.orgH.DeleteEvent)
	admin.HandleFunc("GET /api/organization/applications/{$}", s.orgH.ListApplications)
	admin.HandleFunc("GET /api/organization/applications/{id}/{$}", s.orgH.GetApplication)
	admin.HandleFunc("PUT /api/organization/applications/{id}/{$}", s.orgH.DecideApplication)
	admin.HandleFunc("PUT /api/finance/withdrawals/{id}/decide/{$}", s.financeH.DecideWithdrawal)
	admin.HandleFunc("POST /api/finance/audits/{$}", s.financeH.CreateAudit)
	admin.HandleFunc("POST /api/backups/run/{$}", s.backupH.Run)
	admin.HandleFunc("GET /api/backups/{$}", s.backupH.History)

	adminGate := middleware.RequireAdmin(admin)
	mux.Handle("POST /api/organization/announcements/", adminGate)
	mux.Handle("PUT /api/organization/announcements/", adminGate)
	mux.Handle("DELETE /api/organization/announcements/", adminGate)
	mux.Handle("POST /api/organization/events/", adminGate)
	mux.Handle("PUT /api/organization/events/", adminGate)
	mux.Handle("DELETE /api/organization/events/", adminGate)
	mux.Handle("GET /api/organization/applications/", adminGate)
	mux.Handle("PUT /api/organization/applications/", adminGate)
	mux.Handle("PUT /api/finance/withdrawals/", adminGate)
	mux.Handle("POST /api/finance/audits/", adminGate)
	mux.Handle("/api/backups/", adminGate)

	// Live updates
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.cfg.AllowedOrigins, s.logger))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
