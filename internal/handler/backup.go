package handler

import (
	"log/slog"
	"net/http"

	"github.com/gnetorg/gnet/internal/backup"
	"github.com/gnetorg/gnet/internal/model"
	"github.com/gnetorg/gnet/internal/store"
)

const backupHistoryLimit = 20

// BackupHandler exposes manual runs and history. Admin only via routing.
type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		manager: m,
		backups: bs,
		logger:  logger.With("component", "backup"),
	}
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil || !h.manager.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	record, err := h.backups.GetByID(id)
	if err != nil || record == nil {
		writeError(w, http.StatusInternalServerError, "backup ran but record lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *BackupHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.backups.ListRecent(backupHistoryLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if records == nil {
		records = []model.BackupRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
