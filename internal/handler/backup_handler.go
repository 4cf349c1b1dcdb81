package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"page-reader/internal/domain"
	"page-reader/internal/service"
)

// BackupHandler exports and imports the whole library.
type BackupHandler struct {
	backup *service.BackupService
	logger domain.Logger
}

func NewBackupHandler(backup *service.BackupService, logger domain.Logger) *BackupHandler {
	return &BackupHandler{backup: backup, logger: logger}
}

// Export handles GET /backup
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	b, err := h.backup.Export(r.Context())
	if err != nil {
		writeAppError(w, h.logger, "Failed to export backup", err)
		return
	}
	filename := fmt.Sprintf("reader-backup-%s.json", b.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, b)
}

// Import handles POST /backup
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.backup.Import(r.Context(), body)
	if err != nil {
		writeAppError(w, h.logger, "Failed to import backup", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type lastExportResponse struct {
	LastExportDate *time.Time `json:"lastExportDate"`
}

// LastExport handles GET /backup/last-export
func (h *BackupHandler) LastExport(w http.ResponseWriter, r *http.Request) {
	t, ok, err := h.backup.LastExport(r.Context())
	if err != nil {
		writeAppError(w, h.logger, "Failed to read last export date", err)
		return
	}
	resp := lastExportResponse{}
	if ok {
		resp.LastExportDate = &t
	}
	writeJSON(w, http.StatusOK, resp)
}
