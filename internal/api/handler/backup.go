package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/repo-backup/internal/api/request"
	"github.com/edvin/repo-backup/internal/api/response"
	"github.com/edvin/repo-backup/internal/core"
	"github.com/edvin/repo-backup/internal/job"
	"github.com/edvin/repo-backup/internal/model"
	"github.com/edvin/repo-backup/internal/record"
)

// BackupService is the subset of core.BackupService the handler uses.
type BackupService interface {
	Start(ctx context.Context, p job.Params) (*model.BackupRecord, error)
	GetByID(ctx context.Context, id string) (*model.BackupRecord, error)
	ListByRepository(ctx context.Context, repoName, owner string, limit int) ([]model.BackupRecord, error)
}

type Backup struct {
	svc BackupService
}

func NewBackup(svc BackupService) *Backup {
	return &Backup{svc: svc}
}

// Create dispatches a backup job and returns its pending record.
func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.Start(r.Context(), req.Params())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("repo", req.Repo).Str("owner", req.Owner).Msg("failed to start backup")
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrDispatch) {
			status = http.StatusBadGateway
		}
		response.WriteError(w, status, "failed to start backup")
		return
	}

	response.WriteJSON(w, http.StatusAccepted, rec)
}

// List returns the backup history of one repository, newest first.
func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	filter, err := request.ParseListBackups(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.svc.ListByRepository(r.Context(), filter.Repo, filter.Owner, request.ParseLimit(r))
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []model.BackupRecord{}
	}

	response.WriteList(w, http.StatusOK, records)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.GetByID(r.Context(), id)
	if errors.Is(err, record.ErrNotFound) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, rec)
}
