package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/anhducmata/myath/internal/async"
	"github.com/anhducmata/myath/internal/export"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/store"
)

// maxUploadBytes caps problem uploads; scans and phone photos fit well under it.
const maxUploadBytes = 20 << 20

// Handler wires the HTTP routes.
type Handler struct {
	svc      *Service
	exporter *export.Service
	logger   *slog.Logger
}

func NewHandler(svc *Service, exporter *export.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, exporter: exporter, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/problems", h.submitProblem)
		r.Get("/problems/{id}", h.getProblem)
		r.Get("/export.xlsx", h.exportXLSX)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (h *Handler) submitProblem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	prob, err := h.svc.Submit(r.Context(), header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrUnsupportedType):
			h.writeError(w, http.StatusUnsupportedMediaType, "unsupported file type; use pdf, png, or jpg")
		case errors.Is(err, async.ErrQueueFull), errors.Is(err, async.ErrStopped):
			h.writeError(w, http.StatusServiceUnavailable, "service is at capacity, retry later")
		default:
			h.logger.Error("http.submit_failed", "err", err)
			h.writeError(w, http.StatusInternalServerError, "could not accept the problem")
		}
		return
	}
	h.writeJSON(w, http.StatusAccepted, prob)
}

func (h *Handler) getProblem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid problem id")
		return
	}
	prob, err := h.svc.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "problem not found")
			return
		}
		h.logger.Error("http.get_failed", "problem_id", id, "err", err)
		h.writeError(w, http.StatusInternalServerError, "could not load the problem")
		return
	}
	h.writeJSON(w, http.StatusOK, prob)
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="problems.xlsx"`)
	if err := h.exporter.WriteXLSX(r.Context(), w); err != nil {
		h.logger.Error("http.export_failed", "err", err)
		// headers are already out; the truncated body signals the failure
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("http.encode_failed", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
