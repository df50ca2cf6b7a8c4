package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/checker/internal/submission"
)

// HTTPHandler exposes the platform endpoints the checker talks to.
type HTTPHandler struct {
	service      *Service
	logger       *zap.Logger
	maxSizeBytes int64
	formMemBytes int64
	router       chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, maxSizeBytes, formMemBytes int64) *HTTPHandler {
	h := &HTTPHandler{
		service:      service,
		logger:       logger,
		maxSizeBytes: maxSizeBytes,
		formMemBytes: formMemBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Get("/auth", h.handleAuth)
	r.Post("/run", h.handleRun)
	r.Post("/report", h.handleReport)
	r.Post("/{bucket}", h.handleUpload)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleAuth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bundle, err := h.service.Authorize(r.Context(), AuthRequest{
		Phone:     q.Get("phone"),
		TestSetID: q.Get("setId"),
		MAC:       q.Get("mac"),
		BaseURL:   baseURL(r),
	})
	switch {
	case errors.Is(err, ErrPhoneNotRegistered), errors.Is(err, ErrUnknownTestSet):
		writeJSON(w, http.StatusOK, map[string]string{"message": err.Error()})
		return
	case err != nil:
		h.logger.Error("authorize failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authorize failed")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && r.ContentLength > h.maxSizeBytes+h.formMemBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxSizeBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds max size limit")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file part")
		return
	}

	err = h.service.Upload(r.Context(), chi.URLParam(r, "bucket"), UploadForm{
		Key:         r.FormValue("key"),
		AccessKeyID: r.FormValue("OSSAccessKeyId"),
		Policy:      r.FormValue("policy"),
		Signature:   r.FormValue("Signature"),
		Data:        data,
	})
	switch {
	case errors.Is(err, ErrNoSuchBucket):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, ErrAccessDenied):
		h.logger.Warn("upload denied", zap.Error(err))
		writeError(w, http.StatusForbidden, "access denied")
		return
	case err != nil:
		h.logger.Error("upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req submission.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid run request")
		return
	}

	result, err := h.service.Judge(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result)
}

func (h *HTTPHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	var rec submission.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid analytics record")
		return
	}
	if err := h.service.Record(r.Context(), rec); err != nil {
		h.logger.Error("record analytics failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "record failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
