package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"btxconv/internal/domain/texture"
	"github.com/gorilla/mux"
)

const (
	filesField          = "files"
	conversionTypeField = "conversionType"

	// multipart parts above this size spill to temp files
	multipartMemory = 32 << 20
)

type conversionUseCases interface {
	Process(ctx context.Context, files []texture.UploadedFile, dir texture.Direction) texture.BatchReport
	Fetch(rel string) (texture.ClaimedArtifact, error)
	Release(claimed texture.ClaimedArtifact) error
}

type Handler struct {
	conversions conversionUseCases
	logger      *slog.Logger
}

// NewHandler wires HTTP handlers with application use cases.
func NewHandler(conversions conversionUseCases, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{conversions: conversions, logger: logger}
}

type downloadLink struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

type fileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type convertResponse struct {
	Message        string         `json:"message"`
	Success        bool           `json:"success"`
	ConversionType string         `json:"conversionType"`
	BatchID        string         `json:"batchId"`
	DownloadLinks  []downloadLink `json:"downloadLinks"`
	Errors         []fileError    `json:"errors"`
}

// Convert handles POST /convert.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Malformed multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	dir, err := texture.ParseDirection(r.FormValue(conversionTypeField))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid conversion type")
		return
	}

	headers := r.MultipartForm.File[filesField]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	files := make([]texture.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadedFile(fh))
	}

	report := h.conversions.Process(r.Context(), files, dir)

	resp := convertResponse{
		Message:        report.Summary(),
		Success:        report.Succeeded(),
		ConversionType: dir.String(),
		BatchID:        report.ID,
		DownloadLinks:  make([]downloadLink, 0, len(report.Results)),
		Errors:         make([]fileError, 0, len(report.Errors)),
	}
	for _, result := range report.Results {
		resp.DownloadLinks = append(resp.DownloadLinks, downloadLink{
			Name:     result.Name,
			Path:     result.Path,
			URL:      downloadURL(result.Path),
			Size:     result.Size,
			Checksum: result.Checksum,
		})
	}
	for _, fe := range report.Errors {
		resp.Errors = append(resp.Errors, fileError{File: fe.File, Error: fe.Message})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /download/{path}. The artifact is deleted once the
// response has been written, whether or not the client read all of it.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	rel := getPathParam(r)
	claimed, err := h.conversions.Fetch(rel)
	if err != nil {
		if errors.Is(err, texture.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Download failed")
		return
	}
	defer func() {
		if err := h.conversions.Release(claimed); err != nil {
			h.logger.Warn("delete downloaded artifact failed", "path", rel, "error", err)
		}
	}()

	if err := streamAttachment(w, claimed); err != nil {
		h.logger.Warn("download interrupted", "path", rel, "error", err)
	}
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func uploadedFile(fh *multipart.FileHeader) texture.UploadedFile {
	return texture.UploadedFile{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// downloadURL escapes each segment of an artifact reference so names with
// spaces, '#' or '?' survive as a single path.
func downloadURL(rel string) string {
	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/download/" + strings.Join(segments, "/")
}

func getPathParam(r *http.Request) string {
	value := mux.Vars(r)["path"]
	if value != "" {
		return value
	}
	return r.URL.Query().Get("path")
}
