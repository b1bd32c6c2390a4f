package uploads

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	commonhandler "family-lists-go/internal/transport/httpserver/handler/common"
	"family-lists-go/internal/transport/httpserver/middleware"
	"family-lists-go/internal/wire"
	"family-lists-go/pkg/logger"
	"github.com/google/uuid"
)

const formField = "file"

var errFileTooLarge = errors.New("file exceeds upload limit")

type Handlers struct {
	dir       string
	maxBytes  int64
	publicURL string
	log       logger.Logger
}

func New(dir string, maxBytes int64, publicURL string, log logger.Logger) *Handlers {
	return &Handlers{
		dir:       dir,
		maxBytes:  maxBytes,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       logger.OrNop(log),
	}
}

// Upload stores the multipart "file" part under a fresh name and returns its public URL.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhandler.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	file, header, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.BusinessError("uploads.upload: body too large", err, "user_id", user.ID)
			commonhandler.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file too large")
			return
		}
		h.log.BusinessError("uploads.upload: missing file", err, "user_id", user.ID)
		commonhandler.WriteError(w, http.StatusBadRequest, "invalid_request", "file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		h.log.BusinessError("uploads.upload: file too large", errFileTooLarge, "user_id", user.ID, "size", header.Size)
		commonhandler.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file too large")
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.log.InternalError("uploads.upload: create dir failed", err, "dir", h.dir)
		commonhandler.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	name := uuid.NewString() + extension(header.Filename)
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		h.log.InternalError("uploads.upload: create file failed", err, "name", name)
		commonhandler.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	written, copyErr := io.Copy(dst, io.LimitReader(file, h.maxBytes))
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst.Name())
		h.log.InternalError("uploads.upload: write file failed", errors.Join(copyErr, closeErr), "name", name)
		commonhandler.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	h.log.Info("uploads.upload: stored", "user_id", user.ID, "name", name, "bytes", written)
	commonhandler.WriteData(w, http.StatusCreated, wire.UploadPayload{URL: h.publicURL + "/uploads/" + name})
}

// Files serves stored uploads; mount it under /uploads/.
func (h *Handlers) Files() http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.dir)))
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
