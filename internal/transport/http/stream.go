package http

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"btxconv/internal/domain/texture"
)

// streamAttachment writes a claimed artifact as a download. Range requests are
// not honored; a claimed artifact can be read once.
func streamAttachment(w http.ResponseWriter, claimed texture.ClaimedArtifact) error {
	file, err := os.Open(claimed.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Download failed")
		return err
	}
	defer file.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(claimed.Name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(claimed.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": claimed.Name}))
	w.Header().Set("Cache-Control", "no-store")
	if claimed.Checksum != "" {
		w.Header().Set("ETag", strconv.Quote(claimed.Checksum))
	}
	w.WriteHeader(http.StatusOK)

	_, err = io.Copy(w, file)
	return err
}
