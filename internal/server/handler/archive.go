package handler

import (
	"log/slog"
	"net/http"

	"github.com/infinityai/tradebot/internal/domain"
)

// ArchiveHandler lists cold-storage archive objects. Only wired in modes that
// have blob storage configured.
type ArchiveHandler struct {
	reader domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler over the blob reader.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		reader: reader,
		logger: logHandler(logger, "archive"),
	}
}

// ListArchives lists archived objects, optionally under a ?prefix=.
// GET /api/v1/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "archive/"
	}

	blobs, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archives": blobs,
		"count":    len(blobs),
	})
}
