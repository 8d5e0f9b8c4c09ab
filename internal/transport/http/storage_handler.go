package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// PreviewFiles opens stored preview thumbnails by reference.
type PreviewFiles interface {
	Open(ref string) (afero.File, error)
}

// StorageHandlers serves stored preview thumbnails.
type StorageHandlers struct {
	files PreviewFiles
	log   *zerolog.Logger
}

// NewStorageHandlers creates storage handlers. files may be nil when
// thumbnail storage is disabled.
func NewStorageHandlers(files PreviewFiles, logger *zerolog.Logger) *StorageHandlers {
	return &StorageHandlers{files: files, log: logger}
}

// Serve streams one thumbnail.
// GET /storage/:name
func (h *StorageHandlers) Serve(c *gin.Context) {
	if h.files == nil {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}
	name := c.Param("name")
	f, err := h.files.Open(name)
	if err != nil {
		h.log.Debug().Err(err).Str("ref", name).Msg("preview not found")
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.log.Warn().Err(err).Str("ref", name).Msg("stat preview")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	// Content addressed, never changes.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	stdhttp.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}
