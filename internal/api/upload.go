package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"huddle/internal/storage"
)

type UploadHandler struct {
	storage *storage.Service
	logger  *zap.Logger
}

func NewUploadHandler(storage *storage.Service, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{storage: storage, logger: logger}
}

// GenerateURL handles POST /v1/upload. Requires auth; returns the file id
// to attach to a message plus the short-lived URL to PUT the bytes to.
func (h *UploadHandler) GenerateURL(c *gin.Context) {
	fileID, url, err := h.storage.GenerateUploadURL()
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": fileID, "url": url})
}

// Put handles PUT /v1/files/:id?token=. The token is the sole credential,
// so the route stays outside the auth middleware.
func (h *UploadHandler) Put(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	name := c.Query("name")
	if name == "" {
		name = fileID.String()
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := h.storage.Save(c.Request.Context(), fileID, c.Query("token"), name, contentType, c.Request.Body)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, file)
}

// Get handles GET /v1/files/:id?token=, streaming the stored bytes back.
func (h *UploadHandler) Get(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, reader, err := h.storage.Open(c.Request.Context(), fileID, c.Query("token"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Length", strconv.FormatInt(file.Size, 10))
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.Warn("stream file", zap.Error(err))
	}
}
