package ginserver

import (
	"fmt"
	"net/http"
	"path"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"innkeeper/internal/app/policies"
)

type MediaHandler struct {
	Uploader policies.Uploader
}

func (h MediaHandler) Upload(c *gin.Context) {
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploader unavailable"})
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	key := fmt.Sprintf("properties/%s%s", uuid.NewString(), path.Ext(fileHeader.Filename))
	url, err := h.Uploader.Upload(c.Request.Context(), key, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "key": key})
}

var _ MediaHTTP = MediaHandler{}
