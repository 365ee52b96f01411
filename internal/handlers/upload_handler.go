package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadProfilePicture handles POST /v1/profile/picture
// It stores the image in the object store and returns the public URL.
func (h *Handlers) UploadProfilePicture(c *gin.Context) {
	// 1. Get the file from the request
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	data, err := readFile(fh)
	if err != nil {
		if isImageError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, "Failed to read file", err)
		return
	}

	// 2. Store it, replacing the previous picture
	user := currentUser(c)
	url, err := h.Catalog.UploadProfilePicture(c.Request.Context(), user.ID, data)
	if err != nil {
		if isImageError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.serverError(c, "Failed to save file", err)
		return
	}

	// 3. Return the public URL
	c.JSON(http.StatusOK, gin.H{
		"url": url,
	})
}
