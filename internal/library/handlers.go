package library

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/librarium/librarium/internal/token"
)

// Handlers provides HTTP handlers for library operations
type Handlers struct {
	service *Service
}

// NewHandlers creates new library handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers all library routes
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	files := router.Group("/file")
	{
		files.PUT("/:uid", h.Provision)
		files.DELETE("/:uid", h.Deprovision)
		files.GET("/:uid", h.ListFiles)
		files.PUT("/:uid/:name", h.PutFile)
		files.GET("/:uid/:name", h.GetFile)
		files.DELETE("/:uid/:name", h.RemoveFile)
	}

	router.GET("/health", h.HealthCheck)
}

// Provision creates an empty container. Privileged.
func (h *Handlers) Provision(c *gin.Context) {
	credential, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer credential required"})
		return
	}

	uid, ok := pathUID(c)
	if !ok {
		return
	}

	if err := h.service.Provision(c.Request.Context(), credential, uid); err != nil {
		writeLibraryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"uid": uid.String()})
}

// Deprovision deletes a container and all its files. Privileged.
func (h *Handlers) Deprovision(c *gin.Context) {
	credential, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer credential required"})
		return
	}

	uid, ok := pathUID(c)
	if !ok {
		return
	}

	if err := h.service.Deprovision(c.Request.Context(), credential, uid); err != nil {
		writeLibraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"uid": uid.String()})
}

// ListFiles returns the container's file names. Self-access only.
func (h *Handlers) ListFiles(c *gin.Context) {
	bearer, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	uid, ok := pathUID(c)
	if !ok {
		return
	}

	names, err := h.service.ListFiles(c.Request.Context(), bearer, uid)
	if err != nil {
		writeLibraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": names})
}

// PutFile stores the request body under the given name. Self-access only.
func (h *Handlers) PutFile(c *gin.Context) {
	bearer, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	uid, ok := pathUID(c)
	if !ok {
		return
	}

	content, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read request body"})
		return
	}

	if err := h.service.PutFile(c.Request.Context(), bearer, uid, c.Param("name"), content); err != nil {
		writeLibraryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"name": c.Param("name")})
}

// GetFile returns file content. Any registered user's token is accepted.
func (h *Handlers) GetFile(c *gin.Context) {
	bearer, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	uid, ok := pathUID(c)
	if !ok {
		return
	}

	content, err := h.service.GetFile(c.Request.Context(), bearer, uid, c.Param("name"))
	if err != nil {
		writeLibraryError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", content)
}

// RemoveFile deletes a file. Self-access only.
func (h *Handlers) RemoveFile(c *gin.Context) {
	bearer, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	uid, ok := pathUID(c)
	if !ok {
		return
	}

	if err := h.service.RemoveFile(c.Request.Context(), bearer, uid, c.Param("name")); err != nil {
		writeLibraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": c.Param("name")})
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// pathUID parses the :uid segment. A non-UUID segment responds 404, matching
// a router that only binds UUID-shaped paths.
func pathUID(c *gin.Context) (uuid.UUID, bool) {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return uid, true
}

// writeLibraryError maps typed library errors onto the wire contract.
func writeLibraryError(c *gin.Context, err error) {
	var libErr *LibraryError
	if !errors.As(err, &libErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch libErr.Type {
	case LibraryErrorTypeUnauthorized, LibraryErrorTypePermissionDenied:
		c.JSON(http.StatusUnauthorized, gin.H{"error": libErr.Message})
	case LibraryErrorTypeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": libErr.Message})
	case LibraryErrorTypeAlreadyExists:
		c.JSON(http.StatusConflict, gin.H{"error": libErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": libErr.Message})
	}
}
