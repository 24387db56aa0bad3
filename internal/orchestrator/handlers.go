package orchestrator

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/orchestrator/users"
	"github.com/librarium/librarium/internal/token"
)

// Handlers provides HTTP handlers for user lifecycle operations
type Handlers struct {
	orchestrator *Orchestrator
}

// NewHandlers creates new orchestrator handlers
func NewHandlers(orchestrator *Orchestrator) *Handlers {
	return &Handlers{orchestrator: orchestrator}
}

// RegisterRoutes registers all user lifecycle routes
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.PUT("/user", h.Register)
	router.GET("/user", h.Login)
	router.DELETE("/user/:username", h.Delete)
	router.GET("/user/:uid", h.Validate)

	router.GET("/health", h.HealthCheck)
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type credentialsResponse struct {
	UID         string `json:"uid"`
	AccessToken string `json:"access_token"`
}

type validateRequest struct {
	AccessToken string `json:"access_token"`
}

// Register creates a user and provisions their library
func (h *Handlers) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing field: name"})
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing field: password"})
		return
	}

	user, err := h.orchestrator.Register(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		if users.IsErrorType(err, users.UserErrorTypeAlreadyExists) ||
			users.IsErrorType(err, users.UserErrorTypeInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": userFacingMessage(err)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	c.JSON(http.StatusOK, credentialsResponse{
		UID:         user.UID.String(),
		AccessToken: user.AccessToken,
	})
}

// Login returns a user's credentials after a successful password check.
// Unknown username and wrong password collapse into one generic response so
// the endpoint cannot be used to enumerate accounts.
func (h *Handlers) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user name and password."})
		return
	}

	user, err := h.orchestrator.Login(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		if users.IsErrorType(err, users.UserErrorTypeNotFound) ||
			users.IsErrorType(err, users.UserErrorTypeInvalidCredentials) ||
			users.IsErrorType(err, users.UserErrorTypeInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, credentialsResponse{
		UID:         user.UID.String(),
		AccessToken: user.AccessToken,
	})
}

// Delete removes a user and their library
func (h *Handlers) Delete(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}
	presentedToken, ok := token.ExtractBearer(authHeader)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed authorization header"})
		return
	}

	err := h.orchestrator.Delete(c.Request.Context(), c.Param("username"), presentedToken)
	if err != nil {
		switch {
		case users.IsErrorType(err, users.UserErrorTypeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case IsErrorType(err, SagaErrorTypeUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token does not match user"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "deletion failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User successfully deleted"})
}

// Validate is the privileged endpoint the library service uses to confirm a
// token's owner. A blank identifier segment means "any registered user".
func (h *Handlers) Validate(c *gin.Context) {
	credential, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok || !h.orchestrator.Scheme().IsServiceCredential(credential) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "service credential required"})
		return
	}

	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccessToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
		return
	}

	identifier := strings.TrimSpace(c.Param("uid"))
	found, err := h.orchestrator.Validate(c.Request.Context(), identifier, req.AccessToken)
	if err != nil || !found {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token not recognized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "valid"})
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// userFacingMessage surfaces store validation messages without internal
// error formatting.
func userFacingMessage(err error) string {
	var userErr *users.UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return "invalid request"
}
