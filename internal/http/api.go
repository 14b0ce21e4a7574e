package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"friendboard/internal/auth"
	"friendboard/internal/domain"
	"friendboard/internal/media"
	"friendboard/internal/repository"
	"friendboard/internal/service"
)

const currentUserKey = "currentUser"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tokens *auth.TokenIssuer
	tmpDir string
}

func NewHandler(users service.UserService, tokens *auth.TokenIssuer, tmpDir string) *Handler {
	return &Handler{
		users:  users,
		tokens: tokens,
		tmpDir: tmpDir,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/users", h.register)
		api.POST("/users/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authed := api.Group("", h.requireAuth)
		{
			authed.GET("/users/me", h.me)
			authed.GET("/users/all", h.listUsers)
			authed.PUT("/users/:id", h.updateUser)
			authed.DELETE("/users/:id", h.deleteUser)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	userID, err := h.tokens.Parse(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

func (h *Handler) register(c *gin.Context) {
	upload, err := h.saveUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Nickname: c.PostForm("nickname"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Image:    upload,
	})
	if err != nil {
		h.discardUpload(upload)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, credentialsToResponse(creds))
}

type loginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creds, err := h.users.Authenticate(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, credentialsToResponse(creds))
}

func (h *Handler) me(c *gin.Context) {
	user := c.MustGet(currentUserKey).(*domain.User)
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]UserSummaryResponse, len(users))
	for i := range users {
		resp[i] = UserSummaryResponse{
			ID:       users[i].ID,
			Nickname: users[i].Nickname,
			Image:    users[i].ImageURL,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updateUser(c *gin.Context) {
	upload, err := h.saveUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), service.UpdateInput{
		Nickname: c.PostForm("nickname"),
		Image:    upload,
	})
	if err != nil {
		h.discardUpload(upload)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// saveUpload copies the "image" multipart part into the transient upload
// directory. A request without an image part yields a nil upload, which
// the service treats as "keep current image" or "image required" depending
// on the operation.
func (h *Handler) saveUpload(c *gin.Context) (*media.TransientUpload, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	dst := filepath.Join(h.tmpDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return nil, err
	}
	return media.NewTransientUpload(dst), nil
}

// discardUpload removes a transient file the binder never consumed. It is
// a no-op for uploads already consumed (Discard is idempotent).
func (h *Handler) discardUpload(upload *media.TransientUpload) {
	if upload == nil {
		return
	}
	_ = upload.Discard()
}

func writeError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	var dupErr *repository.DuplicateError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &dupErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type UserResponse struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email,omitempty"`
	Image     string `json:"image"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type AuthResponse struct {
	UserResponse
	Token string `json:"token"`
}

type UserSummaryResponse struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Image    string `json:"image"`
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:       user.ID,
		Nickname: user.Nickname,
		Email:    user.Email,
		Image:    user.ImageURL,
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	if !user.UpdatedAt.IsZero() {
		resp.UpdatedAt = user.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func credentialsToResponse(creds *service.Credentials) AuthResponse {
	return AuthResponse{
		UserResponse: userToResponse(creds.User),
		Token:        creds.Token,
	}
}
