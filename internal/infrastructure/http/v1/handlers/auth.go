package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/auth"
	"retailcore/internal/infrastructure/http/v1/dto"
	"retailcore/internal/infrastructure/http/v1/middleware"
)

// AuthHandler handles authentication and user administration endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.Register(ctx, auth.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromUser(user))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, user, err := h.service.Login(ctx, auth.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		TokenResponse: dto.FromTokenPair(tokens),
		User:          dto.FromUser(user),
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefreshRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTokenPair(tokens))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	user := appctx.GetUser(ctx)
	if user == nil {
		h.Error(c, apperror.NewUnauthorized("not authenticated"))
		return
	}

	userID, err := id.Parse(user.UserID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid user id"))
		return
	}

	if err := h.service.Logout(ctx, userID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	userCtx := appctx.GetUser(ctx)
	if userCtx == nil {
		h.Error(c, apperror.NewUnauthorized("not authenticated"))
		return
	}

	userID, err := id.Parse(userCtx.UserID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid user id"))
		return
	}

	user, err := h.service.GetUserByID(ctx, userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUser(user))
}

// ListUsers handles GET /auth/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()

	filter := auth.UserFilter{
		Search:   c.Query("search"),
		RoleCode: c.Query("role"),
		Limit:    h.ParseIntQuery(c, "limit", 50),
		Offset:   h.ParseIntQuery(c, "offset", 0),
	}
	if activeStr := c.Query("isActive"); activeStr != "" {
		active := activeStr == "true"
		filter.IsActive = &active
	}

	users, total, err := h.service.ListUsers(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.UserResponse, len(users))
	for i := range users {
		items[i] = dto.FromUser(&users[i])
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: int64(total),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// GetUser handles GET /auth/users/:id
func (h *AuthHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(ctx, userID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUser(user))
}

// SetUserActive handles POST /auth/users/:id/active
func (h *AuthHandler) SetUserActive(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetUserActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetActive(ctx, userID, req.Active); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "user updated")
}

// AssignRole handles POST /auth/users/:id/roles
func (h *AuthHandler) AssignRole(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AssignRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.AssignRole(ctx, userID, req.RoleCode); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "role assigned")
}

// RevokeRole handles DELETE /auth/users/:id/roles/:code
func (h *AuthHandler) RevokeRole(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	roleCode := c.Param("code")
	if roleCode == "" {
		h.Error(c, apperror.NewValidation("role code is required"))
		return
	}

	if err := h.service.RevokeRole(ctx, userID, roleCode); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "role revoked")
}

// ListRoles handles GET /auth/roles
func (h *AuthHandler) ListRoles(c *gin.Context) {
	ctx := c.Request.Context()
	roles, err := h.service.ListRoles(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": roles})
}

// CreateRole handles POST /auth/roles
func (h *AuthHandler) CreateRole(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	role, err := h.service.CreateRole(ctx, req.Code, req.Name, req.Description)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, role)
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	// Public routes (no auth required)
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	// Protected routes (auth required)
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)

	// User administration is privileged.
	protected.GET("/users", middleware.RequireAdmin(), h.ListUsers)
	protected.GET("/users/:id", middleware.RequireAdmin(), h.GetUser)
	protected.POST("/users/:id/active", middleware.RequireAdmin(), h.SetUserActive)
	protected.POST("/users/:id/roles", middleware.RequireAdmin(), h.AssignRole)
	protected.DELETE("/users/:id/roles/:code", middleware.RequireAdmin(), h.RevokeRole)
	protected.GET("/roles", h.ListRoles)
	protected.POST("/roles", middleware.RequireAdmin(), h.CreateRole)
}
