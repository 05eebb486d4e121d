package allowlist

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/middleware"
	"santiye/internal/pkg/response"
	"santiye/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts endpoints for any authenticated user.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/refresh", h.Refresh)
}

// RegisterAdminRoutes mounts user management; callers must already be
// authenticated and hold the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("/allowlist", h.AddEntry)
		users.DELETE("/:id", h.RemoveUser)
	}
}

func toUserResponse(u *domain.AppUser) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req)
	switch err {
	case nil:
	case ErrNotAllowlisted:
		response.Error(c, http.StatusForbidden, "NOT_ALLOWLISTED", "This email is not authorized to register")
		return
	case ErrUserExists:
		response.Error(c, http.StatusConflict, "USER_EXISTS", "An account already exists for this email")
		return
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
		return
	}

	response.Success(c, http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req)
	if err == ErrInvalidCredentials {
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Wrong email or password")
		return
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	response.Success(c, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) Refresh(c *gin.Context) {
	user, token, err := h.service.Refresh(c.Request.Context(), c.GetString("user_id"))
	if err == ErrUserNotFound {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Account no longer exists")
		return
	}
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Token refresh failed")
		return
	}
	response.Success(c, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), middleware.AuthContext(c))
	if err != nil {
		if docstore.IsPermissionDenied(err) {
			response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You cannot list users")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"users": out})
}

func (h *Handler) AddEntry(c *gin.Context) {
	var req AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid fields", errs)
		return
	}

	err := h.service.AddEntry(c.Request.Context(), middleware.AuthContext(c), req)
	if err != nil {
		if docstore.IsPermissionDenied(err) {
			response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You cannot manage the allowlist")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add allowlist entry")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"email": req.Email, "role": req.Role})
}

func (h *Handler) RemoveUser(c *gin.Context) {
	err := h.service.RemoveUser(c.Request.Context(), middleware.AuthContext(c), c.Param("id"))
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
	case err == ErrUserNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	case docstore.IsPermissionDenied(err):
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You cannot delete users")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete user")
	}
}
