package project

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/docstore"
	"santiye/internal/pkg/response"
	"santiye/internal/selection"
)

// Handler exposes the per-user selection store over HTTP: project CRUD
// plus reading and setting the active project.
type Handler struct {
	manager *selection.Manager
}

func NewHandler(manager *selection.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	{
		projects.GET("", h.ListProjects)
		projects.POST("", h.CreateProject)
		projects.PATCH("/:id", h.RenameProject)
		projects.DELETE("/:id", h.DeleteProject)
		projects.GET("/selected", h.GetSelected)
		projects.PUT("/selected", h.SetSelected)
	}
}

func (h *Handler) store(c *gin.Context) *selection.Store {
	return h.manager.ForUser(c.GetString("user_id"))
}

func (h *Handler) ListProjects(c *gin.Context) {
	s := h.store(c)
	response.Success(c, http.StatusOK, gin.H{
		"projects": s.Projects(),
		"loading":  s.Loading(),
	})
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Project name is required")
		return
	}

	p, err := h.store(c).AddProject(c.Request.Context(), req.Name)
	if err != nil {
		writeSelectionError(c, err, "Failed to create project")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"project": p})
}

func (h *Handler) RenameProject(c *gin.Context) {
	var req RenameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Project name is required")
		return
	}

	err := h.store(c).UpdateProjectName(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeSelectionError(c, err, "Failed to rename project")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "name": req.Name})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	err := h.store(c).DeleteProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeSelectionError(c, err, "Failed to delete project")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *Handler) GetSelected(c *gin.Context) {
	s := h.store(c)
	if p, ok := s.Selected(); ok {
		response.Success(c, http.StatusOK, gin.H{"project": p, "loading": s.Loading()})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"project": nil, "loading": s.Loading()})
}

func (h *Handler) SetSelected(c *gin.Context) {
	var req SelectProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "projectId is required")
		return
	}

	if err := h.store(c).Select(req.ProjectID); err != nil {
		writeSelectionError(c, err, "Failed to select project")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"selectedProjectId": req.ProjectID})
}

func writeSelectionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, selection.ErrNotAuthenticated):
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "You must be signed in")
	case errors.Is(err, selection.ErrStoreUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Data store is not available")
	case errors.Is(err, selection.ErrEmptyName):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Project name is required")
	case errors.Is(err, selection.ErrProjectNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Project not found")
	case docstore.IsPermissionDenied(err):
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You do not have access to this project")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
