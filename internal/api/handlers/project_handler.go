package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/ujenzipro/internal/services"
)

// ProjectHandler handles construction project HTTP requests
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// ProjectRequest represents a project create or update payload
type ProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// HandleCreateProject creates a project for the calling builder
func (h *ProjectHandler) HandleCreateProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	// The access code is only returned at creation time so the owner
	// can share it. Reads never include it.
	c.JSON(http.StatusCreated, gin.H{
		"project":     project,
		"access_code": project.AccessCode,
	})
}

// HandleGetProject returns a project; non-owners pass the access code
func (h *ProjectHandler) HandleGetProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(c.Request.Context(), actor, id, c.Query("access_code"))
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// HandleListProjects lists the caller's projects
func (h *ProjectHandler) HandleListProjects(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(c.Request.Context(), actor)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// VerifyCodeRequest carries an access code to check
type VerifyCodeRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

// HandleVerifyCode checks a project access code without returning the
// project itself
func (h *ProjectHandler) HandleVerifyCode(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	valid, err := h.projectService.VerifyAccessCode(c.Request.Context(), id, req.AccessCode)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// HandleUpdateProject updates a project's details
func (h *ProjectHandler) HandleUpdateProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteValidationError(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), actor, id, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// HandleDeleteProject removes a project
func (h *ProjectHandler) HandleDeleteProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), actor, id); err != nil {
		WriteError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes
func (h *ProjectHandler) RegisterRoutes(group *gin.RouterGroup) {
	projects := group.Group("/projects")
	{
		projects.POST("", h.HandleCreateProject)
		projects.GET("", h.HandleListProjects)
		projects.GET("/:id", h.HandleGetProject)
		projects.PUT("/:id", h.HandleUpdateProject)
		projects.DELETE("/:id", h.HandleDeleteProject)
	}
}

// RegisterPublicRoutes registers routes served without a session
func (h *ProjectHandler) RegisterPublicRoutes(group *gin.RouterGroup) {
	group.POST("/projects/:id/verify-code", h.HandleVerifyCode)
}
