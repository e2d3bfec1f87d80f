package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dstepanenko/dreamhouse/internal/server/generator"
	"github.com/dstepanenko/dreamhouse/internal/server/projects"
)

type designRequest struct {
	Description string `json:"description"`
	Mood        string `json:"mood"`
	Bedrooms    int    `json:"bedrooms"`
}

type saveProjectRequest struct {
	Name      string          `json:"name" binding:"required"`
	Layout    json.RawMessage `json:"layout" binding:"required"`
	Thumbnail string          `json:"thumbnail"`
}

// projectResponse decorates a project with the thumbnail warning from a
// save operation, so clients can tell a skipped thumbnail apart from a
// never-supplied one.
type projectResponse struct {
	*projects.Project
	ThumbnailError string `json:"thumbnail_error,omitempty"`
}

func saved(res *projects.SaveResult) projectResponse {
	out := projectResponse{Project: res.Project}
	if res.ThumbnailErr != nil {
		out.ThumbnailError = res.ThumbnailErr.Error()
	}
	return out
}

func (s *Server) design(c *gin.Context) {
	var req designRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid design request"})
		return
	}
	if req.Mood == "" {
		req.Mood = "cozy"
	}
	if req.Bedrooms == 0 {
		req.Bedrooms = 2
	}
	c.JSON(http.StatusOK, generator.Generate(req.Description, req.Mood, req.Bedrooms))
}

func (s *Server) saveProject(c *gin.Context) {
	var req saveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "name and layout are required"})
		return
	}

	res, err := s.projects.Create(c.Request.Context(), req.Name, req.Layout, principal(c), req.Thumbnail)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved(res))
}

func (s *Server) listProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	req := projects.ListRequest{
		Page:  page,
		Limit: limit,
		Query: c.Query("q"),
	}
	if c.Query("mine") == "1" || c.Query("mine") == "true" {
		req.Owner = principal(c)
		req.OwnerOnly = true
	}

	res, err := s.projects.List(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getProject(c *gin.Context) {
	p, err := s.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getThumbnail(c *gin.Context) {
	data, err := s.projects.Thumbnail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) updateProject(c *gin.Context) {
	var req saveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "name and layout are required"})
		return
	}

	res, err := s.projects.Update(c.Request.Context(), c.Param("id"), req.Name, req.Layout, principal(c), req.Thumbnail)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved(res))
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Request.Context(), c.Param("id"), principal(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) duplicateProject(c *gin.Context) {
	res, err := s.projects.Duplicate(c.Request.Context(), c.Param("id"), principal(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved(res))
}
