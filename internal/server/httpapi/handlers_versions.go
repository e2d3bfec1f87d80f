package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listVersions(c *gin.Context) {
	list, err := s.versions.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": list})
}

func (s *Server) getVersion(c *gin.Context) {
	v, err := s.versions.Get(c.Request.Context(), c.Param("id"), c.Param("vid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) getVersionThumbnail(c *gin.Context) {
	data, err := s.versions.Thumbnail(c.Request.Context(), c.Param("id"), c.Param("vid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) revertVersion(c *gin.Context) {
	ctx := c.Request.Context()
	id, vid := c.Param("id"), c.Param("vid")

	if err := s.versions.Revert(ctx, id, vid, principal(c)); err != nil {
		s.fail(c, err)
		return
	}

	p, err := s.projects.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteVersion(c *gin.Context) {
	if err := s.versions.Delete(c.Request.Context(), c.Param("id"), c.Param("vid"), principal(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
