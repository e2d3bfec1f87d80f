package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dstepanenko/dreamhouse/internal/common"
)

// errStatusMap maps the store error taxonomy to HTTP status codes; the
// first errors.Is match wins.
var errStatusMap = []struct {
	err  error
	code int
}{
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrorConflict, http.StatusConflict},
	{common.ErrorInvalidInput, http.StatusUnprocessableEntity},
	{common.ErrorPartialDelete, http.StatusInternalServerError},
	{common.ErrorStorage, http.StatusInternalServerError},
}

func statusFromError(err error) int {
	for _, m := range errStatusMap {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return http.StatusInternalServerError
}

// fail writes the error as a JSON response with the mapped status code.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusFromError(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
