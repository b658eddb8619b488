package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"tutorhub/internal/access"
	"tutorhub/internal/auth"
	"tutorhub/internal/core"
	"tutorhub/internal/store"
)

// writeError maps the error taxonomy onto a status and a JSON body.
func writeError(c *gin.Context, err error) {
	var (
		denied  *access.DeniedError
		verr    *core.ValidationError
		bindErr validator.ValidationErrors
		synErr  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &denied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access_denied", "reason": denied.Reason})
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			fields[f.Field] = f.Error
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": fields})
	case errors.As(err, &bindErr):
		fields := make(map[string]string, len(bindErr))
		for _, fe := range bindErr {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": fields})
	case errors.As(err, &typeErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"fields": map[string]string{typeErr.Field: "must be a " + typeErr.Type.String()},
		})
	case errors.As(err, &synErr), errors.Is(err, errBadBody):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, core.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, store.ErrUnavailable):
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store_unavailable"})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": "request_cancelled"})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

var errBadBody = errors.New("invalid request body")

// bindJSON decodes the body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var (
			bindErr validator.ValidationErrors
			typeErr *json.UnmarshalTypeError
		)
		if !errors.As(err, &bindErr) && !errors.As(err, &typeErr) {
			err = errBadBody
		}
		writeError(c, err)
		return false
	}
	return true
}
