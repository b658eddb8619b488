package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/internal/auth"
	"tutorhub/internal/principal"
)

type loginRequest struct {
	Username string `json:"username" binding:"required,max=12"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,role"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	role, _ := principal.ParseRole(req.Role)
	sess, err := s.Login.Login(c.Request.Context(), req.Username, req.Password, role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     sess.Token.Value,
		"expiresAt": sess.Token.ExpiresAt.Unix(),
		"role":      role,
		"profile":   sess.Profile,
	})
}

func (s *Server) me(c *gin.Context) {
	id, _ := auth.IdentityFrom(c)
	ctx := c.Request.Context()

	var (
		profile principal.Principal
		err     error
	)
	switch id.Role {
	case principal.RoleStudent:
		profile, err = s.Principals.Student(ctx, id.ID)
	default:
		profile, err = s.Principals.Teacher(ctx, id.ID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": id.Role, "profile": profile})
}
