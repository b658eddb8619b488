// Package api exposes the ledgers over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tutorhub/internal/access"
	"tutorhub/internal/attendance"
	"tutorhub/internal/auth"
	"tutorhub/internal/core"
	"tutorhub/internal/metrics"
	"tutorhub/internal/principal"
	"tutorhub/internal/queue"
	"tutorhub/internal/scores"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Server holds the handlers' dependencies.
type Server struct {
	Principals principal.Store
	Login      *auth.Service
	Verifier   auth.Verifier
	Attendance *attendance.Ledger
	Scores     *scores.Ledger
	Health     map[string]HealthCheck
	// Events receives committed ledger writes. Nil disables publishing.
	Events queue.Publisher
}

// Router builds the gin engine. Extra middleware runs before the routes, after recovery and logging.
func (s *Server) Router(mw ...gin.HandlerFunc) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(metrics.GinMiddleware())
	r.Use(mw...)

	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.POST("/auth/login", s.login)

	authed := v1.Group("", auth.Middleware(s.Verifier))
	authed.GET("/me", s.me)

	att := authed.Group("/attendance")
	att.POST("/mark", s.markAttendance)
	att.GET("/by-date", s.attendanceByDate)
	att.GET("/roster", s.attendanceRoster)
	att.GET("/history", s.attendanceHistory)
	att.GET("/me/history", s.ownAttendanceHistory)
	att.GET("/summary/:studentId", s.attendanceSummary)

	sc := authed.Group("/scores")
	sc.POST("", s.addScore)
	sc.POST("/batch", s.addScoreBatch)
	sc.GET("", s.listScores)
	sc.GET("/summary/:studentId", s.scoreSummary)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// subject builds the gate subject for the caller. Teacher scope is read from the live record;
// the role itself is trusted from the token.
func (s *Server) subject(c *gin.Context) (access.Subject, principal.Identity, bool) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
		return access.Subject{}, id, false
	}
	if id.Role != principal.RoleTeacher {
		return access.StudentSubject(id), id, true
	}
	t, err := s.Principals.Teacher(c.Request.Context(), id.ID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		// A removed teacher keeps a valid token until it expires but has no scope left.
		return access.Subject{ID: id.ID, Role: principal.RoleTeacher}, id, true
	case err != nil:
		writeError(c, err)
		return access.Subject{}, id, false
	}
	return access.TeacherSubject(t), id, true
}

// permit checks the role rule before the body is read and writes a 403 when it fails.
func permit(c *gin.Context, sub access.Subject, action access.Action) bool {
	d := access.Permits(sub.Role, action)
	if d.Allowed {
		return true
	}
	metrics.AccessDenied.WithLabelValues(string(action), string(d.Reason)).Inc()
	writeError(c, d.Err(action))
	return false
}

// authorize writes a 403 and returns false when the gate denies.
func authorize(c *gin.Context, sub access.Subject, action access.Action, res access.Resource) bool {
	d := access.Authorize(sub, action, res)
	if d.Allowed {
		return true
	}
	metrics.AccessDenied.WithLabelValues(string(action), string(d.Reason)).Inc()
	writeError(c, d.Err(action))
	return false
}

// publish emits evt after a committed write. Failures are logged; the write already happened.
func (s *Server) publish(c *gin.Context, evt queue.Event) {
	if s.Events == nil {
		return
	}
	evt.At = time.Now().UTC()
	if err := s.Events.Publish(context.WithoutCancel(c.Request.Context()), evt); err != nil {
		log.Printf("publish %s: %v", evt.Kind, err)
	}
}

// batchesQuery reads batchId as a repeated or comma separated query parameter.
// When absent, fallback is used.
func batchesQuery(c *gin.Context, fallback []principal.BatchID) ([]principal.BatchID, error) {
	var out []principal.BatchID
	for _, raw := range c.QueryArray("batchId") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			b, ok := principal.ParseBatch(part)
			if !ok {
				return nil, core.Invalid("batchId", batchMessage)
			}
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return fallback, nil
	}
	return out, nil
}
