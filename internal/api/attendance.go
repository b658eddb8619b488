package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorhub/internal/access"
	"tutorhub/internal/attendance"
	"tutorhub/internal/core"
	"tutorhub/internal/principal"
	"tutorhub/internal/queue"
)

type markRequest struct {
	BatchID string             `json:"batchId" binding:"required,batch"`
	Date    string             `json:"date" binding:"required"`
	Entries []attendance.Entry `json:"entries"`
}

func (s *Server) markAttendance(c *gin.Context) {
	sub, id, ok := s.subject(c)
	if !ok || !permit(c, sub, access.MarkAttendance) {
		return
	}
	var req markRequest
	if !bindJSON(c, &req) {
		return
	}
	batch := principal.BatchID(req.BatchID)
	if !authorize(c, sub, access.MarkAttendance, access.Resource{BatchIDs: []principal.BatchID{batch}}) {
		return
	}
	res, err := s.Attendance.MarkBatch(c.Request.Context(), id.ID, batch, req.Date, req.Entries)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.Rejected == nil {
		res.Rejected = []attendance.Rejection{}
	}
	if res.Written > 0 {
		s.publish(c, queue.Event{
			Kind:    queue.AttendanceMarked,
			BatchID: string(batch),
			ActorID: id.ID,
			Date:    req.Date,
			Written: res.Written,
			Skipped: len(res.Rejected),
		})
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) attendanceByDate(c *gin.Context) {
	sub, _, ok := s.subject(c)
	if !ok {
		return
	}
	batches, err := batchesQuery(c, sub.Batches)
	if err != nil {
		writeError(c, err)
		return
	}
	if !authorize(c, sub, access.ViewAttendanceByDate, access.Resource{BatchIDs: batches}) {
		return
	}
	recs, err := s.Attendance.ByDate(c.Request.Context(), batches, c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) attendanceRoster(c *gin.Context) {
	sub, _, ok := s.subject(c)
	if !ok {
		return
	}
	batch, valid := principal.ParseBatch(c.Query("batchId"))
	if !valid {
		writeError(c, core.Invalid("batchId", batchMessage))
		return
	}
	if !authorize(c, sub, access.ViewAttendanceByDate, access.Resource{BatchIDs: []principal.BatchID{batch}}) {
		return
	}
	entries, err := s.Attendance.Roster(c.Request.Context(), batch, c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) attendanceHistory(c *gin.Context) {
	sub, _, ok := s.subject(c)
	if !ok {
		return
	}
	batches, err := batchesQuery(c, sub.Batches)
	if err != nil {
		writeError(c, err)
		return
	}
	if !authorize(c, sub, access.ViewAttendanceHistory, access.Resource{BatchIDs: batches}) {
		return
	}
	recs, err := s.Attendance.History(c.Request.Context(), batches, c.Query("month"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) ownAttendanceHistory(c *gin.Context) {
	sub, id, ok := s.subject(c)
	if !ok {
		return
	}
	if !authorize(c, sub, access.ViewOwnAttendance, access.Resource{StudentID: id.ID}) {
		return
	}
	recs, err := s.Attendance.StudentHistory(c.Request.Context(), id.ID, c.Query("month"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) attendanceSummary(c *gin.Context) {
	sub, _, ok := s.subject(c)
	if !ok {
		return
	}
	studentID := c.Param("studentId")
	res, ok := s.studentResource(c, sub, studentID)
	if !ok {
		return
	}
	if !authorize(c, sub, access.ViewAttendanceSummary, res) {
		return
	}
	sum, err := s.Attendance.Summarize(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"studentId":  studentID,
		"present":    sum.Present,
		"absent":     sum.Absent,
		"late":       sum.Late,
		"total":      sum.Total,
		"percentage": fmt.Sprintf("%.1f", sum.Percentage),
	})
}

// studentResource describes a read of one student's data. Teachers are scoped by the student's
// batch, so the student is looked up for them; students only ever name themselves.
func (s *Server) studentResource(c *gin.Context, sub access.Subject, studentID string) (access.Resource, bool) {
	res := access.Resource{StudentID: studentID}
	if sub.Role != principal.RoleTeacher {
		return res, true
	}
	st, err := s.Principals.Student(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return res, false
	}
	res.BatchIDs = []principal.BatchID{st.Batch}
	return res, true
}
