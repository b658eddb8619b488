package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tutorhub/internal/access"
	"tutorhub/internal/core"
	"tutorhub/internal/principal"
	"tutorhub/internal/queue"
	"tutorhub/internal/scores"
)

type addScoreRequest struct {
	StudentID string     `json:"studentId" binding:"required"`
	TestName  string     `json:"testName" binding:"required"`
	Subject   string     `json:"subject" binding:"required"`
	BatchID   string     `json:"batchId" binding:"omitempty,batch"`
	Score     scoreValue `json:"score"`
	MaxScore  float64    `json:"maxScore" binding:"required"`
	Date      string     `json:"date" binding:"required"`
	Remarks   string     `json:"remarks"`
}

func (s *Server) addScore(c *gin.Context) {
	sub, id, ok := s.subject(c)
	if !ok || !permit(c, sub, access.AddTestScore) {
		return
	}
	var req addScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Score.v == nil {
		writeError(c, core.Invalid("score", "must be a number"))
		return
	}

	batch := principal.BatchID(req.BatchID)
	if batch == "" && sub.Role == principal.RoleTeacher {
		st, err := s.Principals.Student(c.Request.Context(), req.StudentID)
		if err != nil {
			writeError(c, err)
			return
		}
		batch = st.Batch
	}
	res := access.Resource{Subject: strings.TrimSpace(req.Subject)}
	if batch != "" {
		res.BatchIDs = []principal.BatchID{batch}
	}
	if !authorize(c, sub, access.AddTestScore, res) {
		return
	}

	scoreID, err := s.Scores.AddScore(c.Request.Context(), id.ID, scores.NewRecord{
		StudentID: req.StudentID,
		TestName:  req.TestName,
		Subject:   req.Subject,
		BatchID:   batch,
		Score:     *req.Score.v,
		MaxScore:  req.MaxScore,
		Date:      req.Date,
		Remarks:   req.Remarks,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.publish(c, queue.Event{
		Kind:    queue.ScoresRecorded,
		BatchID: string(batch),
		ActorID: id.ID,
		Subject: res.Subject,
		Date:    req.Date,
		Written: 1,
	})
	c.JSON(http.StatusCreated, gin.H{"id": scoreID})
}

type batchScoreRequest struct {
	TestName string  `json:"testName" binding:"required"`
	Subject  string  `json:"subject" binding:"required"`
	BatchID  string  `json:"batchId" binding:"required,batch"`
	MaxScore float64 `json:"maxScore" binding:"required"`
	Date     string  `json:"date" binding:"required"`
	Scores   []struct {
		StudentID string     `json:"studentId"`
		Score     scoreValue `json:"score"`
		Remarks   string     `json:"remarks"`
	} `json:"scores"`
}

func (s *Server) addScoreBatch(c *gin.Context) {
	sub, id, ok := s.subject(c)
	if !ok || !permit(c, sub, access.AddTestScore) {
		return
	}
	var req batchScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	batch := principal.BatchID(req.BatchID)
	res := access.Resource{BatchIDs: []principal.BatchID{batch}, Subject: strings.TrimSpace(req.Subject)}
	if !authorize(c, sub, access.AddTestScore, res) {
		return
	}

	entries := make([]scores.BatchEntry, 0, len(req.Scores))
	for _, e := range req.Scores {
		entries = append(entries, scores.BatchEntry{StudentID: e.StudentID, Score: e.Score.v, Remarks: e.Remarks})
	}
	out, err := s.Scores.AddBatch(c.Request.Context(), id.ID, scores.TestMeta{
		TestName: req.TestName,
		Subject:  req.Subject,
		BatchID:  batch,
		MaxScore: req.MaxScore,
		Date:     req.Date,
	}, entries)
	if err != nil {
		writeError(c, err)
		return
	}
	if out.Written > 0 {
		s.publish(c, queue.Event{
			Kind:    queue.ScoresRecorded,
			BatchID: string(batch),
			ActorID: id.ID,
			Subject: res.Subject,
			Date:    req.Date,
			Written: out.Written,
			Skipped: len(out.Skipped),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listScores(c *gin.Context) {
	sub, id, ok := s.subject(c)
	if !ok {
		return
	}
	f := scores.Filter{
		Subject:   c.Query("subject"),
		TestName:  c.Query("testName"),
		StudentID: c.Query("studentId"),
	}
	res := access.Resource{StudentID: f.StudentID}
	if sub.Role == principal.RoleTeacher {
		batches, err := batchesQuery(c, sub.Batches)
		if err != nil {
			writeError(c, err)
			return
		}
		f.BatchIDs, res.BatchIDs = batches, batches
	} else if f.StudentID == "" {
		f.StudentID, res.StudentID = id.ID, id.ID
	}
	if !authorize(c, sub, access.ViewTestScores, res) {
		return
	}
	recs, err := s.Scores.Find(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (s *Server) scoreSummary(c *gin.Context) {
	sub, _, ok := s.subject(c)
	if !ok {
		return
	}
	studentID := c.Param("studentId")
	res, ok := s.studentResource(c, sub, studentID)
	if !ok {
		return
	}
	if !authorize(c, sub, access.ViewTestScoreSummary, res) {
		return
	}
	sum, err := s.Scores.SummarizeStudent(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
