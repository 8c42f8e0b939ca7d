package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/repository"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// handleEvaluate runs one evaluation. Identical snapshots are served
// from the result cache when one is configured; the audit write is
// best effort and never fails the request.
func (s *Server) handleEvaluate(c *gin.Context) {
	var patient domain.PatientState
	if err := c.ShouldBindJSON(&patient); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid request body: " + err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	snapshotHash := repository.HashPatient(&patient)

	if s.cache != nil {
		if cached := s.cache.Get(c.Request.Context(), snapshotHash); cached != nil {
			s.log.WithFields(logrus.Fields{
				"evaluation_id":  cached.EvaluationID,
				"correlation_id": c.GetString("correlation_id"),
			}).Debug("Serving cached evaluation result")
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
		c.Header("X-Cache", "MISS")
	}

	result := s.engine.Evaluate(&patient)

	if s.cache != nil {
		s.cache.Set(c.Request.Context(), snapshotHash, result)
	}

	if s.audit != nil {
		if err := s.audit.SaveEvaluation(c.Request.Context(), &patient, result); err != nil {
			s.log.WithError(err).WithField("evaluation_id", result.EvaluationID).
				Warn("Audit write failed; evaluation result unaffected")
		}
	}

	c.JSON(http.StatusOK, result)
}

// handleListUnknowns pages through the unknown-drug log.
func (s *Server) handleListUnknowns(c *gin.Context) {
	if s.unknowns == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown-drug log not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, err := s.unknowns.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list unknown drugs"})
		return
	}
	total, err := s.unknowns.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unknown drugs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"entries": entries,
	})
}

// handleExportUnknowns streams the full unknown-drug log as JSON, for
// offline promotion of names into the drug table.
func (s *Server) handleExportUnknowns(c *gin.Context) {
	if s.unknowns == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown-drug log not configured"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=unknown_drugs.json")
	if err := s.unknowns.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.log.WithError(err).Error("Unknown-drug export failed")
		c.Status(http.StatusInternalServerError)
	}
}
