package handler

import (
	"cartly/internal/models"

	"github.com/gin-gonic/gin"
)

// auditSource is the slice of the audit repository the trail endpoint reads.
type auditSource interface {
	ListByResource(resource, resourceID string, limit int) ([]models.AuditLog, error)
}

type AuditHandler struct {
	audits auditSource
}

func NewAuditHandler(audits auditSource) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List returns the audit trail for one resource, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		respondBadRequest(c, "id is required")
		return
	}
	resource := c.DefaultQuery("resource", "payment")
	logs, err := h.audits.ListByResource(resource, id, pageLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, logs)
}
