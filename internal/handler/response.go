package handler

import (
	"errors"
	"log"
	"net/http"

	"cartly/internal/domain"

	"github.com/gin-gonic/gin"
)

// All endpoints answer with a structured result: expected business failures
// carry success=false plus a machine code; only infrastructure faults become
// 5xx responses.

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, err error) {
	var be *domain.BusinessError
	if errors.As(err, &be) {
		status := http.StatusOK
		switch be.Code {
		case domain.CodeValidation:
			status = http.StatusBadRequest
		case domain.CodeInvalidTransition, domain.CodeRefundExceeds:
			// Caller must re-fetch current state.
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"success": false, "code": be.Code, "message": be.Message})
		return
	}
	log.Printf("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "code": "INTERNAL", "message": "internal error"})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "code": domain.CodeValidation, "message": msg})
}
