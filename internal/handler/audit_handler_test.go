package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cartly/internal/models"

	"github.com/gin-gonic/gin"
)

type fakeAuditSource struct {
	logs         []models.AuditLog
	lastResource string
}

func (f *fakeAuditSource) ListByResource(resource, resourceID string, limit int) ([]models.AuditLog, error) {
	f.lastResource = resource
	var out []models.AuditLog
	for _, l := range f.logs {
		if l.Resource == resource && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestAuditHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)
	src := &fakeAuditSource{logs: []models.AuditLog{
		{ID: 1, Action: "payment_confirm", Resource: "payment", ResourceID: "ref-1"},
		{ID: 2, Action: "payment_refund", Resource: "payment", ResourceID: "ref-2"},
	}}
	r := gin.New()
	r.GET("/admin/audit-logs", NewAuditHandler(src).List)

	t.Run("trail for one resource", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs?id=ref-1", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var body struct {
			Success bool              `json:"success"`
			Data    []models.AuditLog `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.Success || len(body.Data) != 1 || body.Data[0].Action != "payment_confirm" {
			t.Fatalf("body = %+v, want the ref-1 entry", body)
		}
		if src.lastResource != "payment" {
			t.Fatalf("resource defaulted to %q, want payment", src.lastResource)
		}
	})

	t.Run("id required", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/audit-logs", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}
