package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cartly/config"
	"cartly/internal/auth"
	"cartly/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret string, claims *auth.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "test-secret"}

	var gotID uint
	var gotClaims *auth.Claims
	r := gin.New()
	r.GET("/whoami", AuthRequired(cfg), func(c *gin.Context) {
		gotID = GetUserID(c)
		gotClaims = GetClaims(c)
		c.Status(http.StatusOK)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		token := signTestToken(t, "test-secret", &auth.Claims{
			UserID:    7,
			Role:      domain.RoleAdmin,
			UserGroup: "vip",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if gotID != 7 {
			t.Fatalf("GetUserID = %d, want 7", gotID)
		}
		if gotClaims == nil || gotClaims.Role != domain.RoleAdmin || gotClaims.UserGroup != "vip" {
			t.Fatalf("GetClaims = %+v, want the parsed claims", gotClaims)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token := signTestToken(t, "other-secret", &auth.Claims{UserID: 7})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "test-secret"}
	r := gin.New()
	r.GET("/admin-only", AuthRequired(cfg), RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signTestToken(t, "test-secret", &auth.Claims{UserID: 3, Role: domain.RoleCustomer})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
