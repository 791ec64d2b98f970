package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/havenlane/estate-iam/internal/core/domain"
)

func guardedRouter(identity *domain.Identity, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/guarded", func(c *gin.Context) {
		if identity != nil {
			SetIdentity(c, identity)
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func getGuarded(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireIdentityRejectsAnonymous(t *testing.T) {
	r := guardedRouter(nil, RequireIdentity())

	if w := getGuarded(r); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireIdentityAdmitsAuthenticated(t *testing.T) {
	r := guardedRouter(&domain.Identity{ID: "id-1", Role: domain.RoleUser}, RequireIdentity())

	if w := getGuarded(r); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireRoleAnonymousGets401(t *testing.T) {
	r := guardedRouter(nil, RequireRole(domain.RoleAdmin))

	if w := getGuarded(r); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireRoleMismatchGets403(t *testing.T) {
	r := guardedRouter(&domain.Identity{ID: "id-1", Role: domain.RoleUser}, RequireRole(domain.RoleAdmin))

	if w := getGuarded(r); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireRoleSuspendedGetsSpecificMessage(t *testing.T) {
	identity := &domain.Identity{ID: "id-1", Role: domain.RoleUser, Suspended: true}
	r := guardedRouter(identity, RequireRole(domain.RoleUser))

	w := getGuarded(r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "account suspended") {
		t.Fatalf("expected suspension message, got %s", body)
	}
}

func TestRequireRoleLockedSetsRetryAfter(t *testing.T) {
	until := time.Now().UTC().Add(10 * time.Minute)
	identity := &domain.Identity{ID: "id-1", Role: domain.RoleUser, LockedUntil: &until}
	r := guardedRouter(identity, RequireRole(domain.RoleUser))

	w := getGuarded(r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header for locked account")
	}
}

func TestRequirePermissionAdmitsHolder(t *testing.T) {
	identity := &domain.Identity{
		ID:   "admin-1",
		Role: domain.RoleAdmin,
		Admin: &domain.AdminProfile{
			IsActivated: true,
			Access:      domain.AdminAccessFull,
		},
	}
	r := guardedRouter(identity, RequirePermission(domain.PermUsersSuspend))

	if w := getGuarded(r); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequirePermissionAdminGatesStayGeneric(t *testing.T) {
	identity := &domain.Identity{
		ID:   "admin-1",
		Role: domain.RoleAdmin,
		Admin: &domain.AdminProfile{
			IsActivated: false,
			Access:      domain.AdminAccessFull,
		},
	}
	r := guardedRouter(identity, RequirePermission(domain.PermUsersSuspend))

	w := getGuarded(r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "insufficient permissions") {
		t.Fatalf("expected generic denial, got %s", body)
	}
}

func TestRequirePermissionNonAdminDenied(t *testing.T) {
	identity := &domain.Identity{ID: "agent-1", Role: domain.RoleAgent}
	r := guardedRouter(identity, RequirePermission(domain.PermUsersView))

	if w := getGuarded(r); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
