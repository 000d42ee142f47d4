package ginmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/guard"
	"github.com/Abraham03/gestion-go/token"
)

type stubSession struct {
	identity *gestion.Identity
}

func (s *stubSession) IsAuthenticated() bool           { return s.identity != nil }
func (s *stubSession) Identity() *gestion.Identity     { return s.identity }
func (s *stubSession) IsSuperAdmin() bool              { return false }
func (s *stubSession) ForceEnd(context.Context, string) {}

func (s *stubSession) Token() string {
	if s.identity == nil {
		return ""
	}
	return s.identity.Token
}

func (s *stubSession) HasRole(name string) bool {
	if s.identity == nil {
		return false
	}
	for _, r := range s.identity.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (s *stubSession) HasPermission(name string) bool {
	if s.identity == nil {
		return false
	}
	for _, a := range s.identity.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ventas", mw, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthentication_Allows(t *testing.T) {
	g := guard.New(&stubSession{identity: &gestion.Identity{Username: "maria", Token: "tok"}}, token.NewCodec())
	w := get(newRouter(RequireAuthentication(g)), "/ventas")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireAuthentication_RedirectsAnonymous(t *testing.T) {
	g := guard.New(&stubSession{}, token.NewCodec())
	w := get(newRouter(RequireAuthentication(g)), "/ventas")

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	want := gestion.RouteLogin + "?returnUrl=%2Fventas"
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestRequireAuthentication_JSONMode(t *testing.T) {
	g := guard.New(&stubSession{}, token.NewCodec())
	w := get(newRouter(RequireAuthentication(g, WithJSONResponses())), "/ventas")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAccess_Forbidden(t *testing.T) {
	sess := &stubSession{identity: &gestion.Identity{
		Username: "maria",
		Token:    "tok",
		Roles:    []gestion.Role{{Name: "ROLE_USER"}},
	}}
	g := guard.New(sess, token.NewCodec())
	w := get(newRouter(RequireAccess(g, guard.Requirement{Roles: []string{"MANAGER"}})), "/ventas")

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != gestion.RouteForbidden {
		t.Errorf("Location = %q, want %q", got, gestion.RouteForbidden)
	}
}

func TestRequireAccess_RoleWithoutPrefix(t *testing.T) {
	sess := &stubSession{identity: &gestion.Identity{
		Username: "maria",
		Token:    "tok",
		Roles:    []gestion.Role{{Name: "ROLE_MANAGER"}},
	}}
	g := guard.New(sess, token.NewCodec())
	w := get(newRouter(RequireAccess(g, guard.Requirement{Roles: []string{"MANAGER"}})), "/ventas")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireAccess_JSONForbidden(t *testing.T) {
	sess := &stubSession{identity: &gestion.Identity{Username: "maria", Token: "tok"}}
	g := guard.New(sess, token.NewCodec())
	w := get(newRouter(RequireAccess(g, guard.Requirement{Permissions: []string{"VENTA_DELETE"}}, WithJSONResponses())), "/ventas")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
