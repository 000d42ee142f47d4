package client_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gestion "github.com/Abraham03/gestion-go"
	"github.com/Abraham03/gestion-go/client"
	"github.com/Abraham03/gestion-go/fake"
	"github.com/Abraham03/gestion-go/guard"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := client.New(client.Config{})
	if err == nil {
		t.Fatal("New() expected error when BaseURL is empty and no gateway injected")
	}
}

func TestNew_InjectedGatewayNeedsNoBaseURL(t *testing.T) {
	c, err := client.New(client.Config{}, client.WithGateway(fake.NewGateway()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()
}

func TestLoginThroughAssembledStack(t *testing.T) {
	gw := fake.NewGateway(fake.WithAccount("secreta", gestion.Identity{
		ID:       1,
		Username: "maria",
		Roles:    []gestion.Role{{Name: "ROLE_MANAGER"}},
	}))
	nav := fake.NewNavigator()
	c, err := client.New(client.Config{},
		client.WithGateway(gw),
		client.WithNavigator(nav),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	if c.Session().IsAuthenticated() {
		t.Fatal("fresh client already authenticated")
	}

	err = c.Session().Login(context.Background(), gestion.Credentials{Username: "maria", Password: "secreta"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !c.Session().IsAuthenticated() {
		t.Fatal("session not authenticated after login")
	}
	if !c.Codec().IsValid(c.Session().Token()) {
		t.Error("session token invalid after login")
	}
	d := c.Guards().RequireAccess(context.Background(), "/ventas", guard.Requirement{Roles: []string{"MANAGER"}})
	if !d.Allowed() {
		t.Errorf("RequireAccess denied a ROLE_MANAGER session: %+v", d)
	}

	c.Session().Logout(context.Background())
	if c.Session().IsAuthenticated() {
		t.Error("session still authenticated after logout")
	}
	if last, ok := nav.Last(); !ok || last.Target != gestion.RouteLogin {
		t.Errorf("Logout navigation = %+v, %v, want %q", last, ok, gestion.RouteLogin)
	}
}

func TestPipelineCachesAndUnwraps(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":200,"message":"OK","data":[{"id":1}]}`)
	}))
	defer srv.Close()

	c, err := client.New(client.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	read := func() string {
		resp, err := c.HTTP().Get(srv.URL + "/api/clientes")
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	first := read()
	second := read()

	if first != `[{"id":1}]` {
		t.Errorf("body = %q, want unwrapped payload", first)
	}
	if second != first {
		t.Errorf("cached body = %q, want %q", second, first)
	}
	if calls != 1 {
		t.Errorf("backend calls = %d, want 1 (second read from cache)", calls)
	}
}
