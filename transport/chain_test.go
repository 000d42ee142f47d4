package transport

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraham03/gestion-go/broadcast"
	"github.com/Abraham03/gestion-go/cache"
)

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Stage {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}
	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		order = append(order, "base")
		return textResponse(http.StatusOK, ""), nil
	})

	rt := Chain(base, tag("outer"), tag("inner"))
	req, _ := http.NewRequest("GET", "http://backend/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	resp.Body.Close()

	want := []string{"outer", "inner", "base"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

// TestPipeline exercises the full stack the client assembles: caching over
// envelope unwrapping over the authorizer, against a backend that rejects
// the first token and answers wrapped payloads.
func TestPipeline(t *testing.T) {
	var apiCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/clientes" {
			http.NotFound(w, r)
			return
		}
		apiCalls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":200,"message":"OK","data":[{"id":1,"nombre":"Ana"}]}`)
	}))
	defer srv.Close()

	sess := &mockSession{token: "stale", nextToken: "fresh"}
	c := cache.New()
	bus := broadcast.New()

	rt := Chain(http.DefaultTransport,
		NewCaching(c, bus),
		NewEnvelopeUnwrapper(),
		NewAuthorizer(sess),
	)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(srv.URL + "/api/clientes")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	want := `[{"id":1,"nombre":"Ana"}]`
	if string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	if sess.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", sess.refreshes)
	}
	if apiCalls != 2 {
		t.Errorf("backend calls = %d, want 2 (original plus retry)", apiCalls)
	}

	// Once unwrapped, the payload is what the cache replays.
	resp, err = client.Get(srv.URL + "/api/clientes")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != want {
		t.Errorf("cached body = %q, want %q", body, want)
	}
	if apiCalls != 2 {
		t.Errorf("backend calls = %d, want 2 (second read served from cache)", apiCalls)
	}
}
