package transport

import (
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/Abraham03/gestion-go/broadcast"
	"github.com/Abraham03/gestion-go/cache"
)

// countingBase records hits and returns a fresh body each time so cached
// replays are distinguishable from real round trips.
type countingBase struct {
	mu     sync.Mutex
	calls  int
	status int
	body   string
}

func (b *countingBase) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	return textResponse(status, b.body), nil
}

func newCaching(c *cache.Cache, bus Publisher, base http.RoundTripper) http.RoundTripper {
	return NewCaching(c, bus)(base)
}

func do(t *testing.T, rt http.RoundTripper, method, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestCaching_GetServedFromCache(t *testing.T) {
	base := &countingBase{body: `[{"id":1}]`}
	c := cache.New()
	rt := newCaching(c, nil, base)

	_, first := do(t, rt, "GET", "http://backend/api/clientes?page=0")
	_, second := do(t, rt, "GET", "http://backend/api/clientes?page=0")

	if base.calls != 1 {
		t.Errorf("backend calls = %d, want 1", base.calls)
	}
	if first != second {
		t.Errorf("cached body = %q, want %q", second, first)
	}
}

func TestCaching_DistinctQueriesDistinctEntries(t *testing.T) {
	base := &countingBase{body: `[]`}
	c := cache.New()
	rt := newCaching(c, nil, base)

	do(t, rt, "GET", "http://backend/api/clientes?page=0")
	do(t, rt, "GET", "http://backend/api/clientes?page=1")

	if base.calls != 2 {
		t.Errorf("backend calls = %d, want 2 (query string is part of the key)", base.calls)
	}
}

func TestCaching_ErrorResponsesNotCached(t *testing.T) {
	base := &countingBase{status: http.StatusInternalServerError, body: "boom"}
	c := cache.New()
	rt := newCaching(c, nil, base)

	do(t, rt, "GET", "http://backend/api/clientes")
	do(t, rt, "GET", "http://backend/api/clientes")

	if base.calls != 2 {
		t.Errorf("backend calls = %d, want 2 (errors must not be cached)", base.calls)
	}
}

func TestCaching_AuthPathsBypass(t *testing.T) {
	base := &countingBase{body: "{}"}
	c := cache.New()
	rt := newCaching(c, nil, base)

	do(t, rt, "GET", "http://backend/auth/login")
	do(t, rt, "GET", "http://backend/auth/login")

	if base.calls != 2 {
		t.Errorf("backend calls = %d, want 2 (auth paths bypass the cache)", base.calls)
	}
	if c.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", c.Len())
	}
}

func TestCaching_MutationInvalidatesFamilyAndDashboard(t *testing.T) {
	base := &countingBase{body: "{}"}
	c := cache.New()
	bus := broadcast.New()
	ch, cancel := bus.Subscribe()
	defer cancel()
	rt := newCaching(c, bus, base)

	do(t, rt, "GET", "http://backend/api/clientes?page=0")
	do(t, rt, "GET", "http://backend/api/clientes?page=1")
	do(t, rt, "GET", "http://backend/api/dashboard/resumen")
	do(t, rt, "GET", "http://backend/api/ventas")
	if got := c.Len(); got != 4 {
		t.Fatalf("cache entries = %d, want 4", got)
	}

	do(t, rt, "POST", "http://backend/api/clientes")

	if got := c.Len(); got != 1 {
		t.Errorf("cache entries after mutation = %d, want 1 (only /api/ventas survives)", got)
	}
	if c.Get("/api/ventas") == nil {
		t.Error("unrelated family was invalidated")
	}
	select {
	case <-ch:
	default:
		t.Error("mutation did not publish on the bus")
	}
}

func TestCaching_MutationInvalidatesBeforeDispatch(t *testing.T) {
	c := cache.New()
	bus := broadcast.New()
	ch, cancel := bus.Subscribe()
	defer cancel()

	do(t, newCaching(c, bus, &countingBase{body: "{}"}), "GET", "http://backend/api/clientes")
	if c.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", c.Len())
	}

	// The family goes stale the moment the mutation is dispatched, even when
	// the backend then rejects it.
	checking := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if c.Get("/api/clientes") != nil {
			t.Error("family still cached when the mutation reached the backend")
		}
		select {
		case <-ch:
		default:
			t.Error("bus not notified before the mutation reached the backend")
		}
		return textResponse(http.StatusBadRequest, "no"), nil
	})
	do(t, newCaching(c, bus, checking), "POST", "http://backend/api/clientes")

	if got := c.Len(); got != 0 {
		t.Errorf("cache entries = %d, want 0", got)
	}
}

func TestCaching_MutationOutsideAPIOnlyDropsDashboard(t *testing.T) {
	base := &countingBase{body: "{}"}
	c := cache.New()
	rt := newCaching(c, nil, base)

	do(t, rt, "GET", "http://backend/api/dashboard/resumen")
	do(t, rt, "GET", "http://backend/api/clientes")

	do(t, rt, "POST", "http://backend/health/reset")

	if c.Get("/api/clientes") == nil {
		t.Error("client family dropped by unrelated mutation")
	}
	if c.Get("/api/dashboard/resumen") != nil {
		t.Error("dashboard survived a mutation")
	}
}

func TestFamilyPrefix(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/clientes", "/api/clientes"},
		{"/api/clientes/42", "/api/clientes"},
		{"/api/ventas/42/detalle", "/api/ventas"},
		{"/auth/login", ""},
		{"/api/", ""},
		{"/health", ""},
	}
	for _, tt := range tests {
		if got := familyPrefix(tt.path); got != tt.want {
			t.Errorf("familyPrefix(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
