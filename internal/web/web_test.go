package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ganttline/internal/config"
	"ganttline/internal/datemath"
	"ganttline/internal/layout"
	"ganttline/internal/model"
	"ganttline/internal/store"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Capture.OutputPath = filepath.Join(t.TempDir(), "preview.png")

	st := store.New()
	err := st.Replace(store.FileSource, []model.Item{
		{ID: "a", Name: "Design", Start: datemath.MustParse("2021-01-01"), End: datemath.MustParse("2021-01-03")},
		{ID: "b", Name: "Build", Start: datemath.MustParse("2021-01-02"), End: datemath.MustParse("2021-01-04")},
		{ID: "c", Name: "Ship", Start: datemath.MustParse("2021-01-05"), End: datemath.MustParse("2021-01-06")},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(cfg, st, layout.NewEngine(layout.DefaultOptions()), opts...), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLayoutEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/layout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decode[layout.Result](t, rec)
	if res.Lanes != 2 || len(res.Items) != 3 || res.TotalWidth != 360 {
		t.Fatalf("layout = lanes %d items %d width %d", res.Lanes, len(res.Items), res.TotalWidth)
	}
	p, ok := res.Find("b")
	if !ok || p.Lane != 1 || p.X != 60 || p.Y != 50 {
		t.Fatalf("item b = %+v", p)
	}
}

func TestRenameItem(t *testing.T) {
	s, st := newTestServer(t)
	h := s.Handler()

	before := decode[layout.Result](t, do(t, h, http.MethodGet, "/api/layout", ""))

	rec := do(t, h, http.MethodPatch, "/api/items/b", `{"name":"  Build v2 "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d body %s", rec.Code, rec.Body.String())
	}
	resp := decode[renameResponse](t, rec)
	if resp.Item.Name != "Build v2" {
		t.Fatalf("renamed item = %+v", resp.Item)
	}
	if it, _ := st.Get("b"); it.Name != "Build v2" {
		t.Fatalf("store not updated: %q", it.Name)
	}

	// The returned layout reflects the new name with unchanged geometry.
	for _, p := range before.Items {
		q, ok := resp.Layout.Find(p.ID)
		if !ok || q.Geometry != p.Geometry || q.Lane != p.Lane {
			t.Fatalf("%s moved: %+v -> %+v", p.ID, p.Geometry, q.Geometry)
		}
	}
	if q, _ := resp.Layout.Find("b"); q.Name != "Build v2" {
		t.Fatalf("layout name = %q", q.Name)
	}
}

func TestRenameErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		path, body string
		want       int
	}{
		{"/api/items/missing", `{"name":"x"}`, http.StatusNotFound},
		{"/api/items/a", `{"name":"   "}`, http.StatusBadRequest},
		{"/api/items/a", `{"name":`, http.StatusBadRequest},
		{"/api/items/a", `{"title":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodPatch, tt.path, tt.body)
		if rec.Code != tt.want {
			t.Errorf("PATCH %s %s = %d, want %d", tt.path, tt.body, rec.Code, tt.want)
			continue
		}
		if e := decode[map[string]string](t, rec); e["error"] == "" {
			t.Errorf("PATCH %s %s: no error message", tt.path, tt.body)
		}
	}
}

func TestAddItem(t *testing.T) {
	s, st := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/items", `{"name":"Launch","start":"2021-01-08","end":"2021-01-08"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d body %s", rec.Code, rec.Body.String())
	}
	added := decode[model.Item](t, rec)
	if added.ID == "" || added.Name != "Launch" {
		t.Fatalf("added = %+v", added)
	}
	if st.Len() != 4 {
		t.Fatalf("store len = %d", st.Len())
	}

	// The cached layout is dropped on change.
	res := decode[layout.Result](t, do(t, h, http.MethodGet, "/api/layout", ""))
	if _, ok := res.Find(added.ID); !ok || res.Extent.End.String() != "2021-01-08" {
		t.Fatalf("layout not recomputed: end %s", res.Extent.End)
	}

	tests := []struct {
		body string
		want int
	}{
		{`{"name":"Bad","start":"2021-13-01","end":"2021-01-08"}`, http.StatusBadRequest},
		{`{"name":"Backwards","start":"2021-01-08","end":"2021-01-01"}`, http.StatusBadRequest},
		{`{"id":"a","name":"Dup","start":"2021-01-01","end":"2021-01-01"}`, http.StatusConflict},
		{`{"name":"","start":"2021-01-01","end":"2021-01-01"}`, http.StatusBadRequest},
		{`{"name":"No start","end":"2021-01-02"}`, http.StatusBadRequest},
		{`{"name":"No end","start":"2021-01-02"}`, http.StatusBadRequest},
		{`{"name":"Null start","start":null,"end":"2021-01-02"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, h, http.MethodPost, "/api/items", tt.body); rec.Code != tt.want {
			t.Errorf("POST %s = %d, want %d", tt.body, rec.Code, tt.want)
		}
	}

	list := decode[itemsResponse](t, do(t, h, http.MethodGet, "/api/items", ""))
	if len(list.Items) != 4 {
		t.Fatalf("list = %d items", len(list.Items))
	}
}

func TestRefresh(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s.Handler(), http.MethodPost, "/api/refresh", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("refresh without hook = %d", rec.Code)
	}

	calls := 0
	s, _ = newTestServer(t, WithRefresh(func(context.Context) error {
		calls++
		return nil
	}))
	rec := do(t, s.Handler(), http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("refresh = %d, calls %d", rec.Code, calls)
	}
	if got := decode[map[string]int](t, rec); got["items"] != 3 {
		t.Fatalf("refresh body = %v", got)
	}

	s, _ = newTestServer(t, WithRefresh(func(context.Context) error { return errors.New("feed down") }))
	if rec := do(t, s.Handler(), http.MethodPost, "/api/refresh", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("failing refresh = %d", rec.Code)
	}
}

func TestViews(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/timeline", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `data-ready="true"`) {
		t.Fatalf("timeline = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("timeline content type = %q", ct)
	}

	rec = do(t, h, http.MethodGet, "/timeline.svg", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/timeline" {
		t.Fatalf("root = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	if rec := do(t, h, http.MethodGet, "/preview.png", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing preview = %d", rec.Code)
	}
	if err := os.WriteFile(s.cfg.Capture.OutputPath, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, h, http.MethodGet, "/preview.png", ""); rec.Code != http.StatusOK {
		t.Fatalf("preview = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health behind auth = %d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/layout", "")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("unauthenticated = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/layout", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/layout", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated = %d", rec.Code)
	}
}

func TestListenAndServeNotifiesWhenListening(t *testing.T) {
	addrCh := make(chan string, 1)
	s, _ := newTestServer(t, WithOnListening(func(addr string) { addrCh <- addr }))
	s.cfg.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("ListenAndServe: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("listener never came up")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not stop")
	}
}
