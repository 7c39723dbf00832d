package static

import (
	"testing"
)

func TestRouter_Match(t *testing.T) {
	t.Parallel()

	r, err := NewRouter([]Route{
		{RequestLine: "GET / HTTP/1.1", Resource: "index.html"},
		{RequestLine: "GET /sleep", Resource: "sleep.html"},
		{RequestLine: "GET /sleep HTTP/1.1", Resource: "never.html"},
	}, Route{Resource: "404.html"}, Route{Resource: "400.html"})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	tests := []struct {
		line     string
		resource string
		ok       bool
	}{
		{"GET / HTTP/1.1", "index.html", true},
		{"GET / HTTP/1.1 trailing", "index.html", true},
		{"GET /sleep HTTP/1.1", "sleep.html", true},
		{"GET /missing HTTP/1.1", "", false},
		{"get / HTTP/1.1", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Match(tt.line)
		if ok != tt.ok || got.Resource != tt.resource {
			t.Fatalf("Match(%q) = %q, %v; want %q, %v", tt.line, got.Resource, ok, tt.resource, tt.ok)
		}
		if ok && got.Status != StatusOK {
			t.Fatalf("Match(%q) status = %v, want default 200", tt.line, got.Status)
		}
	}

	if r.NotFound().Status != StatusNotFound || r.BadRequest().Status != StatusBadRequest {
		t.Fatal("fallback statuses should default to 404 and 400")
	}
}

func TestRouter_Invalid(t *testing.T) {
	t.Parallel()

	fallbacks := []Route{{Resource: "404.html"}, {Resource: "400.html"}}
	if _, err := NewRouter([]Route{{Resource: "x"}}, fallbacks[0], fallbacks[1]); err == nil {
		t.Fatal("expected error for empty request line")
	}
	if _, err := NewRouter([]Route{{RequestLine: "GET /"}}, fallbacks[0], fallbacks[1]); err == nil {
		t.Fatal("expected error for empty resource")
	}
	if _, err := NewRouter(nil, Route{}, fallbacks[1]); err == nil {
		t.Fatal("expected error for missing fallback resource")
	}
}

func TestRouter_Resources(t *testing.T) {
	t.Parallel()

	got := DefaultRouter().Resources()
	want := []string{"index.html", "404.html", "400.html"}
	if len(got) != len(want) {
		t.Fatalf("Resources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Resources() = %v, want %v", got, want)
		}
	}
}
