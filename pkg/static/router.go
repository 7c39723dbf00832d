package static

import (
	"fmt"
	"strings"
)

// Route maps a request-line prefix to a resource.
type Route struct {
	RequestLine string
	Resource    string
	Status      Status
}

// Router matches request lines against an ordered, fixed route table.
type Router struct {
	routes     []Route
	notFound   Route
	badRequest Route
}

// NewRouter validates the table. notFound serves unmatched requests and
// badRequest serves malformed ones.
func NewRouter(routes []Route, notFound, badRequest Route) (*Router, error) {
	routes = append([]Route(nil), routes...)
	for i, r := range routes {
		if r.RequestLine == "" {
			return nil, fmt.Errorf("static: route %d: empty request line", i)
		}
		if r.Resource == "" {
			return nil, fmt.Errorf("static: route %q: empty resource", r.RequestLine)
		}
		if r.Status.Code == 0 {
			routes[i].Status = StatusOK
		}
	}
	if notFound.Resource == "" || badRequest.Resource == "" {
		return nil, fmt.Errorf("static: fallback routes need a resource")
	}
	if notFound.Status.Code == 0 {
		notFound.Status = StatusNotFound
	}
	if badRequest.Status.Code == 0 {
		badRequest.Status = StatusBadRequest
	}

	return &Router{
		routes:     routes,
		notFound:   notFound,
		badRequest: badRequest,
	}, nil
}

// DefaultRouter serves index.html for "GET / HTTP/1.1", 404.html otherwise
// and 400.html for malformed requests.
func DefaultRouter() *Router {
	r, err := NewRouter(
		[]Route{{RequestLine: "GET / HTTP/1.1", Resource: "index.html", Status: StatusOK}},
		Route{Resource: "404.html", Status: StatusNotFound},
		Route{Resource: "400.html", Status: StatusBadRequest},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Match returns the first route whose request line prefixes line.
func (r *Router) Match(line string) (Route, bool) {
	for _, route := range r.routes {
		if strings.HasPrefix(line, route.RequestLine) {
			return route, true
		}
	}
	return Route{}, false
}

func (r *Router) NotFound() Route   { return r.notFound }
func (r *Router) BadRequest() Route { return r.badRequest }

// Resources lists every resource the table references, without duplicates.
func (r *Router) Resources() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, route := range r.routes {
		add(route.Resource)
	}
	add(r.notFound.Resource)
	add(r.badRequest.Resource)
	return names
}
