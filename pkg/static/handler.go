package static

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/fluxorio/lineserve/pkg/core"
	"github.com/fluxorio/lineserve/pkg/core/failfast"
	"github.com/fluxorio/lineserve/pkg/tcp"
)

// State is a step of the per-connection lifecycle.
type State string

const (
	StateAccepted   State = "accepted"
	StateReading    State = "reading"
	StateMatched    State = "matched"
	StateUnmatched  State = "unmatched"
	StateMalformed  State = "malformed"
	StateResponding State = "responding"
	StateClosed     State = "closed"
)

// Result records what happened on one connection.
type Result struct {
	States       []State
	RequestLine  string
	Status       Status
	BytesWritten int
	Err          error
}

// State returns the last state reached.
func (r *Result) State() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

func (r *Result) enter(s State) { r.States = append(r.States, s) }

// Handler serves canned responses chosen by request line.
type Handler struct {
	router    *Router
	resources *Resources
	limits    Limits
	logger    core.Logger
}

// HandlerOptions tunes a Handler. Zero values use defaults.
type HandlerOptions struct {
	Limits Limits
	Logger core.Logger
}

// NewHandler creates a handler over router and resources.
func NewHandler(router *Router, resources *Resources, opts HandlerOptions) *Handler {
	failfast.NotNil(router, "router")
	failfast.NotNil(resources, "resources")
	if opts.Logger == nil {
		opts.Logger = core.NewDefaultLogger()
	}
	return &Handler{
		router:    router,
		resources: resources,
		limits:    opts.Limits.withDefaults(),
		logger:    opts.Logger,
	}
}

// NewDirHandler serves DefaultRouter from the files under root.
func NewDirHandler(root string, reload bool, opts HandlerOptions) (*Handler, error) {
	router := DefaultRouter()
	res, err := LoadResources(os.DirFS(root), router.Resources(), reload)
	if err != nil {
		return nil, err
	}
	return NewHandler(router, res, opts), nil
}

var _ tcp.ConnectionHandler = (*Handler)(nil)

// HandleConn implements tcp.ConnectionHandler. The server closes the
// connection afterwards.
func (h *Handler) HandleConn(ctx *tcp.ConnContext) error {
	logger := ctx.Logger
	if logger == nil {
		logger = h.logger
	}
	res := h.Serve(ctx.Conn, logger)

	ctx.Set(tcp.KeyRequestLine, res.RequestLine)
	ctx.Set(tcp.KeyBytesWritten, res.BytesWritten)
	if res.Status.Code != 0 {
		ctx.Set(tcp.KeyStatus, res.Status.Code)
	}
	return res.Err
}

// Serve reads one request from rw and writes one response. The returned
// Result always ends in StateClosed; closing rw is the caller's job.
func (h *Handler) Serve(rw io.ReadWriter, logger core.Logger) (res Result) {
	if logger == nil {
		logger = h.logger
	}
	defer res.enter(StateClosed)

	res.enter(StateAccepted)
	res.enter(StateReading)

	var route Route
	req, err := ReadRequest(bufio.NewReader(rw), h.limits)
	switch {
	case err == nil:
		res.RequestLine = req.RequestLine()
		logger.Debugf("request: %q", req.Lines)
		if r, ok := h.router.Match(res.RequestLine); ok {
			route = r
			res.enter(StateMatched)
		} else {
			route = h.router.NotFound()
			res.enter(StateUnmatched)
		}
	case errors.Is(err, ErrEmptyRequest), errors.Is(err, ErrRequestTooLarge):
		logger.Debugf("malformed request: %v", err)
		route = h.router.BadRequest()
		res.enter(StateMalformed)
	default:
		res.Err = err
		return res
	}

	status, body, err := h.payload(route, logger)
	if err != nil {
		res.Err = err
	}

	res.enter(StateResponding)
	res.Status = status
	n, err := Response{Status: status, Body: body}.WriteTo(rw)
	res.BytesWritten = int(n)
	if err != nil {
		res.Err = err
	}
	return res
}

// payload loads the route's resource. A resource that cannot be read
// (vanished since start, permission denied, I/O failure) is served as the
// not-found fallback and the read error is returned alongside it.
func (h *Handler) payload(route Route, logger core.Logger) (Status, []byte, error) {
	body, err := h.resources.Get(route.Resource)
	if err == nil {
		return route.Status, body, nil
	}
	logger.Warnf("resource %q unreadable, serving not-found fallback: %v", route.Resource, err)

	fallback := h.router.NotFound()
	if fallback.Resource == route.Resource {
		return fallback.Status, nil, err
	}
	body, ferr := h.resources.Get(fallback.Resource)
	if ferr != nil {
		return fallback.Status, nil, errors.Join(err, ferr)
	}
	return fallback.Status, body, err
}
