package website

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perf"
	"github.com/rs/zerolog"
)

// Router dispatches on regexes from src/newsurl. Routes are tried in the
// order they were added; the last one must be a catch-all.
type Router struct {
	Routes []Route
}

type Route struct {
	Method  string // empty matches any method
	Regex   *regexp.Regexp
	Handler Handler

	name string
}

func (r *Route) String() string {
	if r.name == "" {
		method := r.Method
		if method == "" {
			method = "*"
		}
		r.name = method + " " + r.Regex.String()
	}
	return r.name
}

// match reports whether path fits the route and collects its named groups.
func (r *Route) match(path string) (map[string]string, bool) {
	m := r.Regex.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string)
	for i, name := range r.Regex.SubexpNames() {
		if name != "" {
			params[name] = m[i]
		}
	}
	return params, true
}

type RouteBuilder struct {
	Router      *Router
	Middlewares []Middleware
}

type Handler func(c *RequestContext) ResponseData
type Middleware func(h Handler) Handler

// wrap applies middlewares so that the first one listed runs first.
func wrap(h Handler, ms []Middleware) Handler {
	for i := len(ms) - 1; i >= 0; i-- {
		h = ms[i](h)
	}
	return h
}

func (rb RouteBuilder) Handle(method string, regex *regexp.Regexp, h Handler) {
	if !strings.HasPrefix(regex.String(), "^") {
		panic(fmt.Sprintf("route regex %q must be anchored with ^", regex))
	}
	route := Route{
		Method:  method,
		Regex:   regex,
		Handler: wrap(h, rb.Middlewares),
	}
	_ = route.String()
	rb.Router.Routes = append(rb.Router.Routes, route)
}

func (rb RouteBuilder) AnyMethod(regex *regexp.Regexp, h Handler) {
	rb.Handle("", regex, h)
}

func (rb RouteBuilder) GET(regex *regexp.Regexp, h Handler) {
	rb.Handle(http.MethodGet, regex, h)
}

func (rb RouteBuilder) POST(regex *regexp.Regexp, h Handler) {
	rb.Handle(http.MethodPost, regex, h)
}

func (rb RouteBuilder) PUT(regex *regexp.Regexp, h Handler) {
	rb.Handle(http.MethodPut, regex, h)
}

func (rb RouteBuilder) DELETE(regex *regexp.Regexp, h Handler) {
	rb.Handle(http.MethodDelete, regex, h)
}

// WithMiddleware returns a builder whose routes also run ms, after the ones
// already on rb.
func (rb RouteBuilder) WithMiddleware(ms ...Middleware) RouteBuilder {
	rb.Middlewares = append(rb.Middlewares[:len(rb.Middlewares):len(rb.Middlewares)], ms...)
	return rb
}

func (r *Router) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	method := req.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}
	path := strings.TrimSuffix(req.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	wrongMethod := false
	for i := range r.Routes {
		route := &r.Routes[i]
		params, ok := route.match(path)
		if !ok {
			continue
		}
		if route.Method != "" && route.Method != method {
			wrongMethod = true
			continue
		}

		requestID := uuid.NewString()
		logger := logging.With().
			Str("route", route.String()).
			Str("request id", requestID).
			Logger()

		c := &RequestContext{
			Route:            route.String(),
			RequestID:        requestID,
			Logger:           &logger,
			Req:              req,
			Res:              rw,
			PathParams:       params,
			MethodNotAllowed: route.Method == "" && wrongMethod,
		}
		c.ctx = logging.AttachLoggerToContext(c.Logger, req.Context())

		doRequest(rw, c, route.Handler)
		return
	}

	panic(fmt.Sprintf("no route matched %s; register a catch-all last", req.URL.Path))
}

type RequestContext struct {
	Route      string
	RequestID  string
	Logger     *zerolog.Logger
	Req        *http.Request
	PathParams map[string]string

	MethodNotAllowed bool

	// This is the http package's own response object, not just a
	// ResponseWriter. The notification stream hijacks it for the websocket.
	Res http.ResponseWriter

	App *App

	// Set by the session middleware when the request carried a valid token.
	Session *auth.Session

	Perf *perf.RequestPerf

	ctx context.Context
}

var _ context.Context = &RequestContext{}

func (c *RequestContext) Deadline() (time.Time, bool) {
	return c.ctx.Deadline()
}

func (c *RequestContext) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *RequestContext) Err() error {
	return c.ctx.Err()
}

func (c *RequestContext) Value(key any) any {
	switch key {
	case perf.PerfContextKey:
		return c.Perf
	default:
		return c.ctx.Value(key)
	}
}

// Identity returns the caller's identity, or nil for anonymous requests.
func (c *RequestContext) Identity() *models.Identity {
	if c.Session == nil {
		return nil
	}
	id := c.Session.Identity
	return &id
}

// Actor is the caller's identity on routes behind needsAuth.
func (c *RequestContext) Actor() models.Identity {
	if c.Session == nil {
		panic(oops.New(nil, "route %s reads the session without requiring one", c.Route))
	}
	return c.Session.Identity
}

// ClientIP is the first X-Forwarded-For hop, or the peer address.
func (c *RequestContext) ClientIP() string {
	if fwd := c.Req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if ap, err := netip.ParseAddrPort(c.Req.RemoteAddr); err == nil {
		return ap.Addr().String()
	}
	return c.Req.RemoteAddr
}

// PathID reads a numeric path parameter. The route regexes only let digits
// through, so a failure here means the number overflowed.
func (c *RequestContext) PathID(name string) (int, error) {
	id, err := strconv.Atoi(c.PathParams[name])
	if err != nil || id < 1 {
		return 0, oops.NotFound("no such %s", name).WithCode("not_found")
	}
	return id, nil
}

// ReadJson decodes the request body into dest. An empty body leaves dest as
// it was.
func (c *RequestContext) ReadJson(dest any) error {
	body := http.MaxBytesReader(c.Res, c.Req.Body, maxJsonBody)
	dec := json.NewDecoder(body)
	err := dec.Decode(dest)
	if err != nil && !errors.Is(err, io.EOF) {
		return oops.InvalidInput("request body is not valid JSON").WithCode("invalid_json")
	}
	return nil
}

const maxJsonBody = 1 << 20

type ResponseData struct {
	StatusCode int
	Body       *bytes.Buffer
	Errors     []error

	header http.Header

	hijacked bool
}

var _ http.ResponseWriter = &ResponseData{}

func (rd *ResponseData) Header() http.Header {
	if rd.header == nil {
		rd.header = make(http.Header)
	}

	return rd.header
}

func (rd *ResponseData) Write(p []byte) (n int, err error) {
	if rd.Body == nil {
		rd.Body = new(bytes.Buffer)
	}

	return rd.Body.Write(p)
}

func (rd *ResponseData) WriteHeader(status int) {
	rd.StatusCode = status
}

func (rd *ResponseData) WriteJson(data any, rp *perf.RequestPerf) {
	if rp != nil {
		b := rp.StartBlock("JSON", "Encode response")
		defer b.End()
	}
	dataJson, err := json.Marshal(data)
	if err != nil {
		panic(oops.New(err, "failed to encode response"))
	}
	rd.Header().Set("Content-Type", "application/json; charset=utf-8")
	rd.Write(dataJson)
}

// JsonResponse is the usual way for a handler to finish.
func (c *RequestContext) JsonResponse(status int, data any) ResponseData {
	res := ResponseData{StatusCode: status}
	res.WriteJson(data, c.Perf)
	return res
}

func (c *RequestContext) Ok(data any) ResponseData {
	return c.JsonResponse(http.StatusOK, data)
}

func (c *RequestContext) Created(data any) ResponseData {
	return c.JsonResponse(http.StatusCreated, data)
}

func (c *RequestContext) Message(msg string) ResponseData {
	return c.Ok(map[string]string{"message": msg})
}

func doRequest(rw http.ResponseWriter, c *RequestContext, h Handler) {
	defer func() {
		// Last resort; panicCatcherMiddleware normally gets there first.
		if recovered := recover(); recovered != nil {
			logging.LogPanicValue(c.Logger, recovered, "request panicked and was not handled")
			rw.Header().Set("Content-Type", "application/json; charset=utf-8")
			rw.WriteHeader(http.StatusInternalServerError)
			rw.Write([]byte(`{"error":"server failure","kind":"internal"}`))
		}
	}()

	res := h(c)
	if res.hijacked {
		return
	}
	if res.StatusCode == 0 {
		res.StatusCode = http.StatusOK
	}

	header := rw.Header()
	for name, vals := range res.Header() {
		header[name] = vals
	}
	header.Set("X-Request-Id", c.RequestID)
	if res.Body != nil {
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", http.DetectContentType(res.Body.Bytes()))
		}
		// Set explicitly so HEAD answers carry it too.
		header.Set("Content-Length", strconv.Itoa(res.Body.Len()))
	}
	rw.WriteHeader(res.StatusCode)

	if res.Body == nil || c.Req.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(rw, res.Body); err != nil {
		if errors.Is(err, syscall.EPIPE) {
			c.Logger.Debug().Msg("client hung up before the response was written")
		} else {
			c.Logger.Error().Err(err).Msg("failed to write response body")
		}
	}
}
