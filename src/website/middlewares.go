package website

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perf"
	"github.com/newsdesk-cms/newsdesk/src/perms"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(error)
				var err error
				if ok {
					err = oops.New(maybeError, "request panicked")
				} else {
					err = oops.New(nil, fmt.Sprintf("Recovered from panic with value: %v", recovered))
				}
				res = c.ErrorResponse(err)
			}
		}()

		return h(c)
	}
}

func trackRequestPerf(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		c.Perf = perf.MakeNewRequestPerf(c.Route, c.Req.Method, c.Req.URL.Path)
		var res ResponseData
		defer func() {
			c.Perf.EndRequest()
			log := c.Logger.Debug()
			for i, block := range c.Perf.Blocks {
				log.Str(fmt.Sprintf("[%4.d] At %9.2fms", i, c.Perf.MsFromStart(&block)), fmt.Sprintf("[%s] %s (%.4fms)", block.Category, block.Description, block.DurationMs()))
			}
			log.Msg(fmt.Sprintf("Served [%s] %s in %.4fms", c.Perf.Method, c.Perf.Path, c.Perf.DurationMs()))

			c.Logger.Info().
				Str("method", c.Req.Method).
				Str("path", c.Req.URL.Path).
				Int("status", res.StatusCode).
				Float64("ms", c.Perf.DurationMs()).
				Msg("Request")
		}()

		res = h(c)
		return res
	}
}

/*
loadSession resolves the bearer token, if any. Requests without a token go
through as anonymous. A token that is present but bad is rejected here, so
that a client with a stale token finds out instead of silently seeing the
anonymous view.
*/
func loadSession(sessions *auth.Manager) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			raw := auth.TokenFromHeader(c.Req.Header.Get("Authorization"))
			if raw == "" && websocket.IsWebSocketUpgrade(c.Req) {
				// Browsers cannot set headers on a websocket handshake.
				raw = c.Req.URL.Query().Get("token")
			}
			if raw == "" {
				return h(c)
			}

			b := c.Perf.StartBlock("AUTH", "Authenticate session")
			session, err := sessions.Authenticate(c, raw)
			b.End()
			if err != nil {
				return c.ErrorResponse(err)
			}

			c.Session = session
			logger := c.Logger.With().Int("account", session.Account.ID).Logger()
			c.Logger = &logger
			c.ctx = logging.AttachLoggerToContext(c.Logger, c.ctx)

			return h(c)
		}
	}
}

// needsAuth rejects anonymous requests, then turns banned callers away.
// Every route behind it can use c.Actor().
func needsAuth(sessions *auth.Manager) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			if c.Session == nil {
				return c.ErrorResponse(oops.Unauthorized("authentication required").WithCode(auth.CodeTokenMissing))
			}
			if err := sessions.Bans.Gate(c, c.Session.Account); err != nil {
				return c.ErrorResponse(err)
			}
			return h(c)
		}
	}
}

// requires checks the role matrix before the handler runs. Services check
// again with the ownership facts they have; this just answers early.
func requires(action perms.Action) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			if err := perms.Require(c.Actor(), action); err != nil {
				return c.ErrorResponse(err)
			}
			return h(c)
		}
	}
}

// securityTimer makes sure a request takes at least duration, plus up to 10%
// at random, so that response times do not reveal which accounts exist.
func securityTimer(duration time.Duration) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			additionalDuration := time.Duration(rand.Int63n(max(1, int64(duration)/10)))
			timer := time.NewTimer(duration + additionalDuration)
			defer timer.Stop()
			res := h(c)
			select {
			case <-c.Done():
			case <-timer.C:
			}
			return res
		}
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		if oops.KindOf(err) == oops.KindInternal {
			c.Logger.Error().Timestamp().Stack().Str("path", c.Req.URL.Path).Str("ip", c.ClientIP()).Err(err).Msg("error occurred during request")
		} else {
			c.Logger.Debug().Str("path", c.Req.URL.Path).Str("ip", c.ClientIP()).Err(err).Msg("request refused")
		}
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
