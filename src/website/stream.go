package website

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newsdesk-cms/newsdesk/src/jobs"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/rs/zerolog"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = streamPongTimeout * 9 / 10
)

/*
StreamHub owns the open notification streams. Each stream polls the store
for the caller's unread count and pushes it whenever it changes. Every poll
re-checks the caller's session first, so a stream ends when its token expires
or its account is banned or deleted. Streams close when the hub's job is
canceled, and the job finishes once the last one is gone.
*/
type StreamHub struct {
	Interval time.Duration

	ctx      context.Context
	upgrader websocket.Upgrader

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func StartStreams(interval time.Duration, frontendOrigin string) (*StreamHub, *jobs.Job) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	job := jobs.New("notification streams")
	hub := &StreamHub{
		Interval: interval,
		ctx:      job.Ctx,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || frontendOrigin == "" {
					return true
				}
				return strings.EqualFold(origin, frontendOrigin) || strings.HasSuffix(origin, "://"+r.Host)
			},
		},
	}

	go func() {
		<-job.Canceled()
		hub.mu.Lock()
		hub.closing = true
		hub.mu.Unlock()
		hub.wg.Wait()
		job.Finish()
	}()

	return hub, job
}

// enter registers a new stream, unless the hub is shutting down.
func (hub *StreamHub) enter() bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closing {
		return false
	}
	hub.wg.Add(1)
	return true
}

type unreadMessage struct {
	UnreadCount int `json:"unreadCount"`
}

func NotificationStream(c *RequestContext) ResponseData {
	hub := c.App.Streams
	if hub == nil {
		return c.ErrorResponse(oops.InvalidState("notification streams are not running").WithCode("streams_unavailable"))
	}

	if !hub.enter() {
		return c.ErrorResponse(oops.InvalidState("server is shutting down").WithCode("streams_unavailable"))
	}
	defer hub.wg.Done()

	conn, err := hub.upgrader.Upgrade(c.Res, c.Req, nil)
	if err != nil {
		// Upgrade has already answered the client.
		c.Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return ResponseData{hijacked: true}
	}

	session := c.Session
	recheck := func(ctx context.Context) error {
		return c.App.Sessions.Check(ctx, session)
	}
	hub.serve(conn, c.App.Notifications, recheck, c.Actor().AccountID, c.Logger)
	return ResponseData{hijacked: true}
}

// errStreamEnded stops the poll loop after a close frame has been sent.
var errStreamEnded = errors.New("stream ended")

func (hub *StreamHub) serve(
	conn *websocket.Conn,
	svc *notifications.Service,
	recheck func(ctx context.Context) error,
	recipientID int,
	logger *zerolog.Logger,
) {
	defer conn.Close()
	logger.Debug().Msg("notification stream opened")
	defer logger.Debug().Msg("notification stream closed")

	// The client never sends anything we care about, but reading is how
	// close frames and pongs get processed.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := -1
	push := func() error {
		ctx, cancel := context.WithTimeout(hub.ctx, streamWriteTimeout)
		defer cancel()
		if err := recheck(ctx); err != nil {
			if oops.KindOf(err) == oops.KindInternal {
				logger.Warn().Err(err).Msg("failed to re-check stream session")
				return nil
			}
			logger.Debug().Str("reason", oops.CodeOf(err)).Msg("closing stream for a session that is no longer valid")
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, oops.CodeOf(err)),
				time.Now().Add(time.Second),
			)
			return errStreamEnded
		}
		n, err := svc.UnreadCount(ctx, recipientID)
		if err != nil {
			// Try again next tick.
			logger.Warn().Err(err).Msg("failed to poll unread count")
			return nil
		}
		if n == last {
			return nil
		}
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(unreadMessage{UnreadCount: n}); err != nil {
			return err
		}
		last = n
		return nil
	}

	if err := push(); err != nil {
		return
	}

	poll := time.NewTicker(hub.Interval)
	defer poll.Stop()
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-poll.C:
			if err := push(); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-hub.ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			return
		}
	}
}
