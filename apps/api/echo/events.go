package echoapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
)

const eventsWriteWait = 10 * time.Second

type eventsApi struct {
	auth     *authenticator
	broker   *meeting.Broker
	buffer   int
	upgrader websocket.Upgrader
	logger   core.Logger
}

// allowedOrigin accepts handshakes from the server's own host and from frontendBaseURL.
// Requests without an Origin header do not come from a browser and are let through.
func allowedOrigin(frontendBaseURL string) func(r *http.Request) bool {
	frontend, _ := url.Parse(frontendBaseURL)
	return func(r *http.Request) bool {
		origin := r.Header.Get(echo.HeaderOrigin)
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return frontend != nil && frontend.Host != "" &&
			strings.EqualFold(u.Scheme, frontend.Scheme) &&
			strings.EqualFold(u.Host, frontend.Host)
	}
}

// registerEventsAPI exposes the meeting events stream. Browsers cannot set headers on websocket
// handshakes, so jwt reads the token from the query string.
func registerEventsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	broker *meeting.Broker,
	buffer int,
	frontendBaseURL string,
	logger core.Logger,
) {
	api := eventsApi{
		auth:   auth,
		broker: broker,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			CheckOrigin:     allowedOrigin(frontendBaseURL),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
	g.GET("/events", api.stream, jwt)
}

// stream pushes every meeting event that concerns the caller until the client goes away.
func (api *eventsApi) stream(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	// subscribe first: events published once the handshake completes must not be missed
	sub := api.broker.Subscribe(api.buffer)
	defer sub.Unsubscribe()

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		api.logger.Warn(fmt.Sprintf("websocket upgrade failed: %v", err))
		return nil
	}
	defer conn.Close()

	// the client never sends anything; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil
		case <-ctx.Request().Context().Done():
			return nil
		case e, ok := <-sub.C:
			if !ok {
				return nil
			}
			if !(usr.IsHOD() || e.Concerns(usr.ID)) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				api.logger.Debug(fmt.Sprintf("websocket write to user %s failed: %v", usr.ID, err))
				return nil
			}
		}
	}
}
