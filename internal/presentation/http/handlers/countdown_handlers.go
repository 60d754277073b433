package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/domain/countdown"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/presentation/http/middleware"
)

const countdownWriteWait = 5 * time.Second

// CountdownMessage is one frame of the countdown stream.
type CountdownMessage struct {
	State     discount.State      `json:"state"`
	Code      string              `json:"code"`
	Remaining countdown.Remaining `json:"remaining"`
}

// SessionToucher keeps a session from idle eviction while it is in use.
type SessionToucher interface {
	Touch(id string)
}

// CountdownHandlers streams the active discount's remaining time over a websocket.
type CountdownHandlers struct {
	upgrader  websocket.Upgrader
	sessions  SessionToucher
	clock     services.Clock
	logger    *logging.ChanneledLogger
	newTicker func() (<-chan time.Time, func())
}

// NewCountdownHandlers creates countdown handlers. Upgrades are accepted from
// allowedOrigins and from same-origin pages.
func NewCountdownHandlers(allowedOrigins []string, sessions SessionToucher, clock services.Clock, logger *logging.ChanneledLogger) *CountdownHandlers {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &CountdownHandlers{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
		sessions: sessions,
		clock:    clock,
		logger:   logger,
		newTicker: func() (<-chan time.Time, func()) {
			t := time.NewTicker(time.Second)
			return t.C, t.Stop
		},
	}
}

// ServeCountdown handles GET /api/v1/discount/countdown/ws. It pushes the
// remaining time every second and, once it reaches zero, drives the engine to
// expired and sends a final frame before closing.
func (h *CountdownHandlers) ServeCountdown(c *gin.Context) {
	session, ok := middleware.GetPopupSession(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "popup session not found"})
		return
	}
	log := h.logger.WithSession(logging.ChannelPopup, session.ID)

	snap := session.Engine.Snapshot()
	if snap.Discount == nil || snap.State.Terminal() {
		middleware.FlushCookies(c)
		c.JSON(http.StatusNotFound, gin.H{"error": "No active discount"})
		return
	}
	target := snap.Discount.ExpiresAt
	code := snap.Discount.Code

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Countdown websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()
	// Clear the server's read deadline; the stream outlives a normal request.
	conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends anything; reading only notices the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(state discount.State, r countdown.Remaining) bool {
		conn.SetWriteDeadline(time.Now().Add(countdownWriteWait))
		if err := conn.WriteJSON(CountdownMessage{State: state, Code: code, Remaining: r}); err != nil {
			log.Debug("Countdown stream write failed", "error", err.Error())
			cancel()
			return false
		}
		return true
	}

	first := countdown.Until(target, h.clock.Now())
	if !send(session.Engine.Snapshot().State, first) {
		return
	}

	last := first
	if !first.IsComplete {
		ticks, stop := h.newTicker()
		defer stop()
		last = countdown.Watch(ctx, target, ticks, func(r countdown.Remaining) {
			// an open stream counts as activity
			h.sessions.Touch(session.ID)
			if !r.IsComplete {
				send(session.Engine.Snapshot().State, r)
			}
		})
	}
	if !last.IsComplete {
		log.Debug("Countdown stream closed by client")
		return
	}

	if session.Engine.Tick(h.clock.Now()) {
		log.Info("Countdown reached zero, discount expired", "code", code)
	}
	if send(session.Engine.Snapshot().State, countdown.Complete) {
		conn.SetWriteDeadline(time.Now().Add(countdownWriteWait))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "expired"))
	}
}
