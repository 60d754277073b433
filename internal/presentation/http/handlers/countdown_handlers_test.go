package handlers

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zurichjs/conference-go/internal/application/container"
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/testdb"
	"github.com/zurichjs/conference-go/internal/presentation/http/middleware"
	"github.com/zurichjs/conference-go/pkg/config"
)

var countdownStart = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type recordingToucher struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingToucher) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingToucher) Touched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type countdownFixture struct {
	server    *httptest.Server
	client    *http.Client
	container *container.Container
	ticks     chan time.Time
	wallClock *services.ManualClock
	touches   *recordingToucher
}

func newCountdownFixture(t *testing.T) *countdownFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultDiscountConfig()
	cfg.ForceShow = true
	cfg.DisplayDelay = 0

	c := container.NewContainer(container.Options{
		DB:        testdb.Open(t),
		Discount:  cfg,
		Clock:     services.NewManualClock(countdownStart),
		JWTSecret: "test-secret",
	})
	t.Cleanup(c.AnalyticsService.Close)

	// The stream judges completion on its own clock so the test can move it
	// without firing the engine's expiry timer.
	wallClock := services.NewManualClock(countdownStart)
	ticks := make(chan time.Time)
	touches := &recordingToucher{}
	stream := NewCountdownHandlers(nil, touches, wallClock, c.Logger)
	stream.newTicker = func() (<-chan time.Time, func()) { return ticks, func() {} }

	r := gin.New()
	r.Use(middleware.PopupSessionMiddleware(c.PopupSessions, c.NewPopupSession, c.Logger))
	discountHandlers := NewDiscountHandlers(c.DiscountService, c.EmailService, c.Logger, nil)
	r.POST("/session", discountHandlers.PostSession)
	r.GET("/ws", stream.ServeCountdown)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &countdownFixture{
		server:    srv,
		client:    &http.Client{Jar: jar},
		container: c,
		ticks:     ticks,
		wallClock: wallClock,
		touches:   touches,
	}
}

func (f *countdownFixture) dial(t *testing.T) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)

	header := http.Header{}
	for _, c := range f.client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestCountdownWithoutDiscountIsNotFound(t *testing.T) {
	require := require.New(t)
	f := newCountdownFixture(t)

	_, resp, err := f.dial(t)
	require.Error(err)
	require.NotNil(resp)
	require.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestCountdownStreamsUntilExpiry(t *testing.T) {
	require := require.New(t)
	f := newCountdownFixture(t)

	resp, err := f.client.Post(f.server.URL+"/session", "application/json", nil)
	require.NoError(err)
	resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	conn, _, err := f.dial(t)
	require.NoError(err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg CountdownMessage
	require.NoError(conn.ReadJSON(&msg))
	require.Equal(discount.StateModalOpen, msg.State)
	require.True(strings.HasPrefix(msg.Code, "JSC-"))
	require.Equal(1, msg.Remaining.Days)
	require.False(msg.Remaining.IsComplete)

	f.ticks <- countdownStart.Add(90 * time.Minute)
	require.NoError(conn.ReadJSON(&msg))
	require.Equal(0, msg.Remaining.Days)
	require.Equal(22, msg.Remaining.Hours)
	require.Equal(30, msg.Remaining.Minutes)
	touched := f.touches.Touched()
	require.Len(touched, 1)
	require.Equal(f.sessionID(t), touched[0])

	f.wallClock.Advance(24 * time.Hour)
	f.ticks <- countdownStart.Add(24 * time.Hour)
	require.NoError(conn.ReadJSON(&msg))
	require.Equal(discount.StateExpired, msg.State)
	require.True(msg.Remaining.IsComplete)

	_, _, err = conn.ReadMessage()
	require.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	counts := f.expiredEvents(t)
	require.Equal(1, counts)
}

func (f *countdownFixture) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == cookies.SessionName {
			return c.Value
		}
	}
	t.Fatal("no session cookie")
	return ""
}

func (f *countdownFixture) expiredEvents(t *testing.T) int {
	t.Helper()
	f.container.AnalyticsService.Close()
	counts, err := f.container.AnalyticsService.Summary(context.Background())
	require.NoError(t, err)
	return counts[discount.EventExpired]
}
