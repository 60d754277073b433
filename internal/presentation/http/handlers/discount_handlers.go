// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/fingerprint"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/performance"
	"github.com/zurichjs/conference-go/internal/presentation/http/middleware"
)

var errClipboardRejected = errors.New("browser rejected clipboard write")

// DiscountHandlers serves the popup session API.
type DiscountHandlers struct {
	discountService *services.DiscountService
	emailService    *services.EmailService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewDiscountHandlers creates discount handlers with injected dependencies
func NewDiscountHandlers(discountService *services.DiscountService, emailService *services.EmailService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DiscountHandlers {
	return &DiscountHandlers{
		discountService: discountService,
		emailService:    emailService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// StartSessionRequest is the optional body of POST /discount/session.
type StartSessionRequest struct {
	Signals         *fingerprint.ClientSignals `json:"signals"`
	Query           string                     `json:"query"`
	CookiesDisabled bool                       `json:"cookiesDisabled"`
}

// PriceView is the ticket price before and after the discount.
type PriceView struct {
	Regular    string `json:"regular"`
	Discounted string `json:"discounted"`
}

// SessionResponse is the snapshot plus what the client needs to schedule display.
type SessionResponse struct {
	services.Snapshot
	DelayMs int64      `json:"delayMs"`
	Price   *PriceView `json:"price,omitempty"`
	Ignored bool       `json:"ignored,omitempty"`
}

// PostSession handles POST /api/v1/discount/session - starts the popup for this browser session
func (h *DiscountHandlers) PostSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("discount:start_session", session.ID)
	defer marker.Complete()
	log := h.logger.WithSession(logging.ChannelPopup, session.ID)
	log.Debug("Received start session request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var req StartSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Start session request JSON binding failed", "error", err.Error())
			marker.SetError(err)
			h.respond(c, http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	utm := discount.UTMFromQuery(c.Request.URL.Query())
	if req.Query != "" {
		utm = discount.UTMFromRawQuery(req.Query)
	}

	engine := session.Engine
	snap := engine.Start(c.Request.Context(), services.StartInput{
		Fingerprint:     fingerprint.Resolve(req.Signals, c.Request, c.ClientIP()),
		UTM:             utm,
		Status:          h.discountService.ActiveStatus(c.Request.Context(), engine.Flags()),
		CookiesDisabled: req.CookiesDisabled,
	})

	log.Info("Popup session started", "state", snap.State, "eligible", snap.Eligible, "reason", snap.Reason, "duration", time.Since(start))
	h.respond(c, http.StatusOK, h.view(snap, false))
}

// GetSession handles GET /api/v1/discount/session - current snapshot, safe to repeat
func (h *DiscountHandlers) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, h.view(session.Engine.Snapshot(), false))
}

// PostShow handles POST /api/v1/discount/session/show - the client's display timer elapsed
func (h *DiscountHandlers) PostShow(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	marker := h.perfTracker.StartOperation("discount:show", session.ID)
	defer marker.Complete()

	snap := session.Engine.Show(c.Request.Context())
	marker.SetSuccess(snap.Discount != nil)
	h.respond(c, http.StatusOK, h.view(snap, false))
}

// PostDismiss handles POST /api/v1/discount/session/dismiss
func (h *DiscountHandlers) PostDismiss(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := session.Engine.Dismiss()
	h.respondTransition(c, session.ID, "dismiss", snap, err)
}

// PostReopen handles POST /api/v1/discount/session/reopen
func (h *DiscountHandlers) PostReopen(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	snap, err := session.Engine.Reopen()
	h.respondTransition(c, session.ID, "reopen", snap, err)
}

// PostCopy handles POST /api/v1/discount/session/copy - the browser reports its clipboard result
func (h *DiscountHandlers) PostCopy(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req struct {
		Copied *bool `json:"copied" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond(c, http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	snap, err := session.Engine.Copy(func(string) error {
		if !*req.Copied {
			return errClipboardRejected
		}
		return nil
	})
	h.respondTransition(c, session.ID, "copy", snap, err)
}

// GetStatus handles GET /api/v1/discount/status - active discount from the secure cookies
func (h *DiscountHandlers) GetStatus(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	status := h.discountService.ActiveStatus(c.Request.Context(), session.Engine.Flags())
	h.respond(c, http.StatusOK, status)
}

// PostEmail handles POST /api/v1/discount/email - sends the active code to the visitor
func (h *DiscountHandlers) PostEmail(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	marker := h.perfTracker.StartOperation("discount:email", session.ID)
	defer marker.Complete()

	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetError(err)
		h.respond(c, http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	d, err := h.emailService.SendDiscountCode(c.Request.Context(), req.Email, session.Engine.Flags())
	marker.SetError(err)
	switch {
	case err == nil:
		h.respond(c, http.StatusOK, gin.H{"sent": true, "code": d.Code, "expiresAt": d.ExpiresAt})
	case errors.Is(err, services.ErrInvalidEmail):
		h.respond(c, http.StatusBadRequest, gin.H{"error": "Invalid email address"})
	case errors.Is(err, discount.ErrNoDiscount):
		h.respond(c, http.StatusNotFound, gin.H{"error": "No active discount"})
	case errors.Is(err, services.ErrEmailDisabled):
		h.respond(c, http.StatusServiceUnavailable, gin.H{"error": "Email delivery is not available"})
	default:
		h.respond(c, http.StatusBadGateway, gin.H{"error": "Email could not be sent"})
	}
}

func (h *DiscountHandlers) respondTransition(c *gin.Context, sessionID, action string, snap services.Snapshot, err error) {
	ignored := false
	if err != nil {
		// Out-of-order UI events are expected (double clicks, stale tabs).
		h.logger.WithSession(logging.ChannelPopup, sessionID).Debug("Popup action ignored", "action", action, "state", snap.State, "error", err.Error())
		ignored = true
	}
	h.respond(c, http.StatusOK, h.view(snap, ignored))
}

func (h *DiscountHandlers) view(snap services.Snapshot, ignored bool) SessionResponse {
	resp := SessionResponse{Snapshot: snap, DelayMs: snap.DisplayInMs, Ignored: ignored}
	if snap.Discount != nil {
		if before, after, ok := h.emailService.PricePreview(*snap.Discount); ok {
			resp.Price = &PriceView{Regular: before.StringFixed(2), Discounted: after.StringFixed(2)}
		}
	}
	return resp
}

func (h *DiscountHandlers) session(c *gin.Context) (*middleware.PopupSession, bool) {
	session, ok := middleware.GetPopupSession(c)
	if !ok {
		h.logger.HTTP().Error("Popup session middleware not installed", "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "popup session not found"})
		return nil, false
	}
	return session, true
}

// respond flushes queued cookie writes ahead of the body.
func (h *DiscountHandlers) respond(c *gin.Context, status int, body any) {
	middleware.FlushCookies(c)
	c.JSON(status, body)
}
