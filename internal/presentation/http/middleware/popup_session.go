// Package middleware provides the gin middleware of the conference API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/infrastructure/caching/stores"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/security"
)

const popupSessionKey = "popupSession"

// PopupSession is the per-browser engine and cookie mirror.
type PopupSession = stores.PopupSession[*services.PopupEngine]

// SessionFactory builds the engine and jar of a new session.
type SessionFactory func(sessionID string) (*services.PopupEngine, *cookies.Jar)

// PopupSessionMiddleware resolves the discount_session cookie to a live popup
// session, creating one when the cookie is missing or unknown. The session's
// jar is refreshed from the request cookies before the handler runs.
func PopupSessionMiddleware(store *stores.SessionsStore[*services.PopupEngine], factory SessionFactory, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookies.SessionName)
		if err != nil || !validSessionID(sessionID) {
			sessionID = security.GenerateULID()
		}

		session, created := store.GetOrCreate(sessionID, func() (*services.PopupEngine, *cookies.Jar) {
			return factory(sessionID)
		})
		session.Jar.Load(c.Request)
		if created {
			session.Jar.Set(cookies.Cookie{
				Name:     cookies.SessionName,
				Value:    sessionID,
				HttpOnly: true,
				Session:  true,
			})
			logger.WithSession(logging.ChannelPopup, sessionID).Debug("Popup session created")
		}

		c.Set(popupSessionKey, session)
		c.Next()
	}
}

// GetPopupSession returns the session resolved by PopupSessionMiddleware.
func GetPopupSession(c *gin.Context) (*PopupSession, bool) {
	v, ok := c.Get(popupSessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*PopupSession)
	return session, ok
}

// FlushCookies writes the session's queued cookie changes to the response.
// Call it before the body is written.
func FlushCookies(c *gin.Context) {
	if session, ok := GetPopupSession(c); ok {
		session.Jar.Flush(c.Writer)
	}
}

func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}
