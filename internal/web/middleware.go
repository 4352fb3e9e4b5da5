package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raine/ecg-analyzer/internal/session"
	"github.com/rs/zerolog/log"
)

const sessionContextKey = "session"

// requestLogger writes one zerolog event per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Err(c.Errors.Last().Err)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}

// sessionMiddleware resolves the caller's session from the signed cookie,
// creating one (and setting the cookie) when it is missing or invalid.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if raw, err := c.Cookie(sessionCookieName); err == nil {
			if verified, ok := s.cookies.verify(raw); ok {
				id = verified
			} else {
				log.Warn().Str("ip", c.ClientIP()).Msg("rejected session cookie with bad signature")
			}
		}

		sess := s.store.GetOrCreate(id)
		if sess.ID() != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookieName, s.cookies.sign(sess.ID()), 0, "/", "", false, true)
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionContextKey).(*session.Session)
}
