package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/session"
	"github.com/rs/zerolog/log"
)

// Upload notices are passed through the redirect so a rejected upload leaves
// the session untouched.
const (
	noticeParam    = "upload"
	noticeTooLarge = "too_large"
	noticeMissing  = "missing"
)

func (s *Server) noticeText(code string) string {
	switch code {
	case noticeTooLarge:
		return formatText(MsgImageTooLarge, s.opts.MaxUploadBytes>>20)
	case noticeMissing:
		return MsgSelectImageFirst
	default:
		return ""
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	view := sessionFrom(c).View()
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, indexTemplate, newPageData(view, s.noticeText(c.Query(noticeParam))))
}

func (s *Server) handleState(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, newStateResponse(sessionFrom(c).View()))
}

func (s *Server) handlePreview(c *gin.Context) {
	sess := sessionFrom(c)
	img, ok := s.store.Previews().Lookup(sess.ID(), c.Param("handle"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "private, no-cache")
	c.Data(http.StatusOK, img.MIMEType, img.Data)
}

func (s *Server) handleSelectImage(c *gin.Context) {
	sess := sessionFrom(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes+1<<20)

	fh, err := c.FormFile("image")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			log.Warn().Str("session", sess.ID()).Msg("upload rejected: request too large")
			redirectWithNotice(c, noticeTooLarge)
			return
		}
		log.Info().Err(err).Str("session", sess.ID()).Msg("upload without image")
		redirectWithNotice(c, noticeMissing)
		return
	}

	img, err := capture.FromMultipart(fh, s.opts.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, capture.ErrTooLarge) {
			log.Warn().Str("session", sess.ID()).Int64("size", fh.Size).Msg("upload rejected: image too large")
			redirectWithNotice(c, noticeTooLarge)
			return
		}
		c.Error(err)
		redirectWithNotice(c, noticeMissing)
		return
	}

	sess.SelectImage(img)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleAnalyze(c *gin.Context) {
	sess := sessionFrom(c)
	if err := s.store.StartAnalysis(sess); err != nil {
		if errors.Is(err, session.ErrAnalysisInProgress) {
			log.Info().Str("session", sess.ID()).Msg("ignoring analyze request while loading")
		}
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleReset(c *gin.Context) {
	sessionFrom(c).Reset()
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func redirectWithNotice(c *gin.Context, code string) {
	c.Redirect(http.StatusSeeOther, "/?"+noticeParam+"="+code)
}
