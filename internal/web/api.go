package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/llm"
	"github.com/rs/zerolog/log"
)

// API error codes.
const (
	apiErrMissingImage   = "missing_image"
	apiErrInvalidImage   = "invalid_image"
	apiErrImageTooLarge  = "image_too_large"
	apiErrAnalysisFailed = "analysis_failed"
	apiErrInternal       = "internal_error"
)

type apiAnalyzeRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleAPIAnalyze analyzes one image without touching any session. It
// accepts a multipart "image" field or a JSON body with base64 or data URI
// image data.
func (s *Server) handleAPIAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*s.opts.MaxUploadBytes+1<<20)

	img, status, apiErr := s.readAPIImage(c)
	if apiErr != nil {
		c.JSON(status, apiErr)
		return
	}

	result, err := s.store.Analyze(c.Request.Context(), img)
	if err != nil {
		var analysisErr *llm.AnalysisError
		if errors.As(err, &analysisErr) {
			log.Warn().Err(err).Str("kind", analysisErr.Kind.String()).Msg("api analysis failed")
			c.JSON(http.StatusBadGateway, apiError{Error: apiErrAnalysisFailed, Details: analysisErr.Error()})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, apiError{Error: apiErrInternal, Details: errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) readAPIImage(c *gin.Context) (*capture.Image, int, *apiError) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			if isTooLarge(err) {
				return nil, http.StatusRequestEntityTooLarge, s.tooLargeError()
			}
			return nil, http.StatusBadRequest, &apiError{Error: apiErrMissingImage, Details: MsgSelectImageFirst}
		}
		img, err := capture.FromMultipart(fh, s.opts.MaxUploadBytes)
		if err != nil {
			if errors.Is(err, capture.ErrTooLarge) {
				return nil, http.StatusRequestEntityTooLarge, s.tooLargeError()
			}
			return nil, http.StatusBadRequest, &apiError{Error: apiErrInvalidImage, Details: err.Error()}
		}
		return img, 0, nil
	}

	var req apiAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, s.tooLargeError()
		}
		return nil, http.StatusBadRequest, &apiError{Error: apiErrInvalidImage, Details: err.Error()}
	}
	if strings.TrimSpace(req.Image) == "" {
		return nil, http.StatusBadRequest, &apiError{Error: apiErrMissingImage, Details: MsgSelectImageFirst}
	}

	uriMIME, payload, err := capture.ParseDataURI(strings.TrimSpace(req.Image))
	if err != nil {
		return nil, http.StatusBadRequest, &apiError{Error: apiErrInvalidImage, Details: err.Error()}
	}
	data, err := capture.DecodeBase64(payload)
	if err != nil {
		return nil, http.StatusBadRequest, &apiError{Error: apiErrInvalidImage, Details: MsgInvalidImageData}
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, &apiError{Error: apiErrMissingImage, Details: MsgSelectImageFirst}
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, s.tooLargeError()
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = uriMIME
	}
	return capture.New("upload", mimeType, data), 0, nil
}

func (s *Server) tooLargeError() *apiError {
	return &apiError{Error: apiErrImageTooLarge, Details: formatText(MsgImageTooLarge, s.opts.MaxUploadBytes>>20)}
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
