package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageSize is the default maximum upload size (10MB)
const DefaultMaxImageSize = 10 * 1024 * 1024

// ErrTooLarge is returned when an image exceeds the configured size limit.
var ErrTooLarge = errors.New("image too large")

// Image is a user-supplied image held in memory for preview and analysis.
// The content is not validated: anything the browser sends is kept and
// forwarded as-is.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte

	// Width and Height are best-effort preview metadata; zero when the
	// content could not be decoded.
	Width  int
	Height int
}

// New wraps raw bytes into an Image. The declared MIME type wins unless it
// is missing or generic, in which case the content is sniffed.
func New(name, declaredMIME string, data []byte) *Image {
	img := &Image{
		Name:     name,
		MIMEType: resolveMIME(declaredMIME, data),
		Data:     data,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	return img
}

// FromMultipart reads an uploaded form file, enforcing maxSize.
func FromMultipart(fh *multipart.FileHeader, maxSize int64) (*Image, error) {
	if fh.Size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrTooLarge, fh.Size, maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return FromReader(fh.Filename, fh.Header.Get("Content-Type"), f, maxSize)
}

// FromReader reads r fully, enforcing maxSize.
func FromReader(name, declaredMIME string, r io.Reader, maxSize int64) (*Image, error) {
	data, err := readLimited(r, maxSize)
	if err != nil {
		return nil, err
	}
	return New(name, declaredMIME, data), nil
}

// Size returns the image size in bytes.
func (img *Image) Size() int64 {
	return int64(len(img.Data))
}

// HasDimensions reports whether preview metadata is known.
func (img *Image) HasDimensions() bool {
	return img.Width > 0 && img.Height > 0
}

// readLimited uses LimitReader to enforce the limit even when the caller
// cannot know the size up front.
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: exceeds limit of %d bytes", ErrTooLarge, maxSize)
	}
	return data, nil
}

func resolveMIME(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mediaType
		}
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	detected := mimetype.Detect(data).String()
	if mediaType, _, err := mime.ParseMediaType(detected); err == nil {
		return mediaType
	}
	return detected
}
