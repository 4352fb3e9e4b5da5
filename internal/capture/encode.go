package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EncodingError is returned when image content cannot be read or encoded.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// EncodeBase64 reads r to the end and returns its standard base64 encoding,
// without any data-URI prefix.
func EncodeBase64(r io.Reader) (string, error) {
	var buf strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, r); err != nil {
		return "", &EncodingError{Err: err}
	}
	if err := enc.Close(); err != nil {
		return "", &EncodingError{Err: err}
	}
	return buf.String(), nil
}

// Base64 encodes the held image content.
func (img *Image) Base64() (string, error) {
	if img == nil || img.Data == nil {
		return "", &EncodingError{Err: errors.New("no image data")}
	}
	return EncodeBase64(bytes.NewReader(img.Data))
}

// DecodeBase64 is the inverse of EncodeBase64. A data-URI prefix, if any, is
// stripped first.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(StripDataURIPrefix(strings.TrimSpace(s)))
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

// StripDataURIPrefix removes a leading "data:<mime>;base64," from s.
// Input without the prefix is returned unchanged.
func StripDataURIPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// ParseDataURI splits a base64 data URI into its media type and payload.
// Plain base64 input is returned as data with an empty media type.
func ParseDataURI(s string) (mimeType, data string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s, nil
	}

	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data URI: missing payload separator")
	}
	params := strings.Split(header, ";")
	if params[len(params)-1] != "base64" {
		return "", "", fmt.Errorf("data URI is not base64 encoded")
	}
	return params[0], payload, nil
}
