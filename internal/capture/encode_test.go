package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 lossless WebP
const tinyWebPBase64 = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testWebP(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(tinyWebPBase64)
	require.NoError(t, err)
	return data
}

func TestEncodeBase64_RoundTrip(t *testing.T) {
	formats := map[string][]byte{
		"png":  testPNG(t, 10, 10),
		"jpeg": testJPEG(t, 16, 8),
		"webp": testWebP(t),
	}

	for name, original := range formats {
		t.Run(name, func(t *testing.T) {
			encoded, err := EncodeBase64(bytes.NewReader(original))
			require.NoError(t, err)
			assert.False(t, strings.HasPrefix(encoded, "data:"))

			decoded, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)

			viaHelper, err := DecodeBase64(encoded)
			require.NoError(t, err)
			assert.Equal(t, original, viaHelper)
		})
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("handle revoked")
}

func TestEncodeBase64_ReadFailure(t *testing.T) {
	_, err := EncodeBase64(failingReader{})
	require.Error(t, err)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Contains(t, err.Error(), "handle revoked")
}

func TestImageBase64_NoData(t *testing.T) {
	var img *Image
	_, err := img.Base64()
	var encErr *EncodingError
	assert.ErrorAs(t, err, &encErr)

	_, err = (&Image{Name: "x"}).Base64()
	assert.ErrorAs(t, err, &encErr)
}

func TestDecodeBase64_Invalid(t *testing.T) {
	_, err := DecodeBase64("not base64!!")
	var encErr *EncodingError
	assert.ErrorAs(t, err, &encErr)
}

func TestStripDataURIPrefix(t *testing.T) {
	assert.Equal(t, "iVBORw0KGgo=", StripDataURIPrefix("data:image/png;base64,iVBORw0KGgo="))
	assert.Equal(t, "iVBORw0KGgo=", StripDataURIPrefix("iVBORw0KGgo="))
	assert.Equal(t, "", StripDataURIPrefix("data:image/png;base64,"))
}

func TestParseDataURI(t *testing.T) {
	mimeType, data, err := ParseDataURI("data:image/webp;base64,UklGRg==")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mimeType)
	assert.Equal(t, "UklGRg==", data)

	mimeType, data, err = ParseDataURI("UklGRg==")
	require.NoError(t, err)
	assert.Empty(t, mimeType)
	assert.Equal(t, "UklGRg==", data)

	_, _, err = ParseDataURI("data:image/png;base64")
	assert.Error(t, err)

	_, _, err = ParseDataURI("data:text/plain,hello")
	assert.Error(t, err)
}
