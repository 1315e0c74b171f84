package datauri

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	samplePNG  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	sampleJPEG = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
	sampleWEBP = append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 32)...)
)

// TestEncodeParseRoundTrip проверяет кодирование и разбор поддерживаемых типов.
func TestEncodeParseRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		MIMEPNG:  samplePNG,
		MIMEJPEG: sampleJPEG,
		MIMEWEBP: sampleWEBP,
	}

	for mimeType, data := range cases {
		uri := Encode(mimeType, data)
		require.Contains(t, uri, "data:"+mimeType+";base64,")

		parsed, err := Parse(uri)
		require.NoError(t, err, mimeType)
		assert.Equal(t, mimeType, parsed.MIMEType)
		assert.Equal(t, data, parsed.Data)
		assert.Equal(t, uri, parsed.String())
	}
}

// TestParseRejectsMalformed проверяет отказ для строк неверной формы.
func TestParseRejectsMalformed(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(samplePNG)

	for _, value := range []string{
		"",
		"hello",
		"data:image/png," + payload,
		"data:;base64," + payload,
		"image/png;base64," + payload,
		"data:image/png;base64",
		"data:image/png;base64,@@@",
	} {
		_, err := Parse(value)
		assert.ErrorIs(t, err, ErrMalformed, value)
	}
}

// TestParseRejectsUnsupportedMedia проверяет ограничение MIME-типов.
func TestParseRejectsUnsupportedMedia(t *testing.T) {
	_, err := Parse(Encode("application/pdf", []byte("%PDF-1.4")))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = Parse(Encode(MIMEPNG, []byte("plain text, not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = Parse(Encode(MIMEJPEG, samplePNG))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}

// TestParseRejectsEmptyPayload проверяет пустое изображение.
func TestParseRejectsEmptyPayload(t *testing.T) {
	_, err := Parse("data:image/png;base64,")
	assert.ErrorIs(t, err, ErrEmpty)
}

// TestCheckUploadSize проверяет отказ по размеру до чтения содержимого.
func TestCheckUploadSize(t *testing.T) {
	_, err := CheckUpload(5<<20, MaxImageBytes, nil)
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "smaller than 4 MB")

	mimeType, err := CheckUpload(int64(len(sampleJPEG)), MaxImageBytes, sampleJPEG)
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, mimeType)
}

// TestCheckUploadType проверяет определение типа по содержимому.
func TestCheckUploadType(t *testing.T) {
	_, err := CheckUpload(10, MaxImageBytes, []byte("GIF89a....."))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = CheckUpload(0, MaxImageBytes, nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

// TestCheckUploadAnimatedPNG проверяет, что APNG принимается как PNG.
func TestCheckUploadAnimatedPNG(t *testing.T) {
	apng := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	apng = append(apng, make([]byte, 17)...)
	apng = append(apng, "\x00\x00\x00\x08acTL"...)
	apng = append(apng, make([]byte, 16)...)

	mimeType, err := CheckUpload(int64(len(apng)), MaxImageBytes, apng)
	require.NoError(t, err)
	assert.Equal(t, MIMEPNG, mimeType)

	uri, err := Parse(Encode(MIMEPNG, apng))
	require.NoError(t, err)
	assert.Equal(t, apng, uri.Data)
}
